// Package types defines every cross‑package data structure used by the htree CLI.
package types

import (
	"errors"
	"fmt"
)

// NodeKind tags the variant of a Node.
type NodeKind int

const (
	NodeKindContainer NodeKind = iota
	NodeKindLeaf
)

// String returns the lowercase name of the kind.
func (kind NodeKind) String() string {
	switch kind {
	case NodeKindContainer:
		return "container"
	case NodeKindLeaf:
		return "leaf"
	default:
		return "unknown"
	}
}

const (
	// PathSeparator joins component names inside a hierarchy path.
	PathSeparator = "/"
	// RootPath addresses the top of a store.
	RootPath = "/"
)

var (
	// ErrNodeNotFound reports that a requested path does not resolve inside a store.
	ErrNodeNotFound = errors.New("node not found")
	// ErrStoreRead reports that the backing store failed while it was being read.
	ErrStoreRead = errors.New("store read failed")
	// ErrInvalidOptions reports an inconsistent combination of render options.
	ErrInvalidOptions = errors.New("invalid options")
	// ErrUnsupportedFormat reports a file whose format no backend understands.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// Annotation is a named metadata value attached to a node.
type Annotation struct {
	Name  string
	Value string
}

// Node is either a container with ordered children or a leaf holding a typed value.
// ChildNames is only meaningful for containers, Shape and DataType only for leaves.
// A leaf with a nil Shape holds a scalar.
type Node struct {
	Kind        NodeKind
	Name        string
	Annotations []Annotation
	ChildNames  []string
	Shape       []int
	DataType    string
}

// IsContainer reports whether the node is a container.
func (node Node) IsContainer() bool {
	return node.Kind == NodeKindContainer
}

// IsScalar reports whether the node is a leaf without a shape.
func (node Node) IsScalar() bool {
	return node.Kind == NodeKindLeaf && node.Shape == nil
}

// Entry is one element of a pre-order walk. Path is relative to the walk root and
// SiblingNames is the live child ordering of the entry's parent.
type Entry struct {
	Path         string
	Node         Node
	SiblingNames []string
}

// TreeOptions configures a single render.
type TreeOptions struct {
	Verbose         bool
	ShowAnnotations bool
	ContainersOnly  bool
	// DepthLimit suppresses nodes whose depth is at least the limit. Zero disables it.
	DepthLimit  int
	NamePattern string
}

// Validate rejects option combinations that cannot be rendered.
func (options TreeOptions) Validate() error {
	if options.DepthLimit < 0 {
		return fmt.Errorf("%w: depth limit %d is negative", ErrInvalidOptions, options.DepthLimit)
	}
	return nil
}

// TreeCounters are the running totals of one render.
type TreeCounters struct {
	Containers int
	Leaves     int
}
