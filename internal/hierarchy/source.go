// Package hierarchy defines the traversal contract consumed by the tree engine and the
// walk and resolve algorithms shared by every store backend.
package hierarchy

import (
	"context"
	"fmt"
	"strings"

	"github.com/tyemirov/htree/internal/types"
)

const (
	errorNotFoundFormat  = "%w: %s"
	errorNotContainerFmt = "%w: %s is not a container"
)

// Source produces nodes of one opened store.
type Source interface {
	// Resolve returns the node addressed by path or an error wrapping types.ErrNodeNotFound.
	Resolve(ctx context.Context, path string) (types.Node, error)
	// Walk visits every descendant of path in stable pre-order. Entry paths are relative to path.
	Walk(ctx context.Context, path string, visit func(types.Entry) error) error
}

// Child pairs a node with the backend handle needed to load its own children.
type Child[H any] struct {
	Handle H
	Node   types.Node
}

// Loader lists the children of a container in creation order.
type Loader[H any] interface {
	Children(ctx context.Context, parent H) ([]Child[H], error)
}

// SplitPath normalizes path and returns its components. The root yields no components.
func SplitPath(path string) []string {
	trimmed := strings.Trim(path, types.PathSeparator)
	if trimmed == "" {
		return nil
	}
	var components []string
	for _, component := range strings.Split(trimmed, types.PathSeparator) {
		if component == "" || component == "." {
			continue
		}
		components = append(components, component)
	}
	return components
}

// JoinPath joins components with the path separator.
func JoinPath(components ...string) string {
	return strings.Join(components, types.PathSeparator)
}

// Resolve follows path from root one component at a time.
func Resolve[H any](ctx context.Context, loader Loader[H], root Child[H], path string) (Child[H], error) {
	current := root
	components := SplitPath(path)
	for index, component := range components {
		if !current.Node.IsContainer() {
			return Child[H]{}, fmt.Errorf(errorNotContainerFmt, types.ErrNodeNotFound, types.PathSeparator+JoinPath(components[:index]...))
		}
		children, err := loader.Children(ctx, current.Handle)
		if err != nil {
			return Child[H]{}, err
		}
		found := false
		for _, child := range children {
			if child.Node.Name == component {
				current = child
				found = true
				break
			}
		}
		if !found {
			return Child[H]{}, fmt.Errorf(errorNotFoundFormat, types.ErrNodeNotFound, types.PathSeparator+JoinPath(components[:index+1]...))
		}
	}
	return current, nil
}

// Walk visits the descendants of root in pre-order. Containers are entered right after
// they are visited, so a child's subtree is complete before its next sibling appears.
func Walk[H any](ctx context.Context, loader Loader[H], root Child[H], visit func(types.Entry) error) error {
	if !root.Node.IsContainer() {
		return nil
	}
	return walkChildren(ctx, loader, root.Handle, "", visit)
}

func walkChildren[H any](ctx context.Context, loader Loader[H], parent H, prefix string, visit func(types.Entry) error) error {
	children, err := loader.Children(ctx, parent)
	if err != nil {
		return err
	}
	siblingNames := make([]string, 0, len(children))
	for _, child := range children {
		siblingNames = append(siblingNames, child.Node.Name)
	}
	for _, child := range children {
		childPath := child.Node.Name
		if prefix != "" {
			childPath = prefix + types.PathSeparator + child.Node.Name
		}
		if err := visit(types.Entry{Path: childPath, Node: child.Node, SiblingNames: siblingNames}); err != nil {
			return err
		}
		if child.Node.IsContainer() {
			if err := walkChildren(ctx, loader, child.Handle, childPath, visit); err != nil {
				return err
			}
		}
	}
	return nil
}
