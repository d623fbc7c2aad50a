package hierarchy

import (
	"context"
	"fmt"
	"strings"

	"github.com/tyemirov/htree/internal/types"
)

const (
	errorEmptyPathFormat    = "%w: empty path"
	errorDuplicateFormat    = "%w: %s already exists"
	errorLeafParentFormat   = "%w: %s is a leaf and cannot hold children"
	errorLeafCreationFormat = "%w: %s already exists as a container"
	errorChildNameFormat    = "%w: invalid child name %q"
)

type memoryNode struct {
	node     types.Node
	children []*memoryNode
	byName   map[string]*memoryNode
}

func newMemoryContainer(name string) *memoryNode {
	return &memoryNode{
		node:   types.Node{Kind: types.NodeKindContainer, Name: name},
		byName: map[string]*memoryNode{},
	}
}

func (entry *memoryNode) snapshot() types.Node {
	node := entry.node
	node.Annotations = append([]types.Annotation(nil), entry.node.Annotations...)
	if node.Kind == types.NodeKindContainer {
		node.ChildNames = make([]string, 0, len(entry.children))
		for _, child := range entry.children {
			node.ChildNames = append(node.ChildNames, child.node.Name)
		}
	}
	return node
}

// Tree is an in-memory store whose children keep their insertion order.
type Tree struct {
	root *memoryNode
}

// NewTree returns an empty tree holding only its root container.
func NewTree() *Tree {
	return &Tree{root: newMemoryContainer("")}
}

// AddContainer creates the container at path together with any missing ancestors.
func (tree *Tree) AddContainer(path string) error {
	_, err := tree.ensureContainer(SplitPath(path))
	return err
}

// AddLeaf creates a leaf at path. A nil shape marks a scalar. Missing ancestors are created.
func (tree *Tree) AddLeaf(path string, shape []int, dataType string) error {
	components := SplitPath(path)
	if len(components) == 0 {
		return fmt.Errorf(errorEmptyPathFormat, types.ErrInvalidOptions)
	}
	parent, err := tree.ensureContainer(components[:len(components)-1])
	if err != nil {
		return err
	}
	name := components[len(components)-1]
	if existing, exists := parent.byName[name]; exists {
		if existing.node.IsContainer() {
			return fmt.Errorf(errorLeafCreationFormat, types.ErrInvalidOptions, path)
		}
		return fmt.Errorf(errorDuplicateFormat, types.ErrInvalidOptions, path)
	}
	leaf := &memoryNode{node: types.Node{
		Kind:     types.NodeKindLeaf,
		Name:     name,
		Shape:    cloneShape(shape),
		DataType: dataType,
	}}
	parent.children = append(parent.children, leaf)
	parent.byName[name] = leaf
	return nil
}

// Annotate attaches an annotation to the node at path. Re-annotating a name replaces its value
// in place.
func (tree *Tree) Annotate(path string, name string, value string) error {
	target, err := tree.lookup(SplitPath(path))
	if err != nil {
		return err
	}
	for index := range target.node.Annotations {
		if target.node.Annotations[index].Name == name {
			target.node.Annotations[index].Value = value
			return nil
		}
	}
	target.node.Annotations = append(target.node.Annotations, types.Annotation{Name: name, Value: value})
	return nil
}

// TreeNode is a handle to one node of a Tree. Children added through a handle are attached
// to that node directly, so names are never reinterpreted as paths.
type TreeNode struct {
	entry *memoryNode
}

// Root returns the handle of the root container.
func (tree *Tree) Root() TreeNode {
	return TreeNode{entry: tree.root}
}

// AddContainer appends an empty container named name.
func (node TreeNode) AddContainer(name string) (TreeNode, error) {
	child := newMemoryContainer(name)
	if err := node.attach(child); err != nil {
		return TreeNode{}, err
	}
	return TreeNode{entry: child}, nil
}

// AddLeaf appends a leaf named name. A nil shape marks a scalar.
func (node TreeNode) AddLeaf(name string, shape []int, dataType string) (TreeNode, error) {
	child := &memoryNode{node: types.Node{
		Kind:     types.NodeKindLeaf,
		Name:     name,
		Shape:    cloneShape(shape),
		DataType: dataType,
	}}
	if err := node.attach(child); err != nil {
		return TreeNode{}, err
	}
	return TreeNode{entry: child}, nil
}

// Annotate appends an annotation to the node.
func (node TreeNode) Annotate(name string, value string) {
	node.entry.node.Annotations = append(node.entry.node.Annotations, types.Annotation{Name: name, Value: value})
}

// attach rejects names that are empty, contain the path separator or repeat a sibling.
func (node TreeNode) attach(child *memoryNode) error {
	name := child.node.Name
	if name == "" || strings.Contains(name, types.PathSeparator) {
		return fmt.Errorf(errorChildNameFormat, types.ErrInvalidOptions, name)
	}
	if !node.entry.node.IsContainer() {
		return fmt.Errorf(errorLeafParentFormat, types.ErrInvalidOptions, node.entry.node.Name)
	}
	if _, exists := node.entry.byName[name]; exists {
		return fmt.Errorf(errorDuplicateFormat, types.ErrInvalidOptions, name)
	}
	node.entry.children = append(node.entry.children, child)
	node.entry.byName[name] = child
	return nil
}

// Resolve implements Source.
func (tree *Tree) Resolve(ctx context.Context, path string) (types.Node, error) {
	resolved, err := Resolve[*memoryNode](ctx, tree, tree.rootChild(), path)
	if err != nil {
		return types.Node{}, err
	}
	return resolved.Node, nil
}

// Walk implements Source.
func (tree *Tree) Walk(ctx context.Context, path string, visit func(types.Entry) error) error {
	resolved, err := Resolve[*memoryNode](ctx, tree, tree.rootChild(), path)
	if err != nil {
		return err
	}
	return Walk[*memoryNode](ctx, tree, resolved, visit)
}

// Children implements Loader.
func (tree *Tree) Children(_ context.Context, parent *memoryNode) ([]Child[*memoryNode], error) {
	children := make([]Child[*memoryNode], 0, len(parent.children))
	for _, child := range parent.children {
		children = append(children, Child[*memoryNode]{Handle: child, Node: child.snapshot()})
	}
	return children, nil
}

func (tree *Tree) rootChild() Child[*memoryNode] {
	return Child[*memoryNode]{Handle: tree.root, Node: tree.root.snapshot()}
}

func (tree *Tree) ensureContainer(components []string) (*memoryNode, error) {
	current := tree.root
	for index, component := range components {
		next, exists := current.byName[component]
		if !exists {
			next = newMemoryContainer(component)
			current.children = append(current.children, next)
			current.byName[component] = next
		} else if !next.node.IsContainer() {
			return nil, fmt.Errorf(errorLeafParentFormat, types.ErrInvalidOptions, JoinPath(components[:index+1]...))
		}
		current = next
	}
	return current, nil
}

func (tree *Tree) lookup(components []string) (*memoryNode, error) {
	current := tree.root
	for index, component := range components {
		next, exists := current.byName[component]
		if !exists {
			return nil, fmt.Errorf(errorNotFoundFormat, types.ErrNodeNotFound, types.PathSeparator+JoinPath(components[:index+1]...))
		}
		current = next
	}
	return current, nil
}

func cloneShape(shape []int) []int {
	if shape == nil {
		return nil
	}
	return append([]int{}, shape...)
}

var (
	_ Source              = (*Tree)(nil)
	_ Loader[*memoryNode] = (*Tree)(nil)
)
