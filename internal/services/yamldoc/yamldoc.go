// Package yamldoc reads hierarchies described by YAML or JSON documents.
//
// The top-level mapping is the root container. Keys starting with "@" are annotations of the
// mapping that holds them. A mapping is a container unless it carries an "@dataset" key, in
// which case it is a leaf described by the "dtype" and "shape" keys below "@dataset". Scalars
// are scalar leaves and sequences are array leaves. Document key order is creation order.
package yamldoc

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tyemirov/htree/internal/hierarchy"
	"github.com/tyemirov/htree/internal/types"
)

const (
	annotationPrefix = "@"
	datasetKey       = "@dataset"
	dataTypeKey      = "dtype"
	shapeKey         = "shape"

	dataTypeInteger   = "int64"
	dataTypeFloat     = "float64"
	dataTypeBoolean   = "bool"
	dataTypeString    = "string"
	dataTypeNull      = "null"
	dataTypeTimestamp = "timestamp"
	dataTypeObject    = "object"

	errorReadFormat         = "%w: reading %s: %w"
	errorDecodeFormat       = "%w: decoding document: %w"
	errorRootFormat         = "%w: document root must be a mapping, found %s"
	errorLeafChildFormat    = "%w: leaf %s cannot hold child %q"
	errorDatasetFormat      = "%w: %s: @dataset must be a mapping"
	errorShapeFormat        = "%w: %s: invalid shape dimension %q"
	errorShapeKindFormat    = "%w: %s: shape must be a sequence of integers"
	errorAnnotationFormat   = "%w: %s: cannot encode annotation %s: %w"
	errorBuildNodeFormat    = "%w: %s: %w"
	errorAliasCycleFormat   = "%w: alias cycle at %s"
	errorDuplicateKeyFormat = "%w: duplicate key %q at %s"
	sequenceElementFormat   = "%s[%d]"
	emptyAnnotationValue    = ""
)

// Load reads the document at path.
func Load(path string) (*hierarchy.Tree, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf(errorReadFormat, types.ErrStoreRead, path, err)
	}
	return Parse(data)
}

// Parse builds a tree from a YAML or JSON document.
func Parse(data []byte) (*hierarchy.Tree, error) {
	tree := hierarchy.NewTree()
	var document yaml.Node
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf(errorDecodeFormat, types.ErrStoreRead, err)
	}
	if len(document.Content) == 0 {
		return tree, nil
	}
	root := resolveAlias(document.Content[0])
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return tree, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf(errorRootFormat, types.ErrStoreRead, kindName(root))
	}
	if err := checkAliasCycles(root); err != nil {
		return nil, err
	}
	if err := buildContainer(tree.Root(), types.RootPath, root); err != nil {
		return nil, err
	}
	return tree, nil
}

// checkAliasCycles rejects documents in which an alias points back at one of its own
// ancestors. Nodes already explored are skipped, so shared aliases are visited once.
func checkAliasCycles(root *yaml.Node) error {
	active := map[*yaml.Node]bool{}
	explored := map[*yaml.Node]bool{}
	var visit func(node *yaml.Node, path string) error
	visit = func(node *yaml.Node, path string) error {
		node = resolveAlias(node)
		if node == nil || explored[node] {
			return nil
		}
		if active[node] {
			return fmt.Errorf(errorAliasCycleFormat, types.ErrStoreRead, path)
		}
		active[node] = true
		switch node.Kind {
		case yaml.MappingNode:
			for index := 0; index+1 < len(node.Content); index += 2 {
				if err := visit(node.Content[index+1], childPath(path, node.Content[index].Value)); err != nil {
					return err
				}
			}
		case yaml.SequenceNode:
			for index, element := range node.Content {
				if err := visit(element, fmt.Sprintf(sequenceElementFormat, path, index)); err != nil {
					return err
				}
			}
		}
		delete(active, node)
		explored[node] = true
		return nil
	}
	return visit(root, types.RootPath)
}

// childPath is the display path of key below path, used in error messages only.
func childPath(path string, key string) string {
	return strings.TrimSuffix(path, types.PathSeparator) + types.PathSeparator + key
}

// mappingKeys lists the keys of mapping and rejects repeated ones.
func mappingKeys(path string, mapping *yaml.Node) ([]string, error) {
	keys := make([]string, 0, len(mapping.Content)/2)
	seen := make(map[string]bool, len(mapping.Content)/2)
	for index := 0; index+1 < len(mapping.Content); index += 2 {
		key := resolveAlias(mapping.Content[index]).Value
		if seen[key] {
			return nil, fmt.Errorf(errorDuplicateKeyFormat, types.ErrStoreRead, key, path)
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys, nil
}

func buildContainer(parent hierarchy.TreeNode, path string, mapping *yaml.Node) error {
	keys, err := mappingKeys(path, mapping)
	if err != nil {
		return err
	}
	for index, key := range keys {
		value := resolveAlias(mapping.Content[2*index+1])
		if strings.HasPrefix(key, annotationPrefix) {
			if err := annotate(parent, path, strings.TrimPrefix(key, annotationPrefix), value); err != nil {
				return err
			}
			continue
		}
		if err := buildChild(parent, childPath(path, key), key, value); err != nil {
			return err
		}
	}
	return nil
}

func buildChild(parent hierarchy.TreeNode, path string, name string, value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		if dataset := mappingValue(value, datasetKey); dataset != nil {
			return buildDatasetLeaf(parent, path, name, value, dataset)
		}
		container, err := parent.AddContainer(name)
		if err != nil {
			return fmt.Errorf(errorBuildNodeFormat, types.ErrStoreRead, path, err)
		}
		return buildContainer(container, path, value)
	case yaml.SequenceNode:
		shape, dataType := sequenceDescriptor(value)
		_, err := addLeaf(parent, path, name, shape, dataType)
		return err
	default:
		_, err := addLeaf(parent, path, name, nil, scalarDataType(value))
		return err
	}
}

func buildDatasetLeaf(parent hierarchy.TreeNode, path string, name string, mapping *yaml.Node, dataset *yaml.Node) error {
	if dataset.Kind != yaml.MappingNode {
		return fmt.Errorf(errorDatasetFormat, types.ErrStoreRead, path)
	}
	keys, err := mappingKeys(path, mapping)
	if err != nil {
		return err
	}
	dataType := dataTypeObject
	if typeNode := mappingValue(dataset, dataTypeKey); typeNode != nil {
		dataType = typeNode.Value
	}
	var shape []int
	if shapeNode := mappingValue(dataset, shapeKey); shapeNode != nil {
		parsed, err := parseShape(path, shapeNode)
		if err != nil {
			return err
		}
		shape = parsed
	}
	leaf, err := addLeaf(parent, path, name, shape, dataType)
	if err != nil {
		return err
	}
	for index, key := range keys {
		if key == datasetKey {
			continue
		}
		if !strings.HasPrefix(key, annotationPrefix) {
			return fmt.Errorf(errorLeafChildFormat, types.ErrStoreRead, path, key)
		}
		if err := annotate(leaf, path, strings.TrimPrefix(key, annotationPrefix), resolveAlias(mapping.Content[2*index+1])); err != nil {
			return err
		}
	}
	return nil
}

func addLeaf(parent hierarchy.TreeNode, path string, name string, shape []int, dataType string) (hierarchy.TreeNode, error) {
	leaf, err := parent.AddLeaf(name, shape, dataType)
	if err != nil {
		return hierarchy.TreeNode{}, fmt.Errorf(errorBuildNodeFormat, types.ErrStoreRead, path, err)
	}
	return leaf, nil
}

func annotate(node hierarchy.TreeNode, path string, name string, value *yaml.Node) error {
	text, err := annotationText(value)
	if err != nil {
		return fmt.Errorf(errorAnnotationFormat, types.ErrStoreRead, path, name, err)
	}
	node.Annotate(name, text)
	return nil
}

// annotationText renders scalars verbatim and collections in flow style.
func annotationText(value *yaml.Node) (string, error) {
	if value.Kind == yaml.ScalarNode {
		if value.ShortTag() == "!!null" {
			return emptyAnnotationValue, nil
		}
		return value.Value, nil
	}
	flow := *value
	flow.Style = yaml.FlowStyle
	encoded, err := yaml.Marshal(&flow)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(encoded)), nil
}

func parseShape(path string, shapeNode *yaml.Node) ([]int, error) {
	switch shapeNode.Kind {
	case yaml.ScalarNode:
		if shapeNode.ShortTag() == "!!null" {
			return nil, nil
		}
		dimension, err := strconv.Atoi(shapeNode.Value)
		if err != nil || dimension < 0 {
			return nil, fmt.Errorf(errorShapeFormat, types.ErrStoreRead, path, shapeNode.Value)
		}
		return []int{dimension}, nil
	case yaml.SequenceNode:
		shape := make([]int, 0, len(shapeNode.Content))
		for _, dimensionNode := range shapeNode.Content {
			dimension, err := strconv.Atoi(dimensionNode.Value)
			if err != nil || dimension < 0 {
				return nil, fmt.Errorf(errorShapeFormat, types.ErrStoreRead, path, dimensionNode.Value)
			}
			shape = append(shape, dimension)
		}
		return shape, nil
	default:
		return nil, fmt.Errorf(errorShapeKindFormat, types.ErrStoreRead, path)
	}
}

// sequenceDescriptor derives the shape of nested sequences of equal length and the data type
// shared by their scalar elements.
func sequenceDescriptor(sequence *yaml.Node) ([]int, string) {
	shape := []int{len(sequence.Content)}
	level := []*yaml.Node{sequence}
	for {
		var next []*yaml.Node
		width := -1
		uniform := true
		for _, node := range level {
			for _, element := range node.Content {
				element = resolveAlias(element)
				if element.Kind != yaml.SequenceNode {
					uniform = false
					break
				}
				if width >= 0 && len(element.Content) != width {
					uniform = false
					break
				}
				width = len(element.Content)
				next = append(next, element)
			}
			if !uniform {
				break
			}
		}
		if !uniform || width < 0 {
			break
		}
		shape = append(shape, width)
		level = next
	}

	dataType := ""
	for _, node := range level {
		for _, element := range node.Content {
			elementType := dataTypeObject
			if element = resolveAlias(element); element.Kind == yaml.ScalarNode {
				elementType = scalarDataType(element)
			}
			if dataType == "" {
				dataType = elementType
			} else if dataType != elementType {
				return shape, dataTypeObject
			}
		}
	}
	if dataType == "" {
		dataType = dataTypeObject
	}
	return shape, dataType
}

func scalarDataType(value *yaml.Node) string {
	switch value.ShortTag() {
	case "!!int":
		return dataTypeInteger
	case "!!float":
		return dataTypeFloat
	case "!!bool":
		return dataTypeBoolean
	case "!!null":
		return dataTypeNull
	case "!!timestamp":
		return dataTypeTimestamp
	default:
		return dataTypeString
	}
}

func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	for index := 0; index+1 < len(mapping.Content); index += 2 {
		if mapping.Content[index].Value == key {
			return resolveAlias(mapping.Content[index+1])
		}
	}
	return nil
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func kindName(node *yaml.Node) string {
	switch node.Kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.MappingNode:
		return "mapping"
	default:
		return "unknown"
	}
}
