package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tyemirov/htree/internal/types"
)

const (
	shortGap            = "  "
	objectNoun          = "object"
	attributeNoun       = "attribute"
	groupNoun           = "group"
	datasetNoun         = "dataset"
	scalarShapeLabel    = "scalar"
	unknownDataType     = "unknown"
	summaryFormat       = "(%s)"
	leafDescriptorFmt   = "%s, %s"
	footerFormat        = "%s, %s"
	summarySeparator    = ", "
	shapeOpen           = "("
	shapeClose          = ")"
	singleDimensionMark = ","
)

// LabelStyler decorates labels before they are written. Styling never changes layout.
type LabelStyler interface {
	Container(text string) string
	Leaf(text string) string
	Scalar(text string) string
	Annotation(text string) string
}

// PlainStyler leaves labels untouched.
type PlainStyler struct{}

func (PlainStyler) Container(text string) string  { return text }
func (PlainStyler) Leaf(text string) string       { return text }
func (PlainStyler) Scalar(text string) string     { return text }
func (PlainStyler) Annotation(text string) string { return text }

// formatCount renders "1 object" or "3 objects".
func formatCount(count int, noun string) string {
	if count != 1 {
		return fmt.Sprintf("%d %ss", count, noun)
	}
	return fmt.Sprintf("%d %s", count, noun)
}

// formatShape renders a shape the way array libraries print them: (5, 3), (4,) or scalar.
func formatShape(shape []int) string {
	if shape == nil {
		return scalarShapeLabel
	}
	dimensions := make([]string, 0, len(shape))
	for _, dimension := range shape {
		dimensions = append(dimensions, strconv.Itoa(dimension))
	}
	if len(dimensions) == 1 {
		return shapeOpen + dimensions[0] + singleDimensionMark + shapeClose
	}
	return shapeOpen + strings.Join(dimensions, summarySeparator) + shapeClose
}

// containerSummary describes the object and attribute counts of a container.
func containerSummary(node types.Node) string {
	message := formatCount(len(node.ChildNames), objectNoun)
	if len(node.Annotations) > 0 {
		message += summarySeparator + formatCount(len(node.Annotations), attributeNoun)
	}
	return fmt.Sprintf(summaryFormat, message)
}

// leafDescriptor describes a leaf's shape and data type.
func leafDescriptor(node types.Node) string {
	dataType := node.DataType
	if dataType == "" {
		dataType = unknownDataType
	}
	return fmt.Sprintf(leafDescriptorFmt, formatShape(node.Shape), dataType)
}

// nodeSummary is the verbose suffix of a node line without its leading gap.
func nodeSummary(node types.Node) string {
	switch node.Kind {
	case types.NodeKindContainer:
		return containerSummary(node)
	case types.NodeKindLeaf:
		return leafDescriptor(node)
	default:
		return ""
	}
}

// lineRenderer composes individual output lines.
type lineRenderer struct {
	styler  LabelStyler
	verbose bool
}

func (renderer lineRenderer) header(displayPath string, root types.Node) string {
	line := displayPath
	if renderer.verbose {
		line += shortGap + nodeSummary(root)
	}
	return renderer.styler.Container(line)
}

func (renderer lineRenderer) node(prefix string, node types.Node) string {
	switch node.Kind {
	case types.NodeKindContainer:
		label := node.Name
		if renderer.verbose {
			label += shortGap + containerSummary(node)
		}
		return prefix + renderer.styler.Container(label)
	case types.NodeKindLeaf:
		label := renderer.styler.Leaf(node.Name)
		if node.IsScalar() {
			label = renderer.styler.Scalar(node.Name)
		}
		if renderer.verbose {
			label += shortGap + leafDescriptor(node)
		}
		return prefix + label
	default:
		return prefix + node.Name
	}
}

func (renderer lineRenderer) annotation(prefix string, annotation types.Annotation) string {
	line := prefix + renderer.styler.Annotation(annotation.Name)
	if renderer.verbose {
		line += shortGap + annotation.Value
	}
	return line
}

func footer(counters types.TreeCounters) string {
	return fmt.Sprintf(footerFormat, formatCount(counters.Containers, groupNoun), formatCount(counters.Leaves, datasetNoun))
}
