// Package commands contains the core logic of the tree command: walking a hierarchy and
// turning it into connector-drawn lines.
package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/tyemirov/htree/internal/hierarchy"
	"github.com/tyemirov/htree/internal/types"
)

const (
	// errorResolveRootFormat is used when the starting path cannot be resolved.
	errorResolveRootFormat = "resolving %s: %w"
	// errorWalkFormat is used when the walk below the starting path fails.
	errorWalkFormat = "walking %s: %w"
	// errorWriteLineFormat is used when the sink rejects a line.
	errorWriteLineFormat = "writing line: %w"
)

// LineSink receives rendered lines in order.
type LineSink interface {
	WriteLine(line string) error
}

// TreeRenderer draws a hierarchy as a tree diagram.
type TreeRenderer struct {
	Styler LabelStyler
}

// NewTreeRenderer returns a renderer using styler, or plain labels when styler is nil.
func NewTreeRenderer(styler LabelStyler) *TreeRenderer {
	if styler == nil {
		styler = PlainStyler{}
	}
	return &TreeRenderer{Styler: styler}
}

// treeRenderContext holds the state of one Render call.
type treeRenderContext struct {
	ctx          context.Context
	options      types.TreeOptions
	filters      filterChain
	lines        lineRenderer
	sink         LineSink
	terminations terminationState
	counters     types.TreeCounters
}

// Render writes the tree rooted at rootPath to sink. The header shows displayPath. Nothing
// is written when the options are invalid or rootPath does not resolve.
func (renderer *TreeRenderer) Render(
	ctx context.Context,
	source hierarchy.Source,
	rootPath string,
	displayPath string,
	options types.TreeOptions,
	sink LineSink,
) (types.TreeCounters, error) {
	if err := options.Validate(); err != nil {
		return types.TreeCounters{}, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	root, resolveErr := source.Resolve(ctx, rootPath)
	if resolveErr != nil {
		return types.TreeCounters{}, fmt.Errorf(errorResolveRootFormat, rootPath, resolveErr)
	}

	styler := renderer.Styler
	if styler == nil {
		styler = PlainStyler{}
	}
	render := &treeRenderContext{
		ctx:     ctx,
		options: options,
		filters: newFilterChain(options),
		lines:   lineRenderer{styler: styler, verbose: options.Verbose},
		sink:    sink,
	}

	if err := render.emit(render.lines.header(displayPath, root)); err != nil {
		return render.counters, err
	}
	if options.ShowAnnotations {
		if err := render.emitAnnotations(root, 0); err != nil {
			return render.counters, err
		}
	}

	if walkErr := source.Walk(ctx, rootPath, render.visit); walkErr != nil {
		return render.counters, fmt.Errorf(errorWalkFormat, rootPath, walkErr)
	}

	if options.Verbose {
		if err := render.emit(""); err != nil {
			return render.counters, err
		}
		if err := render.emit(footer(render.counters)); err != nil {
			return render.counters, err
		}
	}
	return render.counters, nil
}

// visit handles one walk entry. Termination bookkeeping happens for every entry so that
// filtered nodes still close their branch.
func (render *treeRenderContext) visit(entry types.Entry) error {
	if err := render.ctx.Err(); err != nil {
		return err
	}
	depth := strings.Count(entry.Path, types.PathSeparator)
	render.terminations.clearBelow(depth)
	position := classify(entry)
	render.terminations.setLast(depth, position.isLastSibling)

	if !render.filters.allows(entry.Path, depth, position) {
		return nil
	}

	linePrefix := render.terminations.prefix(depth, position.isLastSibling)
	if err := render.emit(render.lines.node(linePrefix, entry.Node)); err != nil {
		return err
	}
	switch entry.Node.Kind {
	case types.NodeKindContainer:
		render.counters.Containers++
	case types.NodeKindLeaf:
		render.counters.Leaves++
	}

	if render.options.ShowAnnotations {
		return render.emitAnnotations(entry.Node, depth+1)
	}
	return nil
}

// emitAnnotations writes one line per annotation of node at depth. The final annotation takes
// the corner only when no child line of node can follow it.
func (render *treeRenderContext) emitAnnotations(node types.Node, depth int) error {
	annotationCount := len(node.Annotations)
	if annotationCount == 0 {
		return nil
	}
	childLinesFollow := len(node.ChildNames) > 0 && !render.options.ContainersOnly
	for index, annotation := range node.Annotations {
		last := index == annotationCount-1 && !childLinesFollow
		linePrefix := render.terminations.prefix(depth, last)
		if err := render.emit(render.lines.annotation(linePrefix, annotation)); err != nil {
			return err
		}
	}
	return nil
}

func (render *treeRenderContext) emit(line string) error {
	if render.sink == nil {
		return nil
	}
	if err := render.sink.WriteLine(line); err != nil {
		return fmt.Errorf(errorWriteLineFormat, err)
	}
	return nil
}
