package commands

import "strings"

const (
	teeConnector        = "├── "
	cornerConnector     = "└── "
	continuationColumn  = "│   "
	blankColumn         = "    "
	connectorColumnSize = 4
)

// terminationState records, per depth level, whether the branch open at that level has
// already emitted its last child. It belongs to exactly one render.
type terminationState struct {
	closed []bool
}

func (state *terminationState) isLast(depth int) bool {
	if depth < 0 || depth >= len(state.closed) {
		return false
	}
	return state.closed[depth]
}

func (state *terminationState) setLast(depth int, last bool) {
	if depth < 0 {
		return
	}
	for len(state.closed) <= depth {
		state.closed = append(state.closed, false)
	}
	state.closed[depth] = last
}

// clearBelow forgets every level deeper than depth. Those levels belong to a subtree the
// walk has already left.
func (state *terminationState) clearBelow(depth int) {
	if depth+1 < len(state.closed) {
		state.closed = state.closed[:max(depth+1, 0)]
	}
}

// columns renders the indentation for the levels [0, depth).
func (state *terminationState) columns(depth int) string {
	if depth <= 0 {
		return ""
	}
	var builder strings.Builder
	builder.Grow(depth * connectorColumnSize)
	for level := 0; level < depth; level++ {
		if state.isLast(level) {
			builder.WriteString(blankColumn)
		} else {
			builder.WriteString(continuationColumn)
		}
	}
	return builder.String()
}

// prefix renders the indentation and the connector for a line at depth.
func (state *terminationState) prefix(depth int, last bool) string {
	connector := teeConnector
	if last {
		connector = cornerConnector
	}
	return state.columns(depth) + connector
}
