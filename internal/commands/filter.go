package commands

import (
	"strings"

	"github.com/tyemirov/htree/internal/types"
)

// classification is the structural position of a walk entry.
type classification struct {
	isContainer   bool
	isLastSibling bool
}

// classify inspects an entry against its parent's live child ordering. Filters never
// change the ordering, so last-sibling status is purely structural.
func classify(entry types.Entry) classification {
	result := classification{}
	switch entry.Node.Kind {
	case types.NodeKindContainer:
		result.isContainer = true
	case types.NodeKindLeaf:
		result.isContainer = false
	}
	if siblingCount := len(entry.SiblingNames); siblingCount > 0 {
		result.isLastSibling = entry.SiblingNames[siblingCount-1] == entry.Node.Name
	}
	return result
}

// filterChain decides whether a visited entry is rendered.
type filterChain struct {
	depthLimit     int
	namePattern    string
	containersOnly bool
}

func newFilterChain(options types.TreeOptions) filterChain {
	return filterChain{
		depthLimit:     options.DepthLimit,
		namePattern:    options.NamePattern,
		containersOnly: options.ContainersOnly,
	}
}

// allows applies depth limit, name pattern and containers-only in that order.
func (chain filterChain) allows(path string, depth int, position classification) bool {
	if chain.depthLimit > 0 && depth >= chain.depthLimit {
		return false
	}
	if chain.namePattern != "" && !strings.Contains(path, chain.namePattern) {
		return false
	}
	if chain.containersOnly && !position.isContainer {
		return false
	}
	return true
}
