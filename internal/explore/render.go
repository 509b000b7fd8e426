package explore

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Render renders every tree in the session as indented ASCII: "├──"/"└──"
// guides connect parent to child, a leading "🎯" marks the focused tree, and
// a trailing "🆕 EXPANDED" marks nodes added by the most recent Expand call
// on their tree.
func Render(s *Session) string {
	ids := make([]string, 0, len(s.Trees))
	for id := range s.Trees {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for i, id := range ids {
		t := s.Trees[id]
		if i > 0 {
			b.WriteString("\n")
		}
		renderTree(&b, t)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderTree(b *strings.Builder, t Tree) {
	marker := ""
	if t.Focused {
		marker = "🎯 "
	}
	title := t.Title
	if title == "" {
		title = t.EntryPoint
	}
	fmt.Fprintf(b, "%s%s\n", marker, title)
	renderNode(b, t, t.RootID, "", true)
}

func renderNode(b *strings.Builder, t Tree, nodeID, prefix string, isLast bool) {
	n, ok := t.Nodes[nodeID]
	if !ok {
		return
	}

	guide, childPrefix := "├── ", prefix+"│   "
	if isLast {
		guide, childPrefix = "└── ", prefix+"    "
	}

	label := n.Symbol
	if label == "" {
		label = filepath.Base(n.File)
	}
	if n.AddedViaExpand {
		label += " 🆕 EXPANDED"
	}
	fmt.Fprintf(b, "%s%s%s\n", prefix, guide, label)

	for i, c := range n.Children {
		renderNode(b, t, c, childPrefix, i == len(n.Children)-1)
	}
}
