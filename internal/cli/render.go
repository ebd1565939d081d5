package cli

import (
	"fmt"
	"strings"

	"github.com/tokscope/tokscope/internal/transform"
)

// RenderTree renders a display tree as indented lines with box-drawing
// connectors. Each line carries the subtree's value and its share of the
// document total; aggregate entries render dimmed.
func RenderTree(res *transform.Result, basis transform.Basis) string {
	var b strings.Builder
	writeNode(&b, res.Tree, "", "", res.Tree.TotalValue, unitFor(basis))
	return b.String()
}

func unitFor(basis transform.Basis) string {
	if basis == transform.BasisChars {
		return "chars"
	}
	return "tokens"
}

func writeNode(b *strings.Builder, n *transform.DisplayNode, connector, childPrefix string, grand int, unit string) {
	name := styleName.Render(n.Name)
	if strings.HasSuffix(n.ID, "#aggregate") {
		name = styleAgg.Render(n.Name)
	}

	b.WriteString(connector)
	b.WriteString(name)
	b.WriteString(" ")
	b.WriteString(styleValue.Render(fmt.Sprintf("%d %s", n.TotalValue, unit)))
	b.WriteString(styleDim.Render(" · " + share(n.TotalValue, grand)))
	b.WriteString("\n")

	for i, c := range n.Children {
		conn := childPrefix + "├── "
		next := childPrefix + "│   "
		if i == len(n.Children)-1 {
			conn = childPrefix + "└── "
			next = childPrefix + "    "
		}
		writeNode(b, c, conn, next, grand, unit)
	}
}

func share(v, total int) string {
	if total <= 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(v)/float64(total))
}
