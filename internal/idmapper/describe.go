package idmapper

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/antonio7098/unified-content-protocol/internal/content"
	"github.com/antonio7098/unified-content-protocol/internal/document"
)

// Describe emits the canonical prompt projection of doc (§6): a structure
// section listing every block's children (or nothing, for a leaf) in BFS
// order from the root, followed by a blank line and a block listing each
// showing its short id, content tag, and an escaped content preview.
// Projection is byte-stable for equal documents.
func Describe(doc *document.Document, m *Mapper) string {
	order := bfsOrder(doc)
	var b strings.Builder
	b.WriteString("Document structure:\n")
	for _, id := range order {
		short := m.Register(id)
		children := doc.Structure[id]
		b.WriteString(strconv.Itoa(short))
		b.WriteString(":")
		for _, c := range children {
			b.WriteString(" ")
			b.WriteString(strconv.Itoa(m.Register(c)))
		}
		b.WriteString("\n")
	}
	b.WriteString("\nBlocks:\n")
	for i, id := range order {
		blk := doc.MustGetBlock(id)
		short := m.Register(id)
		b.WriteString(fmt.Sprintf("%d type=%s content=\"%s\"", short, blk.Content.Tag(), escapePrompt(previewContent(blk.Content))))
		if i < len(order)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// bfsOrder returns every block reachable from the root in breadth-first
// order, followed by any orphaned blocks in deterministic (sorted-id)
// order so the projection is total over Blocks regardless of reachability.
func bfsOrder(doc *document.Document) []content.BlockID {
	seen := map[content.BlockID]bool{}
	var order []content.BlockID
	queue := []content.BlockID{doc.Root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		order = append(order, cur)
		queue = append(queue, doc.Structure[cur]...)
	}
	var orphans []string
	for id := range doc.Blocks {
		if !seen[id] {
			orphans = append(orphans, id.String())
		}
	}
	sort.Strings(orphans)
	for _, s := range orphans {
		order = append(order, content.BlockID(s))
	}
	return order
}

// escapePrompt applies the prompt projection's fixed escape rules: \ -> \\,
// " -> \", newline -> \n.
func escapePrompt(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// previewContent renders a representative string for a content value,
// mirroring the traversal package's preview logic but without truncation
// since the prompt projection is meant to be complete, not a bounded
// neighborhood summary.
func previewContent(c content.Content) string {
	switch v := c.(type) {
	case content.Text:
		return v.TextValue
	case content.Code:
		return v.Source
	case content.Math:
		return v.Expression
	case content.Media:
		return v.URL
	case content.Binary:
		return v.MimeType
	case content.Table:
		return strings.Join(v.Columns, ",")
	case content.Composite:
		return strings.Join(v.Children, ",")
	case content.JSON:
		return fmt.Sprintf("%v", v.Value)
	default:
		return ""
	}
}
