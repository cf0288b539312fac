// Package section implements the section writer (C14): replacing the
// subtree under a heading block with blocks derived from a Markdown
// document, and capturing an undo payload for the replaced subtree.
package section

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/antonio7098/unified-content-protocol/internal/content"
	"github.com/antonio7098/unified-content-protocol/internal/document"
	"github.com/antonio7098/unified-content-protocol/internal/ucperr"
)

// Result reports the outcome of a WriteSection call: the ids removed from
// under the heading, the ids added in their place, and an opaque payload
// that Undo can replay to restore the removed subtree (§4.11: "returns
// {removed_ids, added_ids, deleted_content_payload} so callers can undo").
type Result struct {
	RemovedIDs            []content.BlockID
	AddedIDs              []content.BlockID
	DeletedContentPayload []byte
}

// snapshotNode mirrors document.NewBlockInput plus its prior children, in
// structure order, so Undo can rebuild an equivalent subtree. Content
// addressing (§4.2) means rebuilding with the same content/role/namespace
// reproduces the same block ids without this package tracking them
// explicitly, which is what makes restoration bit-exact.
type snapshotNode struct {
	Content      json.RawMessage `json:"content"`
	SemanticRole *string         `json:"semantic_role,omitempty"`
	Label        *string         `json:"label,omitempty"`
	Tags         []string        `json:"tags,omitempty"`
	Summary      *string         `json:"summary,omitempty"`
	Custom       map[string]any  `json:"custom,omitempty"`
	Namespace    string          `json:"namespace,omitempty"`
	Children     []snapshotNode  `json:"children,omitempty"`
}

// WriteSection replaces heading's current children with blocks derived
// from markdown. baseLevel overrides the heading-level derivation that
// otherwise follows heading's own structure depth (§4.11: "Heading level
// within the replacement is derived from structure depth unless the
// caller specifies a base level offset").
func WriteSection(doc *document.Document, heading content.BlockID, markdown string, baseLevel *int) (Result, error) {
	if _, err := doc.GetBlock(heading); err != nil {
		return Result{}, err
	}

	base := doc.Depth(heading) + 1
	if baseLevel != nil {
		base = *baseLevel
	}

	roots, err := parseMarkdown(markdown, base)
	if err != nil {
		return Result{}, ucperr.New(ucperr.E102PayloadError, "malformed section markdown: "+err.Error(), ucperr.WithBlocks(heading.String()))
	}

	removedIDs := append([]content.BlockID(nil), doc.Children(heading)...)
	snapshot, err := captureChildren(doc, heading)
	if err != nil {
		return Result{}, err
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return Result{}, ucperr.New(ucperr.E900Internal, "failed to encode undo payload: "+err.Error())
	}

	for _, id := range removedIDs {
		if err := doc.DeleteBlock(id, true, false); err != nil {
			return Result{}, err
		}
	}

	var addedIDs []content.BlockID
	for _, r := range roots {
		ids, err := insertTree(doc, heading, r)
		if err != nil {
			return Result{}, err
		}
		addedIDs = append(addedIDs, ids...)
	}

	return Result{RemovedIDs: removedIDs, AddedIDs: addedIDs, DeletedContentPayload: payload}, nil
}

// Undo reverses a WriteSection call: it removes heading's current children
// and rebuilds the snapshot captured in result.DeletedContentPayload.
func Undo(doc *document.Document, heading content.BlockID, result Result) error {
	if _, err := doc.GetBlock(heading); err != nil {
		return err
	}
	var snapshot []snapshotNode
	if err := json.Unmarshal(result.DeletedContentPayload, &snapshot); err != nil {
		return ucperr.New(ucperr.E900Internal, "failed to decode undo payload: "+err.Error())
	}
	for _, id := range doc.Children(heading) {
		if err := doc.DeleteBlock(id, true, false); err != nil {
			return err
		}
	}
	for _, n := range snapshot {
		if _, err := restoreNode(doc, heading, n); err != nil {
			return err
		}
	}
	return nil
}

func captureChildren(doc *document.Document, parent content.BlockID) ([]snapshotNode, error) {
	var out []snapshotNode
	for _, id := range doc.Children(parent) {
		blk, err := doc.GetBlock(id)
		if err != nil {
			return nil, err
		}
		raw, err := content.MarshalContent(blk.Content)
		if err != nil {
			return nil, err
		}
		children, err := captureChildren(doc, id)
		if err != nil {
			return nil, err
		}
		node := snapshotNode{
			Content:  raw,
			Label:    blk.Metadata.Label,
			Summary:  blk.Metadata.Summary,
			Custom:   blk.Metadata.Custom,
			Children: children,
		}
		if blk.Metadata.SemanticRole != nil {
			s := string(*blk.Metadata.SemanticRole)
			node.SemanticRole = &s
		}
		if blk.Metadata.Tags != nil {
			node.Tags = blk.Metadata.Tags.Items()
		}
		out = append(out, node)
	}
	return out, nil
}

func restoreNode(doc *document.Document, parent content.BlockID, n snapshotNode) (content.BlockID, error) {
	c, err := content.UnmarshalContent(n.Content)
	if err != nil {
		return "", ucperr.New(ucperr.E900Internal, "failed to decode undo content: "+err.Error())
	}
	in := document.NewBlockInput{
		Content:      c,
		SemanticRole: n.SemanticRole,
		Label:        n.Label,
		Tags:         n.Tags,
		Summary:      n.Summary,
		Custom:       n.Custom,
		Namespace:    n.Namespace,
	}
	id, err := doc.AddBlock(parent, in)
	if err != nil {
		return "", err
	}
	for _, c := range n.Children {
		if _, err := restoreNode(doc, id, c); err != nil {
			return "", err
		}
	}
	return id, nil
}

// buildNode is an in-memory block, not yet added to the document, produced
// by parsing a section's markdown body.
type buildNode struct {
	input    document.NewBlockInput
	children []*buildNode
}

func insertTree(doc *document.Document, parent content.BlockID, n *buildNode) ([]content.BlockID, error) {
	id, err := doc.AddBlock(parent, n.input)
	if err != nil {
		return nil, err
	}
	ids := []content.BlockID{id}
	for _, c := range n.children {
		childIDs, err := insertTree(doc, id, c)
		if err != nil {
			return nil, err
		}
		ids = append(ids, childIDs...)
	}
	return ids, nil
}

// parseMarkdown walks the top-level blocks of markdown with goldmark and
// nests them under a stack of open headings keyed by their raw markdown
// level, assigning each heading a semantic_role of headingN where N is
// derived from base plus the heading's depth relative to the first
// heading seen (§4.11).
func parseMarkdown(markdown string, base int) ([]*buildNode, error) {
	source := []byte(markdown)
	root := goldmark.New().Parser().Parse(text.NewReader(source))

	var roots []*buildNode
	var stack []struct {
		level int
		node  *buildNode
	}
	firstLevel := -1

	attach := func(n *buildNode) {
		if len(stack) == 0 {
			roots = append(roots, n)
			return
		}
		top := stack[len(stack)-1].node
		top.children = append(top.children, n)
	}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch tn := n.(type) {
		case *gast.Heading:
			if firstLevel == -1 {
				firstLevel = tn.Level
			}
			for len(stack) > 0 && stack[len(stack)-1].level >= tn.Level {
				stack = stack[:len(stack)-1]
			}
			role := fmt.Sprintf("heading%d", clampLevel(base+(tn.Level-firstLevel)))
			bn := &buildNode{input: document.NewBlockInput{
				Content:      content.Text{TextValue: inlineText(source, tn), Format: content.TextPlain},
				SemanticRole: strPtr(role),
			}}
			attach(bn)
			stack = append(stack, struct {
				level int
				node  *buildNode
			}{level: tn.Level, node: bn})
		case *gast.Paragraph:
			bn := &buildNode{input: document.NewBlockInput{
				Content:      content.Text{TextValue: inlineText(source, tn), Format: content.TextMarkdown},
				SemanticRole: strPtr("body"),
			}}
			attach(bn)
		case *gast.FencedCodeBlock:
			bn := &buildNode{input: document.NewBlockInput{
				Content: content.Code{Language: string(tn.Language(source)), Source: blockLines(source, tn.Lines())},
			}}
			attach(bn)
		case *gast.CodeBlock:
			bn := &buildNode{input: document.NewBlockInput{
				Content: content.Code{Source: blockLines(source, tn.Lines())},
			}}
			attach(bn)
		case *gast.List:
			bn := &buildNode{input: document.NewBlockInput{
				Content:      content.Text{TextValue: listText(source, tn), Format: content.TextMarkdown},
				SemanticRole: strPtr("body.list"),
			}}
			attach(bn)
		default:
			// blank lines, HTML blocks, and other block kinds carry no
			// content worth preserving as a standalone block.
		}
	}
	return roots, nil
}

func clampLevel(n int) int {
	if n < 1 {
		return 1
	}
	if n > 6 {
		return 6
	}
	return n
}

func strPtr(s string) *string { return &s }

// inlineText flattens an inline-bearing node's text content, ignoring
// emphasis/link markup, since blocks store prose rather than rich markup.
func inlineText(source []byte, n gast.Node) string {
	var b strings.Builder
	var walk func(gast.Node)
	walk = func(node gast.Node) {
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *gast.Text:
				b.Write(t.Segment.Value(source))
				if t.SoftLineBreak() || t.HardLineBreak() {
					b.WriteByte('\n')
				}
			case *gast.String:
				b.Write(t.Value)
			case *gast.CodeSpan:
				walk(c)
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return b.String()
}

func blockLines(source []byte, lines *text.Segments) string {
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return strings.TrimRight(b.String(), "\n")
}

func listText(source []byte, list *gast.List) string {
	var b strings.Builder
	marker := "-"
	if list.IsOrdered() {
		marker = "1."
	}
	i := 1
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		li, ok := item.(*gast.ListItem)
		if !ok {
			continue
		}
		prefix := marker
		if list.IsOrdered() {
			prefix = fmt.Sprintf("%d.", i)
		}
		b.WriteString(prefix)
		b.WriteByte(' ')
		b.WriteString(strings.TrimSpace(inlineText(source, li)))
		b.WriteByte('\n')
		i++
	}
	return strings.TrimRight(b.String(), "\n")
}
