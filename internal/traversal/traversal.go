// Package traversal implements graph navigation over a document (C6):
// directional navigation, path-to-root, and path-finding between two
// blocks, all honoring configurable depth/node limits and reporting
// truncation explicitly rather than failing.
package traversal

import (
	"strings"

	"github.com/antonio7098/unified-content-protocol/internal/content"
	"github.com/antonio7098/unified-content-protocol/internal/document"
)

// Direction selects which adjacency navigate() follows from the start node.
type Direction string

const (
	DirDown          Direction = "down"
	DirUp            Direction = "up"
	DirBoth          Direction = "both"
	DirSiblings      Direction = "siblings"
	DirBreadthFirst  Direction = "breadth_first"
	DirDepthFirst    Direction = "depth_first"
)

// Output controls how much block data accompanies each navigated node.
type Output string

const (
	OutputStructureOnly        Output = "structure_only"
	OutputStructureAndBlocks   Output = "structure_and_blocks"
	OutputStructureWithPreviews Output = "structure_with_previews"
)

// Filter narrows which visited nodes are reported; it never changes which
// nodes are reachable during traversal (§4.3).
type Filter struct {
	IncludeRoles   []string
	ExcludeRoles   []string
	IncludeTags    []string
	ExcludeTags    []string
	ContentPattern *string // case-insensitive substring match
}

// Config bounds every traversal (§4.3 defaults).
type Config struct {
	MaxDepth             int
	MaxNodes             int
	DefaultPreviewLength int
}

// DefaultConfig returns the spec's default traversal limits.
func DefaultConfig() Config {
	return Config{MaxDepth: 100, MaxNodes: 10000, DefaultPreviewLength: 100}
}

// Node is one entry of a TraversalResult.
type Node struct {
	ID      content.BlockID
	Depth   int
	Block   *content.Block
	Preview *string
}

// Summary aggregates traversal-wide statistics, including truncation.
type Summary struct {
	TotalNodes       int
	TotalEdges       int
	MaxDepth         int
	NodesByRole      map[string]int
	Truncated        bool
	TruncationReason string
}

// Result is the outcome of navigate/expand/find_paths (TraversalResult, §4.3).
type Result struct {
	Nodes   []Node
	Paths   [][]content.BlockID
	Summary Summary
}

// Navigate walks from start in the given direction up to depth levels
// (clamped to cfg.MaxDepth), returning at most cfg.MaxNodes nodes.
func Navigate(doc *document.Document, cfg Config, start content.BlockID, dir Direction, depth int, filter Filter, output Output) Result {
	maxDepth := cfg.MaxDepth
	if depth > 0 && depth < maxDepth {
		maxDepth = depth
	}
	maxNodes := cfg.MaxNodes
	if maxNodes <= 0 {
		maxNodes = DefaultConfig().MaxNodes
	}

	var order []stepT
	truncated := false
	reason := ""

	switch dir {
	case DirDown, DirBreadthFirst:
		order, truncated, reason = bfsDown(doc, start, maxDepth, maxNodes)
	case DirDepthFirst:
		order, truncated, reason = dfsDown(doc, start, maxDepth, maxNodes)
	case DirUp:
		for i, a := range doc.Ancestors(start) {
			d := i + 1
			if d > maxDepth {
				truncated, reason = true, "max_depth"
				break
			}
			if len(order) >= maxNodes {
				truncated, reason = true, "max_nodes"
				break
			}
			order = append(order, stepT{id: a, depth: d})
		}
	case DirSiblings:
		for _, s := range doc.Siblings(start) {
			if len(order) >= maxNodes {
				truncated, reason = true, "max_nodes"
				break
			}
			order = append(order, stepT{id: s, depth: 1})
		}
	case DirBoth:
		seen := map[content.BlockID]bool{start: true}
		ancestors := doc.Ancestors(start)
		for i := len(ancestors) - 1; i >= 0; i-- {
			a := ancestors[i]
			if seen[a] {
				continue
			}
			seen[a] = true
			order = append(order, stepT{id: a, depth: -(i + 1)})
		}
		down, dTrunc, dReason := bfsDown(doc, start, maxDepth, maxNodes-len(order))
		for _, s := range down {
			if s.id == start || seen[s.id] {
				continue
			}
			seen[s.id] = true
			order = append(order, stepT{id: s.id, depth: s.depth})
		}
		truncated, reason = dTrunc, dReason
	}

	nodesByRole := map[string]int{}
	var nodes []Node
	totalEdges := 0
	observedMaxDepth := 0
	for _, st := range order {
		b, ok := doc.Blocks[st.id]
		if !ok {
			continue
		}
		if !matchesFilter(b, filter) {
			continue
		}
		if st.depth > observedMaxDepth {
			observedMaxDepth = st.depth
		}
		totalEdges += len(b.Edges)
		role := ""
		if b.Metadata.SemanticRole != nil {
			role = b.Metadata.SemanticRole.Category()
			nodesByRole[role]++
		}
		n := Node{ID: st.id, Depth: st.depth}
		switch output {
		case OutputStructureAndBlocks:
			bc := b
			n.Block = &bc
		case OutputStructureWithPreviews:
			preview := contentPreview(b.Content, cfg.DefaultPreviewLength)
			n.Preview = &preview
		}
		nodes = append(nodes, n)
	}

	return Result{
		Nodes: nodes,
		Summary: Summary{
			TotalNodes:       len(nodes),
			TotalEdges:       totalEdges,
			MaxDepth:         observedMaxDepth,
			NodesByRole:      nodesByRole,
			Truncated:        truncated,
			TruncationReason: reason,
		},
	}
}

// Expand is navigate(node, down, 1, …) (§4.3).
func Expand(doc *document.Document, cfg Config, node content.BlockID, output Output) Result {
	return Navigate(doc, cfg, node, DirDown, 1, Filter{}, output)
}

type stepT = struct {
	id    content.BlockID
	depth int
}

func bfsDown(doc *document.Document, start content.BlockID, maxDepth, maxNodes int) ([]stepT, bool, string) {
	var out []stepT
	type item struct {
		id    content.BlockID
		depth int
	}
	queue := []item{}
	for _, c := range doc.Structure[start] {
		queue = append(queue, item{id: c, depth: 1})
	}
	truncated := false
	reason := ""
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth > maxDepth {
			truncated, reason = true, "max_depth"
			continue
		}
		if len(out) >= maxNodes {
			truncated, reason = true, "max_nodes"
			break
		}
		out = append(out, stepT{id: cur.id, depth: cur.depth})
		for _, c := range doc.Structure[cur.id] {
			queue = append(queue, item{id: c, depth: cur.depth + 1})
		}
	}
	return out, truncated, reason
}

func dfsDown(doc *document.Document, start content.BlockID, maxDepth, maxNodes int) ([]stepT, bool, string) {
	var out []stepT
	truncated := false
	reason := ""
	var walk func(id content.BlockID, depth int)
	walk = func(id content.BlockID, depth int) {
		if truncated {
			return
		}
		if depth > maxDepth {
			truncated, reason = true, "max_depth"
			return
		}
		for _, c := range doc.Structure[id] {
			if len(out) >= maxNodes {
				truncated, reason = true, "max_nodes"
				return
			}
			out = append(out, stepT{id: c, depth: depth})
			walk(c, depth+1)
			if truncated {
				return
			}
		}
	}
	walk(start, 1)
	return out, truncated, reason
}

func matchesFilter(b content.Block, f Filter) bool {
	role := ""
	if b.Metadata.SemanticRole != nil {
		role = string(*b.Metadata.SemanticRole)
	}
	if len(f.IncludeRoles) > 0 && !containsAny(f.IncludeRoles, role) {
		return false
	}
	if len(f.ExcludeRoles) > 0 && containsAny(f.ExcludeRoles, role) {
		return false
	}
	tags := b.Metadata.Tags.Items()
	if len(f.IncludeTags) > 0 && !anyTagMatches(tags, f.IncludeTags) {
		return false
	}
	if len(f.ExcludeTags) > 0 && anyTagMatches(tags, f.ExcludeTags) {
		return false
	}
	if f.ContentPattern != nil && *f.ContentPattern != "" {
		preview := contentPreview(b.Content, 0)
		if !strings.Contains(strings.ToLower(preview), strings.ToLower(*f.ContentPattern)) {
			return false
		}
	}
	return true
}

func containsAny(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func anyTagMatches(tags, want []string) bool {
	for _, w := range want {
		for _, t := range tags {
			if t == w {
				return true
			}
		}
	}
	return false
}

// contentPreview renders a representative, human-readable slice of a
// block's content, truncated to maxLen bytes (0 means unbounded).
func contentPreview(c content.Content, maxLen int) string {
	var s string
	switch v := c.(type) {
	case content.Text:
		s = v.TextValue
	case content.Code:
		s = v.Source
	case content.Math:
		s = v.Expression
	case content.Media:
		s = v.URL
	case content.Binary:
		s = v.MimeType
	case content.Table:
		if len(v.Columns) > 0 {
			s = strings.Join(v.Columns, ",")
		}
	case content.Composite:
		s = strings.Join(v.Children, ",")
	case content.JSON:
		s = "json"
	default:
		s = ""
	}
	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

// PathToRoot returns the chain from id up to the document root, following
// the nearest stored parent at each step; if id has no stored parent the
// chain terminates at id itself (§4.3).
func PathToRoot(doc *document.Document, id content.BlockID) []content.BlockID {
	out := []content.BlockID{id}
	seen := map[content.BlockID]bool{id: true}
	cur := id
	for cur != doc.Root {
		p, ok := doc.Parent(cur)
		if !ok || seen[p] {
			break
		}
		out = append(out, p)
		seen[p] = true
		cur = p
	}
	return out
}

// FindPaths enumerates up to maxPaths simple paths between from and to,
// traversing structural edges in either direction plus explicit edges
// (§4.3). Siblings are reachable via their common ancestor because the
// structural adjacency is undirected here.
func FindPaths(doc *document.Document, from, to content.BlockID, maxPaths int) [][]content.BlockID {
	if from == to {
		return [][]content.BlockID{{from}}
	}
	if maxPaths <= 0 {
		maxPaths = 1
	}
	adj := buildAdjacency(doc)
	var results [][]content.BlockID
	visited := map[content.BlockID]bool{from: true}
	path := []content.BlockID{from}

	var dfs func(cur content.BlockID)
	dfs = func(cur content.BlockID) {
		if len(results) >= maxPaths {
			return
		}
		if cur == to {
			results = append(results, append([]content.BlockID(nil), path...))
			return
		}
		for _, next := range adj[cur] {
			if len(results) >= maxPaths {
				return
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			path = append(path, next)
			dfs(next)
			path = path[:len(path)-1]
			visited[next] = false
		}
	}
	dfs(from)
	return results
}

func buildAdjacency(doc *document.Document) map[content.BlockID][]content.BlockID {
	adj := map[content.BlockID][]content.BlockID{}
	add := func(a, b content.BlockID) {
		for _, existing := range adj[a] {
			if existing == b {
				return
			}
		}
		adj[a] = append(adj[a], b)
	}
	for parent, children := range doc.Structure {
		for _, c := range children {
			add(parent, c)
			add(c, parent)
		}
	}
	for id := range doc.Blocks {
		for _, e := range doc.OutgoingEdges(id) {
			add(id, e.Target)
			add(e.Target, id)
		}
	}
	return adj
}
