package document

import (
	"github.com/antonio7098/unified-content-protocol/internal/content"
	"github.com/antonio7098/unified-content-protocol/internal/ucperr"
)

// AddEdge records a directed edge from source to target, deduplicated by
// (edgeType, target) on the source block's edge list, and maintains the
// bidirectional edge index (C5, §3 invariant 7).
func (d *Document) AddEdge(source content.BlockID, edgeType content.EdgeType, target content.BlockID, confidence *float64, metadata map[string]any) error {
	sb, ok := d.Blocks[source]
	if !ok {
		return ucperr.New(ucperr.E001BlockNotFound, "edge source not found", ucperr.WithBlocks(source.String()))
	}
	if _, ok := d.Blocks[target]; !ok {
		return ucperr.New(ucperr.E001BlockNotFound, "edge target not found", ucperr.WithBlocks(target.String()))
	}
	key := content.EdgeKey{EdgeType: edgeType, Target: target}
	if idx := sb.EdgeIndexOf(key); idx >= 0 {
		sb.Edges[idx].Confidence = confidence
		sb.Edges[idx].Metadata = metadata
		d.Blocks[source] = sb
		return nil
	}
	sb.Edges = append(sb.Edges, content.Edge{EdgeType: edgeType, Target: target, Confidence: confidence, Metadata: metadata})
	d.Blocks[source] = sb
	d.EdgeIndex.Add(source, edgeType, target)
	return nil
}

// RemoveEdge deletes the edge (source, edgeType, target) if present.
func (d *Document) RemoveEdge(source content.BlockID, edgeType content.EdgeType, target content.BlockID) error {
	sb, ok := d.Blocks[source]
	if !ok {
		return ucperr.New(ucperr.E001BlockNotFound, "edge source not found", ucperr.WithBlocks(source.String()))
	}
	key := content.EdgeKey{EdgeType: edgeType, Target: target}
	idx := sb.EdgeIndexOf(key)
	if idx < 0 {
		return nil
	}
	sb.Edges = append(sb.Edges[:idx], sb.Edges[idx+1:]...)
	d.Blocks[source] = sb
	d.EdgeIndex.Remove(source, edgeType, target)
	return nil
}

// OutgoingEdges returns the edges stored on id's block.
func (d *Document) OutgoingEdges(id content.BlockID) []content.Edge {
	return append([]content.Edge(nil), d.Blocks[id].Edges...)
}

// IncomingEdge describes an edge arriving at a block from Source, expressed
// using the inverse edge type as seen from the receiving block's side
// (§3 invariant 7).
type IncomingEdge struct {
	Source   content.BlockID
	EdgeType content.EdgeType
}

// IncomingEdges returns the edges arriving at id, resolved from the edge
// index in O(1).
func (d *Document) IncomingEdges(id content.BlockID) []IncomingEdge {
	entries := d.EdgeIndex.Incoming(id)
	out := make([]IncomingEdge, 0, len(entries))
	for _, e := range entries {
		out = append(out, IncomingEdge{Source: e.Other, EdgeType: e.Type})
	}
	return out
}

// HasIncomingEdge reports whether id has an incoming edge of type t from
// source (§8: "has_edge(s, t, τ) ⇔ has_edge_incoming(t, s, inverse(τ))").
func (d *Document) HasIncomingEdge(id content.BlockID, t content.EdgeType, source content.BlockID) bool {
	return d.EdgeIndex.HasIncoming(id, t, source)
}

// HasEdge reports whether source carries an outgoing edge of type t to
// target.
func (d *Document) HasEdge(source content.BlockID, t content.EdgeType, target content.BlockID) bool {
	return d.EdgeIndex.Has(source, t, target)
}
