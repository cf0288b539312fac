package document

import (
	"github.com/antonio7098/unified-content-protocol/internal/content"
	"github.com/antonio7098/unified-content-protocol/internal/ucperr"
)

// Indices maintains the secondary lookups defined in C5, kept in lock-step
// with every document mutation.
type Indices struct {
	ByTag          map[string]*content.StringSet // tag -> block ids (insertion order)
	ByRoleCategory map[string]*content.StringSet // role category -> block ids
	ByContentType  map[string]*content.StringSet // content tag -> block ids
	ByLabel        map[string]content.BlockID    // label -> block id (unique)
}

// NewIndices returns empty indices.
func NewIndices() *Indices {
	return &Indices{
		ByTag:          map[string]*content.StringSet{},
		ByRoleCategory: map[string]*content.StringSet{},
		ByContentType:  map[string]*content.StringSet{},
		ByLabel:        map[string]content.BlockID{},
	}
}

// Clone returns a deep copy, used when a transaction builds a working copy.
func (ix *Indices) Clone() *Indices {
	out := NewIndices()
	for k, v := range ix.ByTag {
		out.ByTag[k] = v.Clone()
	}
	for k, v := range ix.ByRoleCategory {
		out.ByRoleCategory[k] = v.Clone()
	}
	for k, v := range ix.ByContentType {
		out.ByContentType[k] = v.Clone()
	}
	for k, v := range ix.ByLabel {
		out.ByLabel[k] = v
	}
	return out
}

func setAdd(m map[string]*content.StringSet, key string, id content.BlockID) {
	s, ok := m[key]
	if !ok {
		s = content.NewStringSet()
		m[key] = s
	}
	s.Add(id.String())
}

func setRemove(m map[string]*content.StringSet, key string, id content.BlockID) {
	s, ok := m[key]
	if !ok {
		return
	}
	s.Remove(id.String())
	if s.Len() == 0 {
		delete(m, key)
	}
}

// onBlockAdded indexes a freshly inserted block's metadata.
func (ix *Indices) onBlockAdded(b content.Block) {
	for _, tag := range b.Metadata.Tags.Items() {
		setAdd(ix.ByTag, tag, b.ID)
	}
	if b.Metadata.SemanticRole != nil {
		setAdd(ix.ByRoleCategory, b.Metadata.SemanticRole.Category(), b.ID)
	}
	setAdd(ix.ByContentType, string(b.Content.Tag()), b.ID)
	if b.Metadata.Label != nil {
		ix.ByLabel[*b.Metadata.Label] = b.ID
	}
}

// onBlockRemoved removes a block's metadata from every index.
func (ix *Indices) onBlockRemoved(b content.Block) {
	for _, tag := range b.Metadata.Tags.Items() {
		setRemove(ix.ByTag, tag, b.ID)
	}
	if b.Metadata.SemanticRole != nil {
		setRemove(ix.ByRoleCategory, b.Metadata.SemanticRole.Category(), b.ID)
	}
	setRemove(ix.ByContentType, string(b.Content.Tag()), b.ID)
	if b.Metadata.Label != nil {
		if cur, ok := ix.ByLabel[*b.Metadata.Label]; ok && cur == b.ID {
			delete(ix.ByLabel, *b.Metadata.Label)
		}
	}
}

// onBlockMetadataChanged re-indexes a block whose metadata changed between
// old and new snapshots.
func (ix *Indices) onBlockMetadataChanged(old, updated content.Block) {
	ix.onBlockRemoved(old)
	ix.onBlockAdded(updated)
}

// CheckLabelAvailable returns E003 LabelConflict if label is already taken
// by a different block.
func (ix *Indices) CheckLabelAvailable(label string, owner content.BlockID) error {
	if existing, ok := ix.ByLabel[label]; ok && existing != owner {
		return ucperr.New(ucperr.E003LabelConflict, "label already in use", ucperr.WithSuggestion("choose a different label"), ucperr.WithBlocks(existing.String()))
	}
	return nil
}

// edgeEntry is one adjacency entry: the block at the other end of the edge
// and the edge type as seen from the list's owner. The same type serves
// both the outgoing and the incoming lists.
type edgeEntry struct {
	Other content.BlockID
	Type  content.EdgeType
}

// EdgeIndex provides O(1) outgoing/incoming edge lookups maintained
// bidirectionally (§3 invariant 7, C5).
type EdgeIndex struct {
	outgoing map[content.BlockID][]edgeEntry
	incoming map[content.BlockID][]edgeEntry
}

// NewEdgeIndex returns an empty edge index.
func NewEdgeIndex() *EdgeIndex {
	return &EdgeIndex{outgoing: map[content.BlockID][]edgeEntry{}, incoming: map[content.BlockID][]edgeEntry{}}
}

// Clone returns a deep copy.
func (ei *EdgeIndex) Clone() *EdgeIndex {
	out := NewEdgeIndex()
	for k, v := range ei.outgoing {
		out.outgoing[k] = append([]edgeEntry(nil), v...)
	}
	for k, v := range ei.incoming {
		out.incoming[k] = append([]edgeEntry(nil), v...)
	}
	return out
}

// Add records that source has an outgoing edge of type t to target, and
// maintains the bidirectional invariant by recording the inverse edge on
// target's incoming list (§3 invariant 7).
func (ei *EdgeIndex) Add(source content.BlockID, t content.EdgeType, target content.BlockID) {
	ei.outgoing[source] = append(ei.outgoing[source], edgeEntry{Other: target, Type: t})
	ei.incoming[target] = append(ei.incoming[target], edgeEntry{Other: source, Type: t.Inverse()})
}

// Remove undoes Add for the same (source, t, target) triple.
func (ei *EdgeIndex) Remove(source content.BlockID, t content.EdgeType, target content.BlockID) {
	ei.outgoing[source] = removeEntry(ei.outgoing[source], edgeEntry{Other: target, Type: t})
	ei.incoming[target] = removeEntry(ei.incoming[target], edgeEntry{Other: source, Type: t.Inverse()})
}

// RemoveAllIncident removes every edge, incoming or outgoing, touching id —
// used when a block is deleted (C5: "Removal of a block removes all edges
// incident to it from both directions").
func (ei *EdgeIndex) RemoveAllIncident(id content.BlockID) {
	for _, e := range ei.outgoing[id] {
		ei.incoming[e.Other] = removeEntry(ei.incoming[e.Other], edgeEntry{Other: id, Type: e.Type.Inverse()})
	}
	delete(ei.outgoing, id)
	for _, e := range ei.incoming[id] {
		ei.outgoing[e.Other] = removeEntry(ei.outgoing[e.Other], edgeEntry{Other: id, Type: e.Type.Inverse()})
	}
	delete(ei.incoming, id)
}

func removeEntry(list []edgeEntry, target edgeEntry) []edgeEntry {
	for i, e := range list {
		if e == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Outgoing returns the (target, type) pairs for edges leaving id.
func (ei *EdgeIndex) Outgoing(id content.BlockID) []edgeEntry { return ei.outgoing[id] }

// Incoming returns the (source, type) pairs for edges arriving at id.
func (ei *EdgeIndex) Incoming(id content.BlockID) []edgeEntry { return ei.incoming[id] }

// Has reports whether source has an outgoing edge of type t to target.
func (ei *EdgeIndex) Has(source content.BlockID, t content.EdgeType, target content.BlockID) bool {
	for _, e := range ei.outgoing[source] {
		if e.Other == target && e.Type == t {
			return true
		}
	}
	return false
}

// HasIncoming reports whether target has an incoming edge of type t from source.
func (ei *EdgeIndex) HasIncoming(target content.BlockID, t content.EdgeType, source content.BlockID) bool {
	for _, e := range ei.incoming[target] {
		if e.Other == source && e.Type == t {
			return true
		}
	}
	return false
}
