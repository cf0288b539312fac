package document

import (
	"time"

	"github.com/antonio7098/unified-content-protocol/internal/content"
	"github.com/antonio7098/unified-content-protocol/internal/ucperr"
)

// NewBlockInput describes a block to be created, before its id is derived.
type NewBlockInput struct {
	Content      content.Content
	SemanticRole *string
	Label        *string
	Tags         []string
	Summary      *string
	Custom       map[string]any
	// Namespace disambiguates otherwise-identical (content, role) pairs so
	// callers can intentionally add a second, distinct block with the same
	// content and role (§4.1: IdCollision — "caller must change role or
	// namespace").
	Namespace string
}

func (in NewBlockInput) role() string {
	if in.SemanticRole == nil {
		return ""
	}
	return *in.SemanticRole
}

// deriveBlock builds a content.Block with a deterministic id for the given
// input, at the given time.
func deriveBlock(in NewBlockInput, at time.Time) content.Block {
	normalized := in.Content.Normalize()
	id := content.NewBlockID(normalized, in.role(), in.Namespace)
	tags := content.NewStringSet(in.Tags...)
	custom := in.Custom
	if custom == nil {
		custom = map[string]any{}
	}
	meta := content.BlockMetadata{
		Label:       in.Label,
		Tags:        tags,
		Summary:     in.Summary,
		ContentHash: content.NewContentHash(normalized),
		CreatedAt:   at,
		ModifiedAt:  at,
		Custom:      custom,
	}
	if in.SemanticRole != nil {
		r := content.SemanticRole(*in.SemanticRole)
		meta.SemanticRole = &r
	}
	return content.Block{
		ID:       id,
		Content:  in.Content,
		Metadata: meta,
		Version:  content.Version{Counter: 1, Timestamp: at},
	}
}

// UpdateBlock applies mutate to a clone of the block identified by id,
// re-indexes it, and bumps both the block's and the document's version
// counters (§4.5: every successful Edit operation bumps block.version and
// document.version). mutate receives a deep-enough clone; returning an
// error leaves the document entirely unchanged.
func (d *Document) UpdateBlock(id content.BlockID, mutate func(content.Block) (content.Block, error)) error {
	old, ok := d.Blocks[id]
	if !ok {
		return ucperr.New(ucperr.E001BlockNotFound, "block not found", ucperr.WithBlocks(id.String()))
	}
	updated, err := mutate(old.Clone())
	if err != nil {
		return err
	}
	if updated.Metadata.Label != nil {
		if err := d.Indices.CheckLabelAvailable(*updated.Metadata.Label, id); err != nil {
			return err
		}
	}
	at := Now()
	updated.ID = id
	updated.Version.Counter = old.Version.Counter + 1
	updated.Version.Timestamp = at
	updated.Metadata.ModifiedAt = at
	d.Indices.onBlockMetadataChanged(old, updated)
	d.Blocks[id] = updated
	d.touch(at)
	return nil
}

// AddBlock appends a new block as the last child of parent (§4.1).
func (d *Document) AddBlock(parent content.BlockID, in NewBlockInput) (content.BlockID, error) {
	return d.AddBlockAt(parent, in, len(d.Structure[parent]))
}

// AddBlockAt inserts a new block at position index (clamped), under parent.
func (d *Document) AddBlockAt(parent content.BlockID, in NewBlockInput, index int) (content.BlockID, error) {
	if _, ok := d.Blocks[parent]; !ok {
		return "", ucperr.New(ucperr.E004ParentNotFound, "parent block not found", ucperr.WithBlocks(parent.String()))
	}
	at := Now()
	block := deriveBlock(in, at)
	if _, exists := d.Blocks[block.ID]; exists {
		return "", ucperr.New(ucperr.E900Internal, "block id collision: identical content+role+namespace already present", ucperr.WithSuggestion("change semantic role or namespace"), ucperr.WithBlocks(block.ID.String()))
	}
	if block.Metadata.Label != nil {
		if err := d.Indices.CheckLabelAvailable(*block.Metadata.Label, block.ID); err != nil {
			return "", err
		}
	}
	children := d.Structure[parent]
	index = clamp(index, 0, len(children))
	newChildren := make([]content.BlockID, 0, len(children)+1)
	newChildren = append(newChildren, children[:index]...)
	newChildren = append(newChildren, block.ID)
	newChildren = append(newChildren, children[index:]...)
	d.Structure[parent] = newChildren
	d.Structure[block.ID] = []content.BlockID{}
	d.Blocks[block.ID] = block
	d.Indices.onBlockAdded(block)
	d.touch(at)
	return block.ID, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MoveBlock relocates id under newParent at the given index (appended if
// nil), without touching edges (§4.1). Fails E201 CycleDetected if newParent
// is id or one of its descendants.
func (d *Document) MoveBlock(id, newParent content.BlockID, index *int) error {
	if _, ok := d.Blocks[id]; !ok {
		return ucperr.New(ucperr.E001BlockNotFound, "block not found", ucperr.WithBlocks(id.String()))
	}
	if _, ok := d.Blocks[newParent]; !ok {
		return ucperr.New(ucperr.E004ParentNotFound, "new parent not found", ucperr.WithBlocks(newParent.String()))
	}
	if d.isSelfOrDescendant(id, newParent) {
		return ucperr.New(ucperr.E201CycleDetected, "cannot move a block under itself or a descendant", ucperr.WithBlocks(id.String(), newParent.String()))
	}
	oldParent, hadParent := d.Parent(id)
	if hadParent {
		d.Structure[oldParent] = removeID(d.Structure[oldParent], id)
	}
	children := d.Structure[newParent]
	pos := len(children)
	if index != nil {
		pos = clamp(*index, 0, len(children))
	}
	newChildren := make([]content.BlockID, 0, len(children)+1)
	newChildren = append(newChildren, children[:pos]...)
	newChildren = append(newChildren, id)
	newChildren = append(newChildren, children[pos:]...)
	d.Structure[newParent] = newChildren
	d.touch(Now())
	return nil
}

func removeID(list []content.BlockID, id content.BlockID) []content.BlockID {
	out := make([]content.BlockID, 0, len(list))
	for _, c := range list {
		if c != id {
			out = append(out, c)
		}
	}
	return out
}

// DeleteBlock removes id per the cascade/preserve_children rules of §4.1.
// Deleting the root is always rejected with E204.
func (d *Document) DeleteBlock(id content.BlockID, cascade, preserveChildren bool) error {
	if id == d.Root {
		return ucperr.New(ucperr.E204InvalidStructure, "cannot delete the root block", ucperr.WithBlocks(id.String()))
	}
	if _, ok := d.Blocks[id]; !ok {
		return ucperr.New(ucperr.E001BlockNotFound, "block not found", ucperr.WithBlocks(id.String()))
	}
	children := d.Structure[id]
	if len(children) > 0 && !cascade && !preserveChildren {
		return ucperr.New(ucperr.E005HasChildren, "block has children; pass cascade or preserve_children", ucperr.WithBlocks(id.String()))
	}
	parent, hasParent := d.Parent(id)

	if preserveChildren && len(children) > 0 {
		if !hasParent {
			return ucperr.New(ucperr.E204InvalidStructure, "cannot preserve children of a block with no parent", ucperr.WithBlocks(id.String()))
		}
		idx := d.SiblingIndex(id)
		siblings := d.Structure[parent]
		newSiblings := make([]content.BlockID, 0, len(siblings)+len(children)-1)
		newSiblings = append(newSiblings, siblings[:idx]...)
		newSiblings = append(newSiblings, children...)
		newSiblings = append(newSiblings, siblings[idx+1:]...)
		d.Structure[parent] = newSiblings
		d.deleteSingleBlock(id)
		d.touch(Now())
		return nil
	}

	if cascade {
		order := postOrder(d.Structure, id)
		if hasParent {
			d.Structure[parent] = removeID(d.Structure[parent], id)
		}
		for _, c := range order {
			d.deleteSingleBlock(c)
		}
		d.touch(Now())
		return nil
	}

	// No children, straightforward removal.
	if hasParent {
		d.Structure[parent] = removeID(d.Structure[parent], id)
	}
	d.deleteSingleBlock(id)
	d.touch(Now())
	return nil
}

// postOrder returns id's subtree (id included) in post-order: children
// before parents, so deletion never dangles a reference.
func postOrder(structure map[content.BlockID][]content.BlockID, id content.BlockID) []content.BlockID {
	var out []content.BlockID
	for _, c := range structure[id] {
		out = append(out, postOrder(structure, c)...)
	}
	out = append(out, id)
	return out
}

// deleteSingleBlock removes one block from Blocks/Structure/indices/edges
// without touching its parent's child list (the caller handles that).
func (d *Document) deleteSingleBlock(id content.BlockID) {
	b, ok := d.Blocks[id]
	if !ok {
		return
	}
	d.Indices.onBlockRemoved(b)
	d.EdgeIndex.RemoveAllIncident(id)
	delete(d.Blocks, id)
	delete(d.Structure, id)
}

// PruneUnreachable removes every orphaned block (present but unreachable
// from root), returning the removed ids.
func (d *Document) PruneUnreachable() []content.BlockID {
	reachable := map[content.BlockID]bool{}
	var walk func(content.BlockID)
	walk = func(id content.BlockID) {
		reachable[id] = true
		for _, c := range d.Structure[id] {
			walk(c)
		}
	}
	walk(d.Root)
	var removed []content.BlockID
	for id := range d.Blocks {
		if !reachable[id] {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		d.deleteSingleBlock(id)
	}
	if len(removed) > 0 {
		d.touch(Now())
	}
	return removed
}
