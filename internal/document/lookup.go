package document

import "github.com/antonio7098/unified-content-protocol/internal/content"

// FindByLabel returns the block registered under label, if any (SUPPLEMENT:
// exercised by spec §8 scenario 1, not explicitly named as an operation in
// §4.1).
func (d *Document) FindByLabel(label string) (content.Block, bool) {
	id, ok := d.Indices.ByLabel[label]
	if !ok {
		return content.Block{}, false
	}
	return d.Blocks[id], true
}

// FindByType returns every block whose content tag matches typeTag, in
// index insertion order.
func (d *Document) FindByType(typeTag content.Tag) []content.Block {
	set, ok := d.Indices.ByContentType[string(typeTag)]
	if !ok {
		return nil
	}
	return d.resolveIDs(set.Items())
}

// FindByTag returns every block carrying tag.
func (d *Document) FindByTag(tag string) []content.Block {
	set, ok := d.Indices.ByTag[tag]
	if !ok {
		return nil
	}
	return d.resolveIDs(set.Items())
}

// FindByRole returns every block whose semantic role category matches
// category (the first dotted segment, per §4.2).
func (d *Document) FindByRole(category string) []content.Block {
	set, ok := d.Indices.ByRoleCategory[category]
	if !ok {
		return nil
	}
	return d.resolveIDs(set.Items())
}

func (d *Document) resolveIDs(ids []string) []content.Block {
	out := make([]content.Block, 0, len(ids))
	for _, s := range ids {
		if b, ok := d.Blocks[content.BlockID(s)]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Stats summarizes the document for diagnostics (SUPPLEMENT).
type Stats struct {
	BlockCount  int
	MaxDepth    int
	EdgeCount   int
	OrphanCount int
}

// Stats computes a read-only summary of the document.
func (d *Document) Stats() Stats {
	s := Stats{BlockCount: len(d.Blocks)}
	reachable := map[content.BlockID]bool{}
	var walk func(id content.BlockID, depth int)
	walk = func(id content.BlockID, depth int) {
		reachable[id] = true
		if depth > s.MaxDepth {
			s.MaxDepth = depth
		}
		for _, c := range d.Structure[id] {
			walk(c, depth+1)
		}
	}
	walk(d.Root, 0)
	for id, b := range d.Blocks {
		if !reachable[id] {
			s.OrphanCount++
		}
		s.EdgeCount += len(b.Edges)
	}
	return s
}
