package document

import "github.com/antonio7098/unified-content-protocol/internal/content"

// Children returns the ordered children of p (structure order, §4.1).
func (d *Document) Children(p content.BlockID) []content.BlockID {
	return append([]content.BlockID(nil), d.Structure[p]...)
}

// Parent returns the structural parent of id, if any. The root has no
// parent.
func (d *Document) Parent(id content.BlockID) (content.BlockID, bool) {
	if id == d.Root {
		return "", false
	}
	for p, children := range d.Structure {
		for _, c := range children {
			if c == id {
				return p, true
			}
		}
	}
	return "", false
}

// Ancestors returns id's ancestors, parent-first, ending with the root
// (§4.1 tie-break).
func (d *Document) Ancestors(id content.BlockID) []content.BlockID {
	var out []content.BlockID
	cur := id
	for {
		p, ok := d.Parent(cur)
		if !ok {
			break
		}
		out = append(out, p)
		cur = p
	}
	return out
}

// Descendants returns id's descendants in BFS order, self excluded (§4.1).
func (d *Document) Descendants(id content.BlockID) []content.BlockID {
	var out []content.BlockID
	queue := append([]content.BlockID(nil), d.Structure[id]...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)
		queue = append(queue, d.Structure[cur]...)
	}
	return out
}

// Siblings returns id's siblings (same parent), excluding id itself.
func (d *Document) Siblings(id content.BlockID) []content.BlockID {
	p, ok := d.Parent(id)
	if !ok {
		return nil
	}
	var out []content.BlockID
	for _, c := range d.Structure[p] {
		if c != id {
			out = append(out, c)
		}
	}
	return out
}

// SiblingIndex returns id's zero-based position among its parent's
// children, or -1 if id is the root or has no recorded parent.
func (d *Document) SiblingIndex(id content.BlockID) int {
	p, ok := d.Parent(id)
	if !ok {
		return -1
	}
	for i, c := range d.Structure[p] {
		if c == id {
			return i
		}
	}
	return -1
}

// Depth returns the distance from the root to id (root has depth 0).
func (d *Document) Depth(id content.BlockID) int {
	return len(d.Ancestors(id))
}

// PathFromRoot returns the path from root to id inclusive, root first.
func (d *Document) PathFromRoot(id content.BlockID) []content.BlockID {
	ancestors := d.Ancestors(id)
	out := make([]content.BlockID, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		out = append(out, ancestors[i])
	}
	out = append(out, id)
	return out
}

// IsAncestor reports whether a is an ancestor of b.
func (d *Document) IsAncestor(a, b content.BlockID) bool {
	for _, anc := range d.Ancestors(b) {
		if anc == a {
			return true
		}
	}
	return false
}

// Descendant helper used by move validation: reports whether candidate is id
// itself or one of its descendants.
func (d *Document) isSelfOrDescendant(id, candidate content.BlockID) bool {
	if id == candidate {
		return true
	}
	for _, desc := range d.Descendants(id) {
		if desc == candidate {
			return true
		}
	}
	return false
}
