package content

// EdgeType enumerates the secondary semantic relationships a block may
// declare toward another block. Structural parent/child relations are
// derived from the document's structure map and must never be stored as
// explicit edges (§3).
type EdgeType string

const (
	EdgeReferences      EdgeType = "references"
	EdgeCitedBy         EdgeType = "cited_by"
	EdgeDerivedFrom      EdgeType = "derived_from"
	EdgeSupersedes       EdgeType = "supersedes"
	EdgeTransformedFrom  EdgeType = "transformed_from"
	EdgeLinksTo          EdgeType = "links_to"
	EdgeSupports         EdgeType = "supports"
	EdgeContradicts      EdgeType = "contradicts"
	EdgeElaborates       EdgeType = "elaborates"
	EdgeSummarizes       EdgeType = "summarizes"
	EdgeParentOf         EdgeType = "parent_of"
	EdgeChildOf          EdgeType = "child_of"
	EdgeSiblingOf        EdgeType = "sibling_of"
	EdgePreviousSibling  EdgeType = "previous_sibling"
	EdgeNextSibling      EdgeType = "next_sibling"
	EdgeVersionOf        EdgeType = "version_of"
	EdgeAlternativeOf    EdgeType = "alternative_of"
	EdgeTranslationOf    EdgeType = "translation_of"
)

// inversePairs lists the edge types whose semantics are inverted across
// direction. Types absent from this map are their own inverse (symmetric,
// like EdgeContradicts, or simply undirected-equivalent in reverse).
var inversePairs = map[EdgeType]EdgeType{
	EdgeReferences:      EdgeCitedBy,
	EdgeCitedBy:         EdgeReferences,
	EdgeParentOf:        EdgeChildOf,
	EdgeChildOf:         EdgeParentOf,
	EdgePreviousSibling: EdgeNextSibling,
	EdgeNextSibling:     EdgePreviousSibling,
}

// Inverse returns the inverse of an edge type per the declared pairs, or the
// type itself when it is not part of a pair (including the symmetric
// EdgeContradicts).
func (t EdgeType) Inverse() EdgeType {
	if inv, ok := inversePairs[t]; ok {
		return inv
	}
	return t
}

// ValidEdgeTypes is the full enumerated set, used by the UCL parser/executor
// to case-insensitively validate edge-type tokens.
var ValidEdgeTypes = []EdgeType{
	EdgeReferences, EdgeCitedBy, EdgeDerivedFrom, EdgeSupersedes, EdgeTransformedFrom,
	EdgeLinksTo, EdgeSupports, EdgeContradicts, EdgeElaborates, EdgeSummarizes,
	EdgeParentOf, EdgeChildOf, EdgeSiblingOf, EdgePreviousSibling, EdgeNextSibling,
	EdgeVersionOf, EdgeAlternativeOf, EdgeTranslationOf,
}

// IsValidEdgeType reports whether s (case-insensitively) names a known edge
// type, returning the canonical lowercase form.
func IsValidEdgeType(s string) (EdgeType, bool) {
	lower := toLower(s)
	for _, t := range ValidEdgeTypes {
		if string(t) == lower {
			return t, true
		}
	}
	return "", false
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Edge is a directed semantic relationship from the owning block to Target.
type Edge struct {
	EdgeType   EdgeType
	Target     BlockID
	Confidence *float64
	Metadata   map[string]any
}

// Key returns the (edgeType, target) deduplication key (§3: "ordered
// sequence of Edge (deduplicated by (edgeType,target))").
func (e Edge) Key() EdgeKey { return EdgeKey{EdgeType: e.EdgeType, Target: e.Target} }

// EdgeKey is the deduplication/lookup key for an Edge.
type EdgeKey struct {
	EdgeType EdgeType
	Target   BlockID
}
