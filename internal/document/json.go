package document

import (
	"bytes"
	"encoding/json"
	"hash/fnv"
	"sort"
	"time"

	"github.com/antonio7098/unified-content-protocol/internal/content"
)

const rfc3339Milli = "2006-01-02T15:04:05.000Z07:00"

// wireEdge mirrors the canonical edge JSON shape (§6).
type wireEdge struct {
	EdgeType   string         `json:"edge_type"`
	Target     string         `json:"target"`
	Confidence *float64       `json:"confidence,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type wireMetadata struct {
	SemanticRole *string        `json:"semantic_role,omitempty"`
	Label        *string        `json:"label,omitempty"`
	Tags         []string       `json:"tags"`
	Summary      *string        `json:"summary,omitempty"`
	ContentHash  string         `json:"content_hash"`
	CreatedAt    string         `json:"created_at"`
	ModifiedAt   string         `json:"modified_at"`
	Custom       map[string]any `json:"custom"`
}

type wireVersion struct {
	Counter   uint64 `json:"counter"`
	Timestamp string `json:"timestamp"`
}

type wireBlock struct {
	ID       string          `json:"id"`
	Content  json.RawMessage `json:"content"`
	Metadata wireMetadata    `json:"metadata"`
	Edges    []wireEdge      `json:"edges"`
	Version  wireVersion     `json:"version"`
}

type wireDocMetadata struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Authors     []string       `json:"authors"`
	CreatedAt   string         `json:"created_at"`
	ModifiedAt  string         `json:"modified_at"`
	Custom      map[string]any `json:"custom"`
}

type wireDocVersion struct {
	Counter   uint64 `json:"counter"`
	Timestamp string `json:"timestamp"`
	StateHash string `json:"state_hash"`
}

type wireDocument struct {
	ID        string                 `json:"id"`
	Root      string                 `json:"root"`
	Blocks    map[string]wireBlock   `json:"blocks"`
	Structure map[string][]string    `json:"structure"`
	Metadata  wireDocMetadata        `json:"metadata"`
	Version   wireDocVersion         `json:"version"`
}

func formatTime(t time.Time) string { return t.UTC().Format(rfc3339Milli) }

func parseTime(s string) (time.Time, error) { return time.Parse(rfc3339Milli, s) }

// MarshalJSON renders the document in the canonical form of §6: object keys
// sorted lexicographically (the wire structs are re-decoded into generic maps,
// which encoding/json writes in sorted key order), arrays in engine-insertion
// order, millisecond RFC3339 UTC timestamps.
func (d *Document) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(d.toWire())
	if err != nil {
		return nil, err
	}
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (d *Document) toWire() wireDocument {
	blocks := make(map[string]wireBlock, len(d.Blocks))
	for id, b := range d.Blocks {
		blocks[id.String()] = blockToWire(b)
	}
	structure := make(map[string][]string, len(d.Structure))
	for id, children := range d.Structure {
		ss := make([]string, len(children))
		for i, c := range children {
			ss[i] = c.String()
		}
		structure[id.String()] = ss
	}
	authors := d.Metadata.Authors
	if authors == nil {
		authors = []string{}
	}
	custom := d.Metadata.Custom
	if custom == nil {
		custom = map[string]any{}
	}
	return wireDocument{
		ID:        string(d.ID),
		Root:      d.Root.String(),
		Blocks:    blocks,
		Structure: structure,
		Metadata: wireDocMetadata{
			Title:       d.Metadata.Title,
			Description: d.Metadata.Description,
			Authors:     authors,
			CreatedAt:   formatTime(d.Metadata.CreatedAt),
			ModifiedAt:  formatTime(d.Metadata.ModifiedAt),
			Custom:      custom,
		},
		Version: wireDocVersion{
			Counter:   d.Version.Counter,
			Timestamp: formatTime(d.Version.Timestamp),
			StateHash: stateHashHex(d.Version.StateHash),
		},
	}
}

func blockToWire(b content.Block) wireBlock {
	raw, err := content.MarshalContent(b.Content)
	if err != nil {
		raw = []byte(`{"type":"text","text":"","format":"plain"}`)
	}
	tags := b.Metadata.Tags.Items()
	if tags == nil {
		tags = []string{}
	}
	var role *string
	if b.Metadata.SemanticRole != nil {
		s := string(*b.Metadata.SemanticRole)
		role = &s
	}
	custom := b.Metadata.Custom
	if custom == nil {
		custom = map[string]any{}
	}
	edges := make([]wireEdge, len(b.Edges))
	for i, e := range b.Edges {
		edges[i] = wireEdge{
			EdgeType:   string(e.EdgeType),
			Target:     e.Target.String(),
			Confidence: e.Confidence,
			Metadata:   e.Metadata,
		}
	}
	return wireBlock{
		ID:      b.ID.String(),
		Content: json.RawMessage(raw),
		Metadata: wireMetadata{
			SemanticRole: role,
			Label:        b.Metadata.Label,
			Tags:         tags,
			Summary:      b.Metadata.Summary,
			ContentHash:  string(b.Metadata.ContentHash),
			CreatedAt:    formatTime(b.Metadata.CreatedAt),
			ModifiedAt:   formatTime(b.Metadata.ModifiedAt),
			Custom:       custom,
		},
		Edges: edges,
		Version: wireVersion{
			Counter:   b.Version.Counter,
			Timestamp: formatTime(b.Version.Timestamp),
		},
	}
}

// UnmarshalDocumentJSON parses the canonical form back into a Document,
// rebuilding indices and the edge index from scratch (§8: round-trip JSON
// property).
func UnmarshalDocumentJSON(data []byte) (*Document, error) {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	doc := &Document{
		ID:        DocumentID(w.ID),
		Root:      content.BlockID(w.Root),
		Structure: map[content.BlockID][]content.BlockID{},
		Blocks:    map[content.BlockID]content.Block{},
		Indices:   NewIndices(),
		EdgeIndex: NewEdgeIndex(),
	}
	for id, children := range w.Structure {
		ids := make([]content.BlockID, len(children))
		for i, c := range children {
			ids[i] = content.BlockID(c)
		}
		doc.Structure[content.BlockID(id)] = ids
	}
	for id, wb := range w.Blocks {
		b, err := wireToBlock(wb)
		if err != nil {
			return nil, err
		}
		doc.Blocks[content.BlockID(id)] = b
	}
	createdAt, _ := parseTime(w.Metadata.CreatedAt)
	modifiedAt, _ := parseTime(w.Metadata.ModifiedAt)
	doc.Metadata = DocumentMetadata{
		Title:       w.Metadata.Title,
		Description: w.Metadata.Description,
		Authors:     w.Metadata.Authors,
		CreatedAt:   createdAt,
		ModifiedAt:  modifiedAt,
		Custom:      w.Metadata.Custom,
	}
	ts, _ := parseTime(w.Version.Timestamp)
	doc.Version = DocumentVersion{Counter: w.Version.Counter, Timestamp: ts, StateHash: parseStateHashHex(w.Version.StateHash)}

	// Rebuild indices and edge index from the decoded blocks.
	for _, b := range doc.Blocks {
		doc.Indices.onBlockAdded(b)
		for _, e := range b.Edges {
			doc.EdgeIndex.Add(b.ID, e.EdgeType, e.Target)
		}
	}
	return doc, nil
}

func wireToBlock(wb wireBlock) (content.Block, error) {
	c, err := content.UnmarshalContent(wb.Content)
	if err != nil {
		return content.Block{}, err
	}
	var role *content.SemanticRole
	if wb.Metadata.SemanticRole != nil {
		r := content.SemanticRole(*wb.Metadata.SemanticRole)
		role = &r
	}
	createdAt, _ := parseTime(wb.Metadata.CreatedAt)
	modifiedAt, _ := parseTime(wb.Metadata.ModifiedAt)
	edges := make([]content.Edge, len(wb.Edges))
	for i, we := range wb.Edges {
		edges[i] = content.Edge{
			EdgeType:   content.EdgeType(we.EdgeType),
			Target:     content.BlockID(we.Target),
			Confidence: we.Confidence,
			Metadata:   we.Metadata,
		}
	}
	ts, _ := parseTime(wb.Version.Timestamp)
	return content.Block{
		ID:      content.BlockID(wb.ID),
		Content: c,
		Metadata: content.BlockMetadata{
			SemanticRole: role,
			Label:        wb.Metadata.Label,
			Tags:         content.NewStringSet(wb.Metadata.Tags...),
			Summary:      wb.Metadata.Summary,
			ContentHash:  content.ContentHash(wb.Metadata.ContentHash),
			CreatedAt:    createdAt,
			ModifiedAt:   modifiedAt,
			Custom:       wb.Metadata.Custom,
		},
		Edges:   edges,
		Version: content.Version{Counter: wb.Version.Counter, Timestamp: ts},
	}, nil
}

// computeStateHash derives a deterministic 64-bit hash of the canonical
// serialized state, excluding the state hash field itself (§3 invariant 8).
func (d *Document) computeStateHash() uint64 {
	w := d.toWire()
	w.Version.StateHash = ""
	// Canonical JSON encoding of a map sorts keys automatically; sort the
	// structure/blocks map iteration only for clarity, not correctness.
	keys := make([]string, 0, len(w.Blocks))
	for k := range w.Blocks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	data, err := json.Marshal(w)
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	h.Write(data)
	return h.Sum64()
}

func stateHashHex(h uint64) string {
	const hexdigits = "0123456789abcdef"
	b := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		b[i] = hexdigits[h&0xf]
		h >>= 4
	}
	return string(b)
}

func parseStateHashHex(s string) uint64 {
	var v uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		var d uint64
		switch {
		case c >= '0' && c <= '9':
			d = uint64(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint64(c-'a') + 10
		default:
			continue
		}
		v = v<<4 | d
	}
	return v
}
