// Package document implements the Document data model (C4), its secondary
// indices and edge index (C5), and the lifecycle/lookup operations defined
// on it.
package document

import (
	"time"

	"github.com/google/uuid"

	"github.com/antonio7098/unified-content-protocol/internal/content"
	"github.com/antonio7098/unified-content-protocol/internal/ucperr"
)

// DocumentID identifies a Document instance.
type DocumentID string

// NewDocumentID generates a fresh random document id.
func NewDocumentID() DocumentID {
	return DocumentID(uuid.NewString())
}

// DocumentMetadata carries document-wide descriptive fields (§3).
type DocumentMetadata struct {
	Title       *string
	Description *string
	Authors     []string
	CreatedAt   time.Time
	ModifiedAt  time.Time
	Custom      map[string]any
}

// DocumentVersion carries the document-wide monotonic counter, timestamp,
// and a deterministic state hash (§3 invariant 8).
type DocumentVersion struct {
	Counter   uint64
	Timestamp time.Time
	StateHash uint64
}

// Document is a rooted, content-addressed graph of typed content blocks
// maintained together with structure, indices, and an edge index (§3).
type Document struct {
	ID        DocumentID
	Root      content.BlockID
	Structure map[content.BlockID][]content.BlockID
	Blocks    map[content.BlockID]content.Block
	Metadata  DocumentMetadata
	Indices   *Indices
	EdgeIndex *EdgeIndex
	Version   DocumentVersion
}

// Create builds a new Document with a single empty-text root block,
// block_count = 1 (§4.1).
func Create(title string) *Document {
	now := time.Now().UTC()
	root := content.Block{
		ID:      content.RootID,
		Content: content.Text{TextValue: "", Format: content.TextPlain},
		Metadata: content.BlockMetadata{
			Tags:       content.NewStringSet(),
			ContentHash: content.NewContentHash(content.Text{Format: content.TextPlain}.Normalize()),
			CreatedAt:  now,
			ModifiedAt: now,
			Custom:     map[string]any{},
		},
		Version: content.Version{Counter: 1, Timestamp: now},
	}
	doc := &Document{
		ID:        NewDocumentID(),
		Root:      content.RootID,
		Structure: map[content.BlockID][]content.BlockID{content.RootID: {}},
		Blocks:    map[content.BlockID]content.Block{content.RootID: root},
		Metadata: DocumentMetadata{
			Authors:    []string{},
			CreatedAt:  now,
			ModifiedAt: now,
			Custom:     map[string]any{},
		},
		Indices:   NewIndices(),
		EdgeIndex: NewEdgeIndex(),
		Version:   DocumentVersion{Counter: 1, Timestamp: now},
	}
	if title != "" {
		doc.Metadata.Title = &title
	}
	doc.Indices.onBlockAdded(root)
	doc.Version.StateHash = doc.computeStateHash()
	return doc
}

// BlockCount returns the number of blocks currently present (live or
// orphaned).
func (d *Document) BlockCount() int { return len(d.Blocks) }

// GetBlock returns the block with the given id, or E001 BlockNotFound.
func (d *Document) GetBlock(id content.BlockID) (content.Block, error) {
	b, ok := d.Blocks[id]
	if !ok {
		return content.Block{}, ucperr.New(ucperr.E001BlockNotFound, "block not found", ucperr.WithBlocks(id.String()))
	}
	return b, nil
}

// MustGetBlock is a test/internal convenience that panics on missing block.
func (d *Document) MustGetBlock(id content.BlockID) content.Block {
	b, err := d.GetBlock(id)
	if err != nil {
		panic(err)
	}
	return b
}

// IsReachable reports whether id is reachable from the root by following the
// structure map downward.
func (d *Document) IsReachable(id content.BlockID) bool {
	if id == d.Root {
		return true
	}
	_, ok := d.Blocks[id]
	if !ok {
		return false
	}
	seen := map[content.BlockID]bool{}
	queue := []content.BlockID{d.Root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		if cur == id {
			return true
		}
		queue = append(queue, d.Structure[cur]...)
	}
	return false
}

// touch bumps the document version counter/timestamp and recomputes the
// state hash (§3 invariant 8: version.counter strictly monotonic).
func (d *Document) touch(at time.Time) {
	d.Version.Counter++
	d.Version.Timestamp = at
	d.Metadata.ModifiedAt = at
	d.Version.StateHash = d.computeStateHash()
}

// Now lets callers (mutation engine) apply a consistent mutation timestamp.
func Now() time.Time { return time.Now().UTC() }

// Clone returns a deep-enough copy of the document so a caller (the
// transaction manager) can apply a sequence of operations to a working copy
// and discard it wholesale on failure (§4.6: atomicity via working-copy
// replacement).
func (d *Document) Clone() *Document {
	structure := make(map[content.BlockID][]content.BlockID, len(d.Structure))
	for k, v := range d.Structure {
		structure[k] = append([]content.BlockID(nil), v...)
	}
	blocks := make(map[content.BlockID]content.Block, len(d.Blocks))
	for k, v := range d.Blocks {
		blocks[k] = v.Clone()
	}
	custom := make(map[string]any, len(d.Metadata.Custom))
	for k, v := range d.Metadata.Custom {
		custom[k] = v
	}
	return &Document{
		ID:        d.ID,
		Root:      d.Root,
		Structure: structure,
		Blocks:    blocks,
		Metadata: DocumentMetadata{
			Title:       d.Metadata.Title,
			Description: d.Metadata.Description,
			Authors:     append([]string(nil), d.Metadata.Authors...),
			CreatedAt:   d.Metadata.CreatedAt,
			ModifiedAt:  d.Metadata.ModifiedAt,
			Custom:      custom,
		},
		Indices:   d.Indices.Clone(),
		EdgeIndex: d.EdgeIndex.Clone(),
		Version:   d.Version,
	}
}
