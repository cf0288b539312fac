// Package snapshot defines the persistence layer for document snapshots
// (C10). The Store interface abstracts snapshot storage, allowing different
// backend implementations. Available implementations:
//
//   - memory: in-memory store for development and testing
//   - redisstore: Redis-backed store for production persistence
//   - mongostore: MongoDB-backed store for production persistence
//
// To add a new implementation, create a subpackage that implements the
// Store interface and returns snapshot.ErrNotFound for missing snapshots.
package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/antonio7098/unified-content-protocol/internal/document"
)

// ErrNotFound is returned when a snapshot is not found in the store.
var ErrNotFound = errors.New("snapshot not found")

// Meta describes a stored snapshot without its full document payload
// (§4.7: create/restore/list/delete).
type Meta struct {
	ID              string
	DocumentID      document.DocumentID
	Description     *string
	CreatedAt       time.Time
	DocumentVersion uint64
}

// Snapshot pairs a snapshot's metadata with the canonical JSON payload of
// the document it captured.
type Snapshot struct {
	Meta
	Payload []byte
}

// Store defines the persistence layer for document snapshots.
// Implementations must be safe for concurrent use.
type Store interface {
	// Create captures doc under name, returning the stored Meta. If name is
	// empty a fresh identifier is generated. Replaces any existing snapshot
	// with the same name for the same document.
	Create(ctx context.Context, docID document.DocumentID, name string, description *string, doc *document.Document) (Meta, error)

	// Restore returns a freshly-decoded Document built from the snapshot's
	// payload, detached from the store's own copy.
	Restore(ctx context.Context, docID document.DocumentID, name string) (*document.Document, error)

	// Exists reports whether a snapshot with the given name exists for docID.
	Exists(ctx context.Context, docID document.DocumentID, name string) (bool, error)

	// Get returns a snapshot's metadata without decoding its payload.
	Get(ctx context.Context, docID document.DocumentID, name string) (Meta, error)

	// List returns every snapshot for docID, newest first.
	List(ctx context.Context, docID document.DocumentID) ([]Meta, error)

	// Delete removes a snapshot by name. Returns ErrNotFound if it does not
	// exist.
	Delete(ctx context.Context, docID document.DocumentID, name string) error

	// Count returns the number of snapshots currently stored for docID.
	Count(ctx context.Context, docID document.DocumentID) (int, error)
}
