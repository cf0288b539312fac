// Package memory provides an in-memory implementation of the snapshot store.
//
// This implementation is suitable for development, testing, and single-node
// deployments where persistence across restarts is not required.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/antonio7098/unified-content-protocol/internal/document"
	"github.com/antonio7098/unified-content-protocol/internal/snapshot"
)

// Store is an in-memory implementation of the snapshot.Store interface.
// It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	byID map[document.DocumentID]map[string]snapshot.Snapshot

	// MaxSnapshots caps how many snapshots are retained per document; 0
	// means unlimited. When Create would exceed the cap, the snapshot with
	// the earliest CreatedAt is evicted first (§4.7).
	MaxSnapshots int
}

// Compile-time check that Store implements snapshot.Store.
var _ snapshot.Store = (*Store)(nil)

// New creates a new in-memory snapshot store. maxSnapshots of 0 means
// unlimited retention.
func New(maxSnapshots int) *Store {
	return &Store{
		byID:         make(map[document.DocumentID]map[string]snapshot.Snapshot),
		MaxSnapshots: maxSnapshots,
	}
}

// Create captures doc under name, evicting the oldest snapshot first if
// MaxSnapshots would otherwise be exceeded.
func (s *Store) Create(ctx context.Context, docID document.DocumentID, name string, description *string, doc *document.Document) (snapshot.Meta, error) {
	select {
	case <-ctx.Done():
		return snapshot.Meta{}, ctx.Err()
	default:
	}
	payload, err := doc.MarshalJSON()
	if err != nil {
		return snapshot.Meta{}, err
	}
	if name == "" {
		name = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.byID[docID]
	if !ok {
		bucket = map[string]snapshot.Snapshot{}
		s.byID[docID] = bucket
	}
	meta := snapshot.Meta{
		ID:              name,
		DocumentID:      docID,
		Description:     description,
		CreatedAt:       time.Now().UTC(),
		DocumentVersion: doc.Version.Counter,
	}
	bucket[name] = snapshot.Snapshot{Meta: meta, Payload: payload}

	if s.MaxSnapshots > 0 && len(bucket) > s.MaxSnapshots {
		evictOldest(bucket)
	}
	return meta, nil
}

// evictOldest removes the single oldest-by-CreatedAt snapshot from bucket.
func evictOldest(bucket map[string]snapshot.Snapshot) {
	var oldestName string
	var oldestAt time.Time
	first := true
	for name, snap := range bucket {
		if first || snap.CreatedAt.Before(oldestAt) {
			oldestName = name
			oldestAt = snap.CreatedAt
			first = false
		}
	}
	if oldestName != "" {
		delete(bucket, oldestName)
	}
}

// Restore decodes and returns a fresh Document from the named snapshot.
func (s *Store) Restore(ctx context.Context, docID document.DocumentID, name string) (*document.Document, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.lookup(docID, name)
	if !ok {
		return nil, snapshot.ErrNotFound
	}
	return document.UnmarshalDocumentJSON(snap.Payload)
}

// Exists reports whether a snapshot with the given name exists for docID.
func (s *Store) Exists(ctx context.Context, docID document.DocumentID, name string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.lookup(docID, name)
	return ok, nil
}

// Get returns a snapshot's metadata without decoding its payload.
func (s *Store) Get(ctx context.Context, docID document.DocumentID, name string) (snapshot.Meta, error) {
	select {
	case <-ctx.Done():
		return snapshot.Meta{}, ctx.Err()
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.lookup(docID, name)
	if !ok {
		return snapshot.Meta{}, snapshot.ErrNotFound
	}
	return snap.Meta, nil
}

// List returns every snapshot for docID, newest first.
func (s *Store) List(ctx context.Context, docID document.DocumentID) ([]snapshot.Meta, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.byID[docID]
	out := make([]snapshot.Meta, 0, len(bucket))
	for _, snap := range bucket {
		out = append(out, snap.Meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Delete removes a snapshot by name.
func (s *Store) Delete(ctx context.Context, docID document.DocumentID, name string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.byID[docID]
	if !ok {
		return snapshot.ErrNotFound
	}
	if _, ok := bucket[name]; !ok {
		return snapshot.ErrNotFound
	}
	delete(bucket, name)
	return nil
}

// Count returns the number of snapshots currently stored for docID.
func (s *Store) Count(ctx context.Context, docID document.DocumentID) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID[docID]), nil
}

// lookup must be called with s.mu held (read or write).
func (s *Store) lookup(docID document.DocumentID, name string) (snapshot.Snapshot, bool) {
	bucket, ok := s.byID[docID]
	if !ok {
		return snapshot.Snapshot{}, false
	}
	snap, ok := bucket[name]
	return snap, ok
}
