// Package redisstore provides a Redis-backed implementation of the
// snapshot store.
//
// This implementation persists snapshot payloads to Redis for durability
// across restarts in distributed deployments, where a document's active
// engine instance and its readers may run on different nodes.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/antonio7098/unified-content-protocol/internal/document"
	"github.com/antonio7098/unified-content-protocol/internal/snapshot"
)

// Store is a Redis-backed implementation of the snapshot.Store interface.
type Store struct {
	rdb *redis.Client

	// MaxSnapshots caps how many snapshots are retained per document; 0
	// means unlimited.
	MaxSnapshots int
}

// Compile-time check that Store implements snapshot.Store.
var _ snapshot.Store = (*Store)(nil)

// New creates a Redis-backed snapshot store using the provided client.
func New(rdb *redis.Client, maxSnapshots int) *Store {
	return &Store{rdb: rdb, MaxSnapshots: maxSnapshots}
}

func indexKey(docID document.DocumentID) string {
	return fmt.Sprintf("ucp:snapshots:%s", docID)
}

func payloadKey(docID document.DocumentID, name string) string {
	return fmt.Sprintf("ucp:snapshots:%s:%s:payload", docID, name)
}

func metaKey(docID document.DocumentID, name string) string {
	return fmt.Sprintf("ucp:snapshots:%s:%s:meta", docID, name)
}

// Create captures doc under name in Redis, evicting the oldest snapshot
// first if MaxSnapshots would otherwise be exceeded.
func (s *Store) Create(ctx context.Context, docID document.DocumentID, name string, description *string, doc *document.Document) (snapshot.Meta, error) {
	payload, err := doc.MarshalJSON()
	if err != nil {
		return snapshot.Meta{}, err
	}
	if name == "" {
		name = uuid.NewString()
	}
	meta := snapshot.Meta{
		ID:              name,
		DocumentID:      docID,
		Description:     description,
		CreatedAt:       time.Now().UTC(),
		DocumentVersion: doc.Version.Counter,
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, payloadKey(docID, name), payload, 0)
	pipe.Del(ctx, metaKey(docID, name))
	pipe.HSet(ctx, metaKey(docID, name), encodeMeta(meta))
	pipe.ZAdd(ctx, indexKey(docID), redis.Z{Score: float64(meta.CreatedAt.UnixNano()), Member: name})
	if _, err := pipe.Exec(ctx); err != nil {
		return snapshot.Meta{}, fmt.Errorf("redis create snapshot %q: %w", name, err)
	}

	if s.MaxSnapshots > 0 {
		if err := s.evictOverflow(ctx, docID); err != nil {
			return snapshot.Meta{}, err
		}
	}
	return meta, nil
}

func (s *Store) evictOverflow(ctx context.Context, docID document.DocumentID) error {
	names, err := s.rdb.ZRange(ctx, indexKey(docID), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("redis evict overflow: %w", err)
	}
	overflow := len(names) - s.MaxSnapshots
	for i := 0; i < overflow; i++ {
		if err := s.Delete(ctx, docID, names[i]); err != nil {
			return err
		}
	}
	return nil
}

// Restore decodes and returns a fresh Document from the named snapshot.
func (s *Store) Restore(ctx context.Context, docID document.DocumentID, name string) (*document.Document, error) {
	payload, err := s.rdb.Get(ctx, payloadKey(docID, name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, snapshot.ErrNotFound
		}
		return nil, fmt.Errorf("redis restore snapshot %q: %w", name, err)
	}
	return document.UnmarshalDocumentJSON(payload)
}

// Exists reports whether a snapshot with the given name exists for docID.
func (s *Store) Exists(ctx context.Context, docID document.DocumentID, name string) (bool, error) {
	n, err := s.rdb.Exists(ctx, metaKey(docID, name)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists snapshot %q: %w", name, err)
	}
	return n > 0, nil
}

// Get returns a snapshot's metadata without decoding its payload.
func (s *Store) Get(ctx context.Context, docID document.DocumentID, name string) (snapshot.Meta, error) {
	fields, err := s.rdb.HGetAll(ctx, metaKey(docID, name)).Result()
	if err != nil {
		return snapshot.Meta{}, fmt.Errorf("redis get snapshot %q: %w", name, err)
	}
	if len(fields) == 0 {
		return snapshot.Meta{}, snapshot.ErrNotFound
	}
	return decodeMeta(docID, name, fields)
}

// List returns every snapshot for docID, newest first.
func (s *Store) List(ctx context.Context, docID document.DocumentID) ([]snapshot.Meta, error) {
	names, err := s.rdb.ZRange(ctx, indexKey(docID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list snapshots: %w", err)
	}
	out := make([]snapshot.Meta, 0, len(names))
	for _, name := range names {
		meta, err := s.Get(ctx, docID, name)
		if errors.Is(err, snapshot.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Delete removes a snapshot by name.
func (s *Store) Delete(ctx context.Context, docID document.DocumentID, name string) error {
	exists, err := s.Exists(ctx, docID, name)
	if err != nil {
		return err
	}
	if !exists {
		return snapshot.ErrNotFound
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, payloadKey(docID, name))
	pipe.Del(ctx, metaKey(docID, name))
	pipe.ZRem(ctx, indexKey(docID), name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete snapshot %q: %w", name, err)
	}
	return nil
}

// Count returns the number of snapshots currently stored for docID.
func (s *Store) Count(ctx context.Context, docID document.DocumentID) (int, error) {
	n, err := s.rdb.ZCard(ctx, indexKey(docID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis count snapshots: %w", err)
	}
	return int(n), nil
}

func encodeMeta(meta snapshot.Meta) map[string]any {
	fields := map[string]any{
		"created_at":       meta.CreatedAt.Format(time.RFC3339Nano),
		"document_version": strconv.FormatUint(meta.DocumentVersion, 10),
	}
	if meta.Description != nil {
		fields["description"] = *meta.Description
	}
	return fields
}

func decodeMeta(docID document.DocumentID, name string, fields map[string]string) (snapshot.Meta, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return snapshot.Meta{}, fmt.Errorf("redis decode snapshot meta %q: %w", name, err)
	}
	version, err := strconv.ParseUint(fields["document_version"], 10, 64)
	if err != nil {
		return snapshot.Meta{}, fmt.Errorf("redis decode snapshot meta %q: %w", name, err)
	}
	meta := snapshot.Meta{
		ID:              name,
		DocumentID:      docID,
		CreatedAt:       createdAt,
		DocumentVersion: version,
	}
	if desc, ok := fields["description"]; ok {
		meta.Description = &desc
	}
	return meta, nil
}
