// Package mongostore provides a MongoDB implementation of the snapshot
// store.
//
// This implementation persists snapshot payloads to MongoDB for durability
// across restarts, suitable for production deployments.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/antonio7098/unified-content-protocol/internal/document"
	"github.com/antonio7098/unified-content-protocol/internal/snapshot"
)

// Store is a MongoDB implementation of the snapshot.Store interface.
// It persists snapshot payloads to MongoDB for durability across restarts.
type Store struct {
	collection *mongo.Collection
}

// Compile-time check that Store implements snapshot.Store.
var _ snapshot.Store = (*Store)(nil)

// New creates a new MongoDB snapshot store using the provided collection.
// The collection should be from a connected MongoDB client.
func New(collection *mongo.Collection) *Store {
	return &Store{collection: collection}
}

// snapshotDocument is the MongoDB document representation of a Snapshot.
type snapshotDocument struct {
	ID              string `bson:"_id"`
	DocumentID      string `bson:"document_id"`
	Description     *string `bson:"description,omitempty"`
	CreatedAt       int64  `bson:"created_at_unix_nano"`
	DocumentVersion uint64 `bson:"document_version"`
	Payload         []byte `bson:"payload"`
}

func compositeID(docID document.DocumentID, name string) string {
	return string(docID) + "/" + name
}

// Create captures doc under name in MongoDB, upserting any existing
// snapshot with the same name. This store applies no per-document snapshot
// cap and never evicts older snapshots.
func (s *Store) Create(ctx context.Context, docID document.DocumentID, name string, description *string, doc *document.Document) (snapshot.Meta, error) {
	payload, err := doc.MarshalJSON()
	if err != nil {
		return snapshot.Meta{}, err
	}
	if name == "" {
		name = bson.NewObjectID().Hex()
	}
	meta := snapshot.Meta{
		ID:              name,
		DocumentID:      docID,
		Description:     description,
		CreatedAt:       document.Now(),
		DocumentVersion: doc.Version.Counter,
	}
	sd := snapshotDocument{
		ID:              compositeID(docID, name),
		DocumentID:      string(docID),
		Description:     description,
		CreatedAt:       meta.CreatedAt.UnixNano(),
		DocumentVersion: doc.Version.Counter,
		Payload:         payload,
	}
	opts := options.Replace().SetUpsert(true)
	_, err = s.collection.ReplaceOne(ctx, bson.M{"_id": sd.ID}, sd, opts)
	if err != nil {
		return snapshot.Meta{}, fmt.Errorf("mongodb create snapshot %q: %w", name, err)
	}
	return meta, nil
}

// Restore decodes and returns a fresh Document from the named snapshot.
func (s *Store) Restore(ctx context.Context, docID document.DocumentID, name string) (*document.Document, error) {
	var sd snapshotDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": compositeID(docID, name)}).Decode(&sd)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, snapshot.ErrNotFound
		}
		return nil, fmt.Errorf("mongodb restore snapshot %q: %w", name, err)
	}
	return document.UnmarshalDocumentJSON(sd.Payload)
}

// Exists reports whether a snapshot with the given name exists for docID.
func (s *Store) Exists(ctx context.Context, docID document.DocumentID, name string) (bool, error) {
	n, err := s.collection.CountDocuments(ctx, bson.M{"_id": compositeID(docID, name)})
	if err != nil {
		return false, fmt.Errorf("mongodb exists snapshot %q: %w", name, err)
	}
	return n > 0, nil
}

// Get returns a snapshot's metadata without decoding its payload.
func (s *Store) Get(ctx context.Context, docID document.DocumentID, name string) (snapshot.Meta, error) {
	projection := bson.M{"payload": 0}
	var sd snapshotDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": compositeID(docID, name)}, options.FindOne().SetProjection(projection)).Decode(&sd)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return snapshot.Meta{}, snapshot.ErrNotFound
		}
		return snapshot.Meta{}, fmt.Errorf("mongodb get snapshot %q: %w", name, err)
	}
	return toMeta(docID, name, sd), nil
}

// List returns every snapshot for docID, newest first.
func (s *Store) List(ctx context.Context, docID document.DocumentID) ([]snapshot.Meta, error) {
	projection := bson.M{"payload": 0}
	findOpts := options.Find().SetProjection(projection).SetSort(bson.M{"created_at_unix_nano": -1})
	cursor, err := s.collection.Find(ctx, bson.M{"document_id": string(docID)}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("mongodb list snapshots: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []snapshotDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongodb list snapshots decode: %w", err)
	}
	out := make([]snapshot.Meta, len(docs))
	for i, sd := range docs {
		out[i] = toMeta(docID, snapshotName(sd.ID, docID), sd)
	}
	return out, nil
}

// Delete removes a snapshot by name.
func (s *Store) Delete(ctx context.Context, docID document.DocumentID, name string) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": compositeID(docID, name)})
	if err != nil {
		return fmt.Errorf("mongodb delete snapshot %q: %w", name, err)
	}
	if result.DeletedCount == 0 {
		return snapshot.ErrNotFound
	}
	return nil
}

// Count returns the number of snapshots currently stored for docID.
func (s *Store) Count(ctx context.Context, docID document.DocumentID) (int, error) {
	n, err := s.collection.CountDocuments(ctx, bson.M{"document_id": string(docID)})
	if err != nil {
		return 0, fmt.Errorf("mongodb count snapshots: %w", err)
	}
	return int(n), nil
}

func toMeta(docID document.DocumentID, name string, sd snapshotDocument) snapshot.Meta {
	return snapshot.Meta{
		ID:              name,
		DocumentID:      docID,
		Description:     sd.Description,
		CreatedAt:       timeFromUnixNano(sd.CreatedAt),
		DocumentVersion: sd.DocumentVersion,
	}
}

func timeFromUnixNano(ns int64) time.Time { return time.Unix(0, ns).UTC() }

func snapshotName(id string, docID document.DocumentID) string {
	prefix := string(docID) + "/"
	if len(id) > len(prefix) && id[:len(prefix)] == prefix {
		return id[len(prefix):]
	}
	return id
}
