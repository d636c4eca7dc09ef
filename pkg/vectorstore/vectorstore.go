// Package vectorstore provides embedding-indexed similarity search over
// per-user collections. The default backend is chromem-go (embedded, no
// external service); qdrant and pinecone are pluggable alternatives behind
// the same Backend interface.
package vectorstore

import (
	"context"
	"strings"
)

// Result is one similarity-search hit.
type Result struct {
	ID       string
	Score    float64
	Content  string
	Metadata map[string]string
}

// Backend is the pluggable vector-database surface every provider
// implements. Metadata values are strings, the common denominator across
// chromem-go, Qdrant, and Pinecone's payload encodings.
type Backend interface {
	Upsert(ctx context.Context, collection, id string, vector []float32, content string, metadata map[string]string) error
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error)
	Delete(ctx context.Context, collection, id string) error
	DeleteCollection(ctx context.Context, collection string) error
	Name() string
}

const (
	CollectionKindCorrections   = "corrections"
	CollectionKindConversations = "conversations"
)

// CollectionName builds the sanitized per-user collection name:
// {user_id}_{kind}, truncated to 63 characters with '.' replaced by '_'.
func CollectionName(userID, kind string) string {
	name := userID + "_" + kind
	name = strings.ReplaceAll(name, ".", "_")
	if len(name) > 63 {
		name = name[:63]
	}
	return name
}

// Store is the domain-level facade over a Backend: it knows about
// per-user collection naming and the two collection kinds this codebase
// uses, so callers never construct a raw collection name themselves.
type Store struct {
	backend Backend
}

func New(backend Backend) *Store {
	return &Store{backend: backend}
}

func (s *Store) UpsertCorrection(ctx context.Context, userID, id string, vector []float32, content string, metadata map[string]string) error {
	return s.backend.Upsert(ctx, CollectionName(userID, CollectionKindCorrections), id, vector, content, metadata)
}

func (s *Store) SearchCorrections(ctx context.Context, userID string, vector []float32, topK int) ([]Result, error) {
	return s.backend.Search(ctx, CollectionName(userID, CollectionKindCorrections), vector, topK)
}

func (s *Store) UpsertConversation(ctx context.Context, userID, id string, vector []float32, content string, metadata map[string]string) error {
	return s.backend.Upsert(ctx, CollectionName(userID, CollectionKindConversations), id, vector, content, metadata)
}

func (s *Store) SearchConversations(ctx context.Context, userID string, vector []float32, topK int) ([]Result, error) {
	return s.backend.Search(ctx, CollectionName(userID, CollectionKindConversations), vector, topK)
}

// DeleteUserCollections removes both of userID's collections. Missing
// collections are not an error, matching the backend's idempotent delete
// contract.
func (s *Store) DeleteUserCollections(ctx context.Context, userID string) error {
	if err := s.backend.DeleteCollection(ctx, CollectionName(userID, CollectionKindCorrections)); err != nil {
		return err
	}
	return s.backend.DeleteCollection(ctx, CollectionName(userID, CollectionKindConversations))
}
