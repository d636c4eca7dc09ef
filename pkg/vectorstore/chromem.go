package vectorstore

import (
	"context"
	"fmt"
	"os"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	newssparkerrors "github.com/lzrong0203/newsspark/pkg/errors"
)

// ChromemBackend is the default embedded backend: pure Go, no external
// service, optional gzip-compressed file persistence.
type ChromemBackend struct {
	db            *chromem.DB
	persistPath   string
	embeddingFunc chromem.EmbeddingFunc

	mu          sync.RWMutex
	collections map[string]*chromem.Collection
}

func NewChromemBackend(persistPath string) (*ChromemBackend, error) {
	var db *chromem.DB

	if persistPath != "" {
		if err := os.MkdirAll(persistPath, 0755); err != nil {
			return nil, newssparkerrors.NewStoreError("vector", "open", "failed to create persist directory", err)
		}
		dbPath := persistPath + "/vectors.gob.gz"
		if _, err := os.Stat(dbPath); err == nil {
			loaded, err := chromem.NewPersistentDB(dbPath, true)
			if err != nil {
				return nil, newssparkerrors.NewStoreError("vector", "open", "failed to load persisted database", err)
			}
			db = loaded
		} else {
			db = chromem.NewDB()
		}
	} else {
		db = chromem.NewDB()
	}

	// Embeddings are always precomputed by the LLM client before reaching
	// this backend; this identity function should never actually be
	// invoked by chromem-go's query path, since Search always supplies a
	// vector directly.
	identityEmbed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("vectorstore: embedding function invoked but vectors are always precomputed")
	}

	return &ChromemBackend{
		db:            db,
		persistPath:   persistPath,
		embeddingFunc: identityEmbed,
		collections:   make(map[string]*chromem.Collection),
	}, nil
}

func (b *ChromemBackend) Name() string { return "chromem" }

func (b *ChromemBackend) getCollection(collection string) (*chromem.Collection, error) {
	b.mu.RLock()
	if col, ok := b.collections[collection]; ok {
		b.mu.RUnlock()
		return col, nil
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if col, ok := b.collections[collection]; ok {
		return col, nil
	}

	col, err := b.db.GetOrCreateCollection(collection, nil, b.embeddingFunc)
	if err != nil {
		return nil, newssparkerrors.NewStoreError("vector", "get_collection", "failed to get or create collection "+collection, err)
	}
	b.collections[collection] = col
	return col, nil
}

func (b *ChromemBackend) Upsert(ctx context.Context, collection, id string, vector []float32, content string, metadata map[string]string) error {
	col, err := b.getCollection(collection)
	if err != nil {
		return err
	}
	doc := chromem.Document{ID: id, Content: content, Metadata: metadata, Embedding: vector}
	if err := col.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return newssparkerrors.NewStoreError("vector", "upsert", "failed to upsert document", err)
	}
	return b.persist()
}

func (b *ChromemBackend) Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error) {
	col, err := b.getCollection(collection)
	if err != nil {
		return nil, err
	}

	// An empty collection returns an empty result set without issuing a
	// query, per the contract: chromem-go's QueryEmbedding rejects n > the
	// collection's document count.
	n := topK
	if count := col.Count(); count < n {
		n = count
	}
	if n == 0 {
		return []Result{}, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, newssparkerrors.NewStoreError("vector", "search", "query failed", err)
	}

	out := make([]Result, 0, len(results))
	for _, r := range results {
		out = append(out, Result{ID: r.ID, Score: float64(r.Similarity), Content: r.Content, Metadata: r.Metadata})
	}
	return out, nil
}

func (b *ChromemBackend) Delete(ctx context.Context, collection, id string) error {
	col, err := b.getCollection(collection)
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, id); err != nil {
		return newssparkerrors.NewStoreError("vector", "delete", "delete failed", err)
	}
	return b.persist()
}

// DeleteCollection is idempotent: deleting a collection that was never
// created is not an error.
func (b *ChromemBackend) DeleteCollection(ctx context.Context, collection string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.db.DeleteCollection(collection); err != nil {
		return nil
	}
	delete(b.collections, collection)
	return b.persist()
}

func (b *ChromemBackend) persist() error {
	if b.persistPath == "" {
		return nil
	}
	if err := b.db.Export(b.persistPath+"/vectors.gob.gz", true, ""); err != nil {
		return newssparkerrors.NewStoreError("vector", "persist", "failed to persist database", err)
	}
	return nil
}
