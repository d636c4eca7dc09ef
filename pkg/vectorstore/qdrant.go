package vectorstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	newssparkerrors "github.com/lzrong0203/newsspark/pkg/errors"
)

// QdrantConfig configures the Qdrant backend.
type QdrantConfig struct {
	Host   string
	Port   int // gRPC port, default 6334
	APIKey string
	UseTLS bool
}

// QdrantBackend is the Backend implementation for a standalone Qdrant
// server, for deployments that outgrow the embedded chromem-go default.
type QdrantBackend struct {
	client *qdrant.Client
	config QdrantConfig
}

func NewQdrantBackend(cfg QdrantConfig) (*QdrantBackend, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, newssparkerrors.NewStoreError("vector", "open",
			fmt.Sprintf("failed to create Qdrant client for %s:%d (is Qdrant running? docker run -p 6333:6333 -p 6334:6334 qdrant/qdrant)", cfg.Host, cfg.Port), err)
	}

	return &QdrantBackend{client: client, config: cfg}, nil
}

func (b *QdrantBackend) Name() string { return "qdrant" }

func (b *QdrantBackend) ensureCollection(ctx context.Context, collection string, dim int) error {
	exists, err := b.client.CollectionExists(ctx, collection)
	if err != nil {
		return newssparkerrors.NewStoreError("vector", "get_collection", "failed to check collection existence", err)
	}
	if exists {
		return nil
	}
	err = b.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return newssparkerrors.NewStoreError("vector", "create_collection", "failed to create collection "+collection, err)
	}
	return nil
}

func (b *QdrantBackend) Upsert(ctx context.Context, collection, id string, vector []float32, content string, metadata map[string]string) error {
	if err := b.ensureCollection(ctx, collection, len(vector)); err != nil {
		return err
	}

	payload := make(map[string]*qdrant.Value, len(metadata)+1)
	for key, value := range metadata {
		val, err := qdrant.NewValue(value)
		if err != nil {
			return newssparkerrors.NewStoreError("vector", "upsert", "failed to convert metadata value for key "+key, err)
		}
		payload[key] = val
	}
	contentVal, err := qdrant.NewValue(content)
	if err != nil {
		return newssparkerrors.NewStoreError("vector", "upsert", "failed to convert content value", err)
	}
	payload["content"] = contentVal

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(id),
		Vectors: qdrant.NewVectors(vector...),
		Payload: payload,
	}

	_, err = b.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return newssparkerrors.NewStoreError("vector", "upsert", "failed to upsert point", err)
	}
	return nil
}

func (b *QdrantBackend) Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error) {
	exists, err := b.client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, newssparkerrors.NewStoreError("vector", "search", "failed to check collection existence", err)
	}
	if !exists {
		return []Result{}, nil
	}

	searchResult, err := b.client.GetPointsClient().Search(ctx, &qdrant.SearchPoints{
		CollectionName: collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, newssparkerrors.NewStoreError("vector", "search", "query failed", err)
	}

	return convertQdrantResults(searchResult.Result), nil
}

func (b *QdrantBackend) Delete(ctx context.Context, collection, id string) error {
	_, err := b.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{
					Ids: []*qdrant.PointId{{PointIdOptions: &qdrant.PointId_Uuid{Uuid: id}}},
				},
			},
		},
	})
	if err != nil {
		return newssparkerrors.NewStoreError("vector", "delete", "failed to delete point "+id, err)
	}
	return nil
}

// DeleteCollection is idempotent: deleting a collection that never
// existed is not an error, matching the Backend contract.
func (b *QdrantBackend) DeleteCollection(ctx context.Context, collection string) error {
	exists, err := b.client.CollectionExists(ctx, collection)
	if err != nil {
		return newssparkerrors.NewStoreError("vector", "delete_collection", "failed to check collection existence", err)
	}
	if !exists {
		return nil
	}
	if err := b.client.DeleteCollection(ctx, collection); err != nil {
		return newssparkerrors.NewStoreError("vector", "delete_collection", "failed to delete collection "+collection, err)
	}
	return nil
}

func convertQdrantResults(points []*qdrant.ScoredPoint) []Result {
	results := make([]Result, 0, len(points))
	for _, point := range points {
		var id string
		if point.Id != nil && point.Id.PointIdOptions != nil {
			switch idType := point.Id.PointIdOptions.(type) {
			case *qdrant.PointId_Uuid:
				id = idType.Uuid
			case *qdrant.PointId_Num:
				id = fmt.Sprintf("%d", idType.Num)
			}
		}

		metadata := make(map[string]string)
		content := ""
		for key, value := range point.Payload {
			if sv, ok := value.Kind.(*qdrant.Value_StringValue); ok {
				if key == "content" {
					content = sv.StringValue
					continue
				}
				metadata[key] = sv.StringValue
			}
		}

		results = append(results, Result{
			ID:       id,
			Score:    float64(point.Score),
			Content:  content,
			Metadata: metadata,
		})
	}
	return results
}

var _ Backend = (*QdrantBackend)(nil)
