package vectorstore

import (
	"context"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	newssparkerrors "github.com/lzrong0203/newsspark/pkg/errors"
)

// PineconeConfig configures the Pinecone backend. Pinecone indexes are
// provisioned out of band (console or API), so a single pre-existing
// index is configured here; per-user collections map onto namespaces
// within that one index rather than separate indexes.
type PineconeConfig struct {
	APIKey    string
	Host      string
	IndexName string
}

// PineconeBackend is the Backend implementation for Pinecone's managed
// service, for deployments that want a hosted vector database instead of
// the embedded chromem-go default or a self-hosted Qdrant.
type PineconeBackend struct {
	client    *pinecone.Client
	indexHost string
}

func NewPineconeBackend(cfg PineconeConfig) (*PineconeBackend, error) {
	if cfg.APIKey == "" {
		return nil, newssparkerrors.NewStoreError("vector", "open", "pinecone api key is required", nil)
	}

	clientParams := pinecone.NewClientParams{ApiKey: cfg.APIKey}
	if cfg.Host != "" {
		clientParams.Host = cfg.Host
	}
	client, err := pinecone.NewClient(clientParams)
	if err != nil {
		return nil, newssparkerrors.NewStoreError("vector", "open", "failed to create pinecone client", err)
	}

	indexName := cfg.IndexName
	if indexName == "" {
		indexName = "newsspark"
	}
	idx, err := client.DescribeIndex(context.Background(), indexName)
	if err != nil {
		return nil, newssparkerrors.NewStoreError("vector", "open", "failed to describe pinecone index "+indexName, err)
	}

	return &PineconeBackend{client: client, indexHost: idx.Host}, nil
}

func (b *PineconeBackend) Name() string { return "pinecone" }

// collection is used as the Pinecone namespace within the single
// configured index.
func (b *PineconeBackend) conn(namespace string) (*pinecone.IndexConnection, error) {
	conn, err := b.client.Index(pinecone.NewIndexConnParams{Host: b.indexHost, Namespace: namespace})
	if err != nil {
		return nil, newssparkerrors.NewStoreError("vector", "connect", "failed to create index connection", err)
	}
	return conn, nil
}

func (b *PineconeBackend) Upsert(ctx context.Context, collection, id string, vector []float32, content string, metadata map[string]string) error {
	conn, err := b.conn(collection)
	if err != nil {
		return err
	}
	defer conn.Close()

	fields := make(map[string]interface{}, len(metadata)+1)
	for k, v := range metadata {
		fields[k] = v
	}
	fields["content"] = content

	meta, err := structpb.NewStruct(fields)
	if err != nil {
		return newssparkerrors.NewStoreError("vector", "upsert", "failed to convert metadata", err)
	}

	_, err = conn.UpsertVectors(ctx, []*pinecone.Vector{{Id: id, Values: vector, Metadata: meta}})
	if err != nil {
		return newssparkerrors.NewStoreError("vector", "upsert", "failed to upsert vector", err)
	}
	return nil
}

func (b *PineconeBackend) Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error) {
	conn, err := b.conn(collection)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	resp, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, newssparkerrors.NewStoreError("vector", "search", "query failed", err)
	}
	return convertPineconeResults(resp.Matches), nil
}

func (b *PineconeBackend) Delete(ctx context.Context, collection, id string) error {
	conn, err := b.conn(collection)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.DeleteVectorsById(ctx, []string{id}); err != nil {
		return newssparkerrors.NewStoreError("vector", "delete", "failed to delete vector", err)
	}
	return nil
}

// DeleteCollection deletes every vector in the namespace. Pinecone has no
// namespace-drop call in this client; deleting by an empty filter removes
// everything under the namespace instead.
func (b *PineconeBackend) DeleteCollection(ctx context.Context, collection string) error {
	conn, err := b.conn(collection)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.DeleteVectorsByFilter(ctx, nil); err != nil {
		return newssparkerrors.NewStoreError("vector", "delete_collection", "failed to clear namespace "+collection, err)
	}
	return nil
}

func convertPineconeResults(matches []*pinecone.ScoredVector) []Result {
	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		if m.Vector == nil {
			continue
		}
		metadata := make(map[string]string)
		content := ""
		if m.Vector.Metadata != nil {
			for k, v := range m.Vector.Metadata.AsMap() {
				s, ok := v.(string)
				if !ok {
					continue
				}
				if k == "content" {
					content = s
					continue
				}
				metadata[k] = s
			}
		}
		results = append(results, Result{
			ID:       m.Vector.Id,
			Score:    float64(m.Score),
			Content:  content,
			Metadata: metadata,
		})
	}
	return results
}

var _ Backend = (*PineconeBackend)(nil)
