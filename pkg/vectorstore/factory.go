package vectorstore

import (
	"net"
	"strconv"

	newssparkerrors "github.com/lzrong0203/newsspark/pkg/errors"
)

// BackendConfig carries the subset of configuration each concrete
// Backend needs, decoupled from pkg/config so this package stays
// free of an import cycle.
type BackendConfig struct {
	Backend   string // chromem, qdrant, pinecone
	Path      string // chromem persistence directory
	Addr      string // qdrant gRPC address, host:port
	APIKey    string // pinecone
	Host      string // pinecone api host override
	IndexName string // pinecone index name
}

// NewBackend constructs the Backend named by cfg.Backend.
func NewBackend(cfg BackendConfig) (Backend, error) {
	switch cfg.Backend {
	case "", "chromem":
		return NewChromemBackend(cfg.Path)
	case "qdrant":
		qcfg := QdrantConfig{}
		if cfg.Addr != "" {
			host, portStr, err := net.SplitHostPort(cfg.Addr)
			if err != nil {
				return nil, newssparkerrors.NewStoreError("vector", "open", "invalid qdrant addr "+cfg.Addr, err)
			}
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return nil, newssparkerrors.NewStoreError("vector", "open", "invalid qdrant port in addr "+cfg.Addr, err)
			}
			qcfg.Host = host
			qcfg.Port = port
		}
		return NewQdrantBackend(qcfg)
	case "pinecone":
		return NewPineconeBackend(PineconeConfig{
			APIKey:    cfg.APIKey,
			Host:      cfg.Host,
			IndexName: cfg.IndexName,
		})
	default:
		return nil, newssparkerrors.NewStoreError("vector", "open", "unsupported vector store backend "+cfg.Backend, nil)
	}
}
