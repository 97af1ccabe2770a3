package contentstore

import (
	"context"
	"fmt"

	"tipfeed/internal/config"
)

// NewBackendFromConfig creates the Backend selected by cfg.Type.
func NewBackendFromConfig(ctx context.Context, cfg config.ContentStoreConfig) (Backend, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "filesystem", "":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("content_store.fs_root is required for the filesystem store")
		}
		return NewFileSystemStore(cfg.FSRoot)
	case "ipfs":
		return NewIPFSStore(IPFSOptions{
			APIURL:     cfg.IPFSAPIURL,
			GatewayURL: cfg.IPFSGatewayURL,
			Token:      cfg.IPFSToken,
			RateLimit:  cfg.IPFSRateLimit,
		})
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown content store type: %q", cfg.Type)
	}
}

// NewStoreFromConfig creates the configured backend wrapped in a Router.
// When a gateway is configured for a non-IPFS backend, ipfs:// URIs are read
// through it.
func NewStoreFromConfig(ctx context.Context, cfg config.ContentStoreConfig) (*Router, error) {
	backend, err := NewBackendFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := RouterOptions{RateLimit: cfg.IPFSRateLimit}
	if cfg.Type != "ipfs" && cfg.IPFSGatewayURL != "" {
		gateway, err := NewIPFSStore(IPFSOptions{
			GatewayURL: cfg.IPFSGatewayURL,
			Token:      cfg.IPFSToken,
			RateLimit:  cfg.IPFSRateLimit,
		})
		if err != nil {
			return nil, err
		}
		opts.IPFS = gateway
	}
	return NewRouter(backend, opts), nil
}
