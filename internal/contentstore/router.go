package contentstore

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tipfeed/internal/feed"
)

// RouterOptions configures a Router.
type RouterOptions struct {
	// IPFS serves ipfs:// URIs. When nil they go to the backend.
	IPFS Backend
	// Client fetches http(s) URIs.
	Client *http.Client
	// RateLimit bounds http(s) fetches per second. Zero means unlimited.
	RateLimit float64
}

// Router is the feed.ContentStore used by the application. It writes to a
// single backend and resolves the references and URIs found on chain:
//
//	https://host/path    fetched over HTTP
//	ipfs://<cid>[/path]  IPFS backend (or the primary backend)
//	data:...             decoded inline
//	<ref>                primary backend
type Router struct {
	backend Backend
	ipfs    Backend
	client  *http.Client
	limiter *rate.Limiter
}

var _ feed.ContentStore = (*Router)(nil)

// NewRouter creates a Router over backend.
func NewRouter(backend Backend, opts RouterOptions) *Router {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	ipfs := opts.IPFS
	if ipfs == nil {
		ipfs = backend
	}
	return &Router{
		backend: backend,
		ipfs:    ipfs,
		client:  client,
		limiter: newLimiter(opts.RateLimit),
	}
}

// Put stores data in the primary backend.
func (r *Router) Put(ctx context.Context, data []byte) (string, error) {
	return r.backend.Put(ctx, data)
}

// Get resolves refOrURI and returns the document it names.
func (r *Router) Get(ctx context.Context, refOrURI string) ([]byte, error) {
	target := strings.TrimSpace(refOrURI)
	lower := strings.ToLower(target)

	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return r.fetchURL(ctx, target)
	case strings.HasPrefix(lower, "ipfs://"):
		cid := target[len("ipfs://"):]
		cid = strings.TrimPrefix(cid, "ipfs/")
		return r.ipfs.Get(ctx, cid)
	case strings.HasPrefix(lower, "data:"):
		return decodeDataURI(target)
	default:
		return r.backend.Get(ctx, target)
	}
}

func (r *Router) fetchURL(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", rawURL, err)
	}
	data, err := doLimited(r.client, r.limiter, req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	return data, nil
}

// decodeDataURI decodes an RFC 2397 data URI, as returned by contracts that
// keep token metadata on chain.
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok {
		return nil, fmt.Errorf("malformed data uri")
	}

	if strings.HasSuffix(strings.ToLower(header), ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode data uri: %w", err)
		}
		return data, nil
	}

	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to unescape data uri: %w", err)
	}
	return []byte(text), nil
}
