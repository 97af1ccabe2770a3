package contentstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// IPFSOptions configures an IPFSStore.
type IPFSOptions struct {
	// APIURL is the Kubo RPC endpoint used to add documents.
	APIURL string
	// GatewayURL is the HTTP gateway used to fetch documents.
	GatewayURL string
	// Token is sent as a bearer token to both endpoints when set.
	Token string
	// RateLimit is the maximum number of requests per second. Zero means
	// unlimited.
	RateLimit float64
	Client    *http.Client
}

// IPFSStore is a Backend that adds documents through a Kubo RPC endpoint and
// reads them back through an HTTP gateway. References are CIDs.
type IPFSStore struct {
	apiURL     string
	gatewayURL string
	token      string
	client     *http.Client
	limiter    *rate.Limiter
}

var _ Backend = (*IPFSStore)(nil)

// NewIPFSStore creates an IPFSStore. A store without an API URL is read-only.
func NewIPFSStore(opts IPFSOptions) (*IPFSStore, error) {
	if opts.APIURL == "" && opts.GatewayURL == "" {
		return nil, fmt.Errorf("ipfs api url or gateway url is required")
	}
	gateway := opts.GatewayURL
	if gateway == "" {
		gateway = opts.APIURL
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &IPFSStore{
		apiURL:     strings.TrimRight(opts.APIURL, "/"),
		gatewayURL: strings.TrimRight(gateway, "/"),
		token:      opts.Token,
		client:     client,
		limiter:    newLimiter(opts.RateLimit),
	}, nil
}

// Put adds data as a single file and returns its CID.
func (s *IPFSStore) Put(ctx context.Context, data []byte) (string, error) {
	if s.apiURL == "" {
		return "", fmt.Errorf("ipfs add: no api url configured")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "document.json")
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	endpoint := s.apiURL + "/api/v0/add?pin=true&cid-version=1"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("failed to build add request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.do(req)
	if err != nil {
		return "", fmt.Errorf("ipfs add: %w", err)
	}

	cid := gjson.GetBytes(resp, "Hash").String()
	if cid == "" {
		return "", fmt.Errorf("ipfs add: response has no Hash field")
	}
	return cid, nil
}

// Get fetches a CID, optionally followed by a path, from the gateway.
func (s *IPFSStore) Get(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.Trim(ref, "/")
	if ref == "" {
		return nil, fmt.Errorf("%w: empty cid", ErrNotFound)
	}

	segments := strings.Split(ref, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	endpoint := s.gatewayURL + "/ipfs/" + strings.Join(segments, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}

	data, err := s.do(req)
	if err != nil {
		return nil, fmt.Errorf("ipfs get %s: %w", ref, err)
	}
	return data, nil
}

func (s *IPFSStore) do(req *http.Request) ([]byte, error) {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	return doLimited(s.client, s.limiter, req)
}

// newLimiter returns a limiter allowing perSecond requests, or nil when
// perSecond is not positive.
func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// doLimited waits for the limiter, sends req and returns the bounded body of
// a 2xx response. A 404 maps to ErrNotFound.
func doLimited(client *http.Client, limiter *rate.Limiter, req *http.Request) ([]byte, error) {
	if limiter != nil {
		if err := limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("document exceeds %d bytes", maxDocumentSize)
	}
	return data, nil
}
