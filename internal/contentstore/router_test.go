package contentstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/meta/1.json" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `{"name":"alice"}`)
	}))
	t.Cleanup(srv.Close)

	ctx := context.Background()
	primary := NewMemoryStore()
	ref, err := primary.Put(ctx, []byte("primary doc"))
	require.NoError(t, err)

	ipfs := NewMemoryStore()
	cid, err := ipfs.Put(ctx, []byte("ipfs doc"))
	require.NoError(t, err)

	r := NewRouter(primary, RouterOptions{IPFS: ipfs})

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{name: "bare ref", target: ref, want: "primary doc"},
		{name: "https url", target: srv.URL + "/meta/1.json", want: `{"name":"alice"}`},
		{name: "ipfs uri", target: "ipfs://" + cid, want: "ipfs doc"},
		{name: "ipfs uri with ipfs prefix", target: "ipfs://ipfs/" + cid, want: "ipfs doc"},
		{name: "base64 data uri", target: "data:application/json;base64,eyJuYW1lIjoiYm9iIn0=", want: `{"name":"bob"}`},
		{name: "plain data uri", target: "data:application/json,%7B%22name%22%3A%22carol%22%7D", want: `{"name":"carol"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Get(ctx, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestRouter_GetErrors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	r := NewRouter(NewMemoryStore(), RouterOptions{})
	ctx := context.Background()

	_, err := r.Get(ctx, srv.URL+"/missing.json")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Get(ctx, "unknown-ref")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Get(ctx, "data:no-comma")
	assert.Error(t, err)
}

func TestRouter_PutUsesPrimary(t *testing.T) {
	primary := NewMemoryStore()
	ipfs := NewMemoryStore()
	r := NewRouter(primary, RouterOptions{IPFS: ipfs})

	_, err := r.Put(context.Background(), []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, 1, primary.Len())
	assert.Equal(t, 0, ipfs.Len())
}
