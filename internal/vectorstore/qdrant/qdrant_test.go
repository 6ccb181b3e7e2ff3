package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrag/internal/domain"
	"medrag/internal/vectorstore"
)

var _ vectorstore.Storage = (*Storage)(nil)

// fakeQdrant keeps one collection in memory and answers the REST calls used
// by Storage.
type fakeQdrant struct {
	mu      sync.Mutex
	exists  bool
	size    int
	points  map[string]map[string]any
	apiKeys []string
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))
	path := strings.TrimPrefix(r.URL.Path, "/collections/cardio")
	switch {
	case r.Method == http.MethodGet && path == "":
		if !f.exists {
			http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"result":{}}`))
	case r.Method == http.MethodPut && path == "":
		var body struct {
			Vectors struct {
				Size     int    `json:"size"`
				Distance string `json:"distance"`
			} `json:"vectors"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.exists, f.size = true, body.Vectors.Size
		f.points = map[string]map[string]any{}
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.Method == http.MethodPut && path == "/points":
		var body struct {
			Points []map[string]any `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, p := range body.Points {
			f.points[p["id"].(string)] = p
		}
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	case r.Method == http.MethodPost && path == "/points/count":
		if !f.exists {
			http.Error(w, "missing", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"count": len(f.points)}})
	case r.Method == http.MethodPost && path == "/points/search":
		var res []map[string]any
		for _, p := range f.points {
			res = append(res, map[string]any{"score": 0.9, "payload": p["payload"]})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": res})
	case r.Method == http.MethodPost && path == "/points/scroll":
		if !f.exists {
			http.Error(w, "missing", http.StatusNotFound)
			return
		}
		var pts []map[string]any
		for _, p := range f.points {
			pts = append(pts, map[string]any{"id": p["id"], "payload": p["payload"]})
			break
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"points": pts}})
	case r.Method == http.MethodPost && path == "/points/payload":
		var body struct {
			Payload map[string]any `json:"payload"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, p := range f.points {
			payload := p["payload"].(map[string]any)
			for k, v := range body.Payload {
				payload[k] = v
			}
		}
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	case r.Method == http.MethodDelete && path == "":
		if !f.exists {
			http.Error(w, "missing", http.StatusNotFound)
			return
		}
		f.exists = false
		f.points = nil
		_, _ = w.Write([]byte(`{"result":true}`))
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusBadRequest)
	}
}

func TestStorageRoundTrip(t *testing.T) {
	fake := &fakeQdrant{}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	ctx := context.Background()

	s := NewStorage(Config{URL: srv.URL + "/", APIKey: "k", Collection: "cardio"})
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.Init(ctx, 3))
	assert.Equal(t, 3, fake.size)
	require.NoError(t, s.Init(ctx, 3), "existing collection is kept")

	chunk := domain.Chunk{DocumentID: "Articles/mi", ChunkID: "Articles/mi/0001", Index: 1, Title: "MI", Text: "troponin rise"}
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{chunk, chunk}, [][]float64{{1, 0, 0}, {1, 0, 0}}))
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "same chunk id maps to the same point")

	got, err := s.Search(ctx, []float64{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, chunk, got[0].Chunk)
	assert.InDelta(t, 0.9, got[0].Score, 1e-9)

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))
	for _, k := range fake.apiKeys {
		assert.Equal(t, "k", k)
	}
}

func TestStorageErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	s := NewStorage(Config{URL: srv.URL, Collection: "cardio"})

	_, err := s.Search(context.Background(), []float64{1}, 1)
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
	assert.ErrorIs(t, s.Upsert(context.Background(), []domain.Chunk{{}}, nil), vectorstore.ErrLength)
}

func TestPointIDDeterministic(t *testing.T) {
	assert.Equal(t, PointID("a/0001"), PointID("a/0001"))
	assert.NotEqual(t, PointID("a/0001"), PointID("a/0002"))
	assert.Len(t, PointID("x"), 36)
}

func TestFingerprint(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(&fakeQdrant{})
	defer srv.Close()
	s := NewStorage(Config{URL: srv.URL, Collection: "cardio"})

	fp, err := s.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Empty(t, fp, "missing collection")

	require.NoError(t, s.Init(ctx, 2))
	chunks := []domain.Chunk{{ChunkID: "a/0001", Text: "one"}, {ChunkID: "a/0002", Text: "two"}}
	require.NoError(t, s.Upsert(ctx, chunks, [][]float64{{1, 0}, {0, 1}}))
	fp, err = s.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Empty(t, fp)

	require.NoError(t, s.SetFingerprint(ctx, "abc"))
	fp, err = s.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", fp)

	require.NoError(t, s.Clear(ctx))
	fp, err = s.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Empty(t, fp)
}
