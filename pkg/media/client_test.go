package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	return &Client{
		httpClient: http.DefaultClient,
		baseURL:    serverURL,
		apiKey:     "server-key",
		now:        func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) },
	}
}

func TestGenerate(t *testing.T) {
	var gotReq *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg bytes"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	result, err := client.Generate(context.Background(), GenerateRequest{
		Prompt: "a red fox",
		Model:  "flux",
		Width:  1024,
		Height: 768,
		Seed:   -1,
	})

	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg bytes"), result.Data)
	assert.Equal(t, "image/jpeg", result.ContentType)

	require.NotNil(t, gotReq)
	assert.Equal(t, "Bearer server-key", gotReq.Header.Get("Authorization"))
	assert.Contains(t, gotReq.URL.Path, "a red fox")

	q := gotReq.URL.Query()
	assert.Equal(t, "flux", q.Get("model"))
	assert.Equal(t, "1024", q.Get("width"))
	assert.Equal(t, "768", q.Get("height"))
	assert.Equal(t, "-1", q.Get("seed"))
	assert.Equal(t, "true", q.Get("nologo"))
	assert.Equal(t, "true", q.Get("nofeed"))
	assert.NotEmpty(t, q.Get("t"))
}

func TestGenerateRequestKeyOverridesServerKey(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.Generate(context.Background(), GenerateRequest{
		Prompt: "x", Model: "flux", Width: 1, Height: 1, APIKey: "user-key",
	})

	require.NoError(t, err)
	assert.Equal(t, "Bearer user-key", gotAuth)
}

func TestGenerateNoKey(t *testing.T) {
	client := newTestClient("http://unused")
	client.apiKey = ""

	_, err := client.Generate(context.Background(), GenerateRequest{
		Prompt: "x", Model: "flux", Width: 1, Height: 1,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}

func TestGenerateVideoOptions(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("mp4 bytes"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	result, err := client.Generate(context.Background(), GenerateRequest{
		Prompt:      "waves",
		Model:       DefaultVideoModel,
		Width:       1024,
		Height:      1024,
		Duration:    "5",
		AspectRatio: "16:9",
	})

	require.NoError(t, err)
	assert.Equal(t, "video/mp4", result.ContentType)
	assert.Equal(t, "5", gotQuery["duration"][0])
	assert.Equal(t, "16:9", gotQuery["aspectRatio"][0])
}

func TestEdit(t *testing.T) {
	var gotReq *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("edited"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	result, err := client.Edit(context.Background(), GenerateRequest{
		Prompt:         "make it blue",
		Model:          "klein",
		Width:          1024,
		Height:         1024,
		Seed:           42,
		SourceImageURL: "https://cdn.example.com/a.png",
	})

	require.NoError(t, err)
	assert.Equal(t, []byte("edited"), result.Data)

	q := gotReq.URL.Query()
	assert.Equal(t, "klein", q.Get("model"))
	assert.Equal(t, "https://cdn.example.com/a.png", q.Get("image"))
	assert.Equal(t, "image/*", gotReq.Header.Get("Accept"))
	// Антикэш параметр нужен только батч-генерации
	assert.Empty(t, q.Get("t"))
}

func TestEditWithoutKeyAllowed(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	client.apiKey = ""

	_, err := client.Edit(context.Background(), GenerateRequest{
		Prompt: "x", Model: "klein", Width: 1, Height: 1,
		SourceImageURL: "https://e/a.png",
	})

	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.Generate(context.Background(), GenerateRequest{
		Prompt: "x", Model: "flux", Width: 1, Height: 1,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "model overloaded")
}
