package attachments_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petalcrumb/pos-engine/internal/attachments"
)

func TestHTTPStoreUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/uploads", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		t.Cleanup(func() { _ = file.Close() })
		require.Equal(t, "design.jpg", header.Filename)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"att-1","url":"https://media.example/att-1.jpg"}}`))
	}))
	t.Cleanup(srv.Close)

	store := &attachments.HTTPStore{BaseURL: srv.URL}
	att, err := store.Upload(context.Background(), attachments.Upload{
		FileName:    "design.jpg",
		ContentType: "image/jpeg",
		Data:        []byte{0xff, 0xd8, 0xff},
	})
	require.NoError(t, err)
	require.Equal(t, "att-1", att.ID)
	require.Equal(t, "https://media.example/att-1.jpg", att.URL)
	require.False(t, att.Placeholder)
}

func TestHTTPStoreUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	store := &attachments.HTTPStore{BaseURL: srv.URL}
	_, err := store.Upload(context.Background(), attachments.Upload{FileName: "x.png", Data: []byte{1}})
	require.Error(t, err)
}

func TestPlaceholderFallback(t *testing.T) {
	att, err := attachments.NoopStore{}.Upload(context.Background(), attachments.Upload{FileName: "cake.png"})
	require.NoError(t, err)
	require.True(t, att.Placeholder)
	require.Equal(t, attachments.PlaceholderURL, att.URL)
	require.NotEmpty(t, att.ID)
}
