package minio

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	miniolib "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securelink-backend/internal/shared/storage/object"
)

// fakeMinio answers object HEAD/PUT/DELETE for a single bucket.
type fakeMinio struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func (f *fakeMinio) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/vault/")
	switch r.Method {
	case http.MethodHead:
		data, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(data)))
		w.Header().Set("ETag", `"etag"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		buf := make([]byte, r.ContentLength)
		_, _ = r.Body.Read(buf)
		f.objects[key] = buf
		f.puts++
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T, fake *fakeMinio) *Store {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	client, err := miniolib.New(u.Host, &miniolib.Options{
		Creds:        credentials.NewStaticV4("minio", "minio123", ""),
		Region:       "us-east-1",
		BucketLookup: miniolib.BucketLookupPath,
	})
	require.NoError(t, err)
	return newStore(client, Options{Bucket: "vault", URLTTL: 5 * time.Minute})
}

func TestExists(t *testing.T) {
	fake := &fakeMinio{objects: map[string][]byte{"documents/u/1_a.png": []byte("png")}}
	store := newTestStore(t, fake)

	ok, err := store.Exists(context.Background(), "documents/u/1_a.png")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(context.Background(), "documents/u/2_b.png")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutIfAbsentRefusesExistingKey(t *testing.T) {
	fake := &fakeMinio{objects: map[string][]byte{"documents/u/1_a.png": []byte("png")}}
	store := newTestStore(t, fake)

	_, err := store.Put(context.Background(), object.PutInput{
		Key:      "documents/u/1_a.png",
		Body:     strings.NewReader("new"),
		Size:     3,
		IfAbsent: true,
	})
	assert.ErrorIs(t, err, object.ErrAlreadyExists)
	assert.Equal(t, 0, fake.puts)
}

func TestURLMissingObject(t *testing.T) {
	store := newTestStore(t, &fakeMinio{objects: map[string][]byte{}})

	_, err := store.URL(context.Background(), "documents/u/missing.pdf")
	assert.ErrorIs(t, err, object.ErrNotFound)
}

func TestURLPresignsExistingObject(t *testing.T) {
	fake := &fakeMinio{objects: map[string][]byte{"documents/u/1_a.png": []byte("png")}}
	store := newTestStore(t, fake)

	raw, err := store.URL(context.Background(), "documents/u/1_a.png")
	require.NoError(t, err)
	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/vault/documents/u/1_a.png", parsed.Path)
	assert.Equal(t, "300", parsed.Query().Get("X-Amz-Expires"))
}
