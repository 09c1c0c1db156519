package filestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kincraig/wanderlog/internal/errs"
	"github.com/kincraig/wanderlog/internal/logger"
)

// memStore is an in-memory Store used to exercise the Service boundary.
type memStore struct {
	buckets map[string]bool
	objects map[string][]byte // bucket/key -> content
	types   map[string]string

	pingErr error
	putErr  error
	listErr error
}

func newMemStore() *memStore {
	return &memStore{
		buckets: map[string]bool{},
		objects: map[string][]byte{},
		types:   map[string]string{},
	}
}

func (m *memStore) path(bucket, key string) string { return bucket + "/" + key }

func (m *memStore) Ping(ctx context.Context) error { return m.pingErr }
func (m *memStore) Close() error                   { return nil }

func (m *memStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return m.buckets[bucket], nil
}

func (m *memStore) MakeBucket(ctx context.Context, bucket string) error {
	m.buckets[bucket] = true
	return nil
}

func (m *memStore) Put(ctx context.Context, bucket, key string, content io.Reader, size int64, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return errs.Wrap(errs.ErrKindQueryFailed, "content read fault", err)
	}
	m.objects[m.path(bucket, key)] = data
	m.types[m.path(bucket, key)] = contentType
	return nil
}

func (m *memStore) StatObject(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	data, ok := m.objects[m.path(bucket, key)]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "no such key")
	}
	return &ObjectInfo{Key: key, Size: int64(len(data)), ContentType: m.types[m.path(bucket, key)]}, nil
}

func (m *memStore) PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("http://store.local/%s/%s?ttl=%d", bucket, key, int(ttl.Seconds())), nil
}

func (m *memStore) Remove(ctx context.Context, bucket, key string) error {
	delete(m.objects, m.path(bucket, key))
	return nil
}

func (m *memStore) ListObjects(ctx context.Context, bucket string, opts ListOptions) ([]ObjectInfo, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []ObjectInfo
	for p := range m.objects {
		key := strings.TrimPrefix(p, bucket+"/")
		if strings.HasPrefix(key, opts.Prefix) {
			out = append(out, ObjectInfo{Key: key})
		}
	}
	return out, nil
}

func newTestService(store Store) *Service {
	svc := NewService(store, "journal-photos", "localhost:9000", logger.New(&logger.Config{Level: "fatal"}))
	svc.now = func() time.Time { return time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC) }
	svc.newID = func() string { return "fixedid" }
	return svc
}

func TestService_Upload(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	content := []byte("jpeg bytes")
	up, err := svc.Upload(context.Background(), bytes.NewReader(content), int64(len(content)), "My Trip!.jpg", "image/jpeg", "")
	require.NoError(t, err)

	assert.Equal(t, "journal/2026-08-24/fixedid_My_Trip_.jpg", up.Key)
	assert.Contains(t, up.URL, up.Key)

	// Content round-trips byte-identical.
	stored := store.objects["journal-photos/"+up.Key]
	assert.Equal(t, content, stored)
	assert.Equal(t, "image/jpeg", store.types["journal-photos/"+up.Key])
}

func TestService_UploadDefaultsContentType(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	up, err := svc.Upload(context.Background(), strings.NewReader("x"), 1, "notes.txt", "", "trips")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(up.Key, "trips/"))
	assert.Equal(t, "application/octet-stream", store.types["journal-photos/"+up.Key])
}

func TestService_UploadRequiresFilename(t *testing.T) {
	svc := newTestService(newMemStore())

	_, err := svc.Upload(context.Background(), strings.NewReader("x"), 1, "", "", "")
	assert.True(t, errs.IsInvalidInput(err))
}

func TestService_UploadFault(t *testing.T) {
	store := newMemStore()
	store.putErr = errs.New(errs.ErrKindConnectionFailed, "store down")
	svc := newTestService(store)

	_, err := svc.Upload(context.Background(), strings.NewReader("x"), 1, "a.jpg", "", "")
	assert.True(t, errs.IsConnectionFailed(err))
}

func TestService_URL(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	up, err := svc.Upload(context.Background(), strings.NewReader("x"), 1, "a.jpg", "", "")
	require.NoError(t, err)

	url, err := svc.URL(context.Background(), up.Key, time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url, "ttl=3600")
}

func TestService_URLDefaultExpiry(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	up, err := svc.Upload(context.Background(), strings.NewReader("x"), 1, "a.jpg", "", "")
	require.NoError(t, err)

	url, err := svc.URL(context.Background(), up.Key, 0)
	require.NoError(t, err)
	assert.Contains(t, url, fmt.Sprintf("ttl=%d", int(DefaultURLExpiry.Seconds())))
}

func TestService_URLMissingObject(t *testing.T) {
	svc := newTestService(newMemStore())

	_, err := svc.URL(context.Background(), "journal/nope.jpg", time.Hour)
	assert.True(t, errs.IsNotFound(err))
}

func TestService_DeleteMissingObject(t *testing.T) {
	svc := newTestService(newMemStore())

	// Failure is a boolean, never a panic or escaped error.
	assert.False(t, svc.Delete(context.Background(), "journal/nope.jpg"))
}

func TestService_DeleteExistingObject(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	up, err := svc.Upload(context.Background(), strings.NewReader("x"), 1, "a.jpg", "", "")
	require.NoError(t, err)

	assert.True(t, svc.Delete(context.Background(), up.Key))
	_, statErr := store.StatObject(context.Background(), "journal-photos", up.Key)
	assert.True(t, errs.IsNotFound(statErr))
}

func TestService_ListEmptyPrefix(t *testing.T) {
	svc := newTestService(newMemStore())

	files := svc.List(context.Background(), "nothing-here/")
	require.NotNil(t, files)
	assert.Empty(t, files)
}

func TestService_ListBackendFault(t *testing.T) {
	store := newMemStore()
	store.listErr = errs.New(errs.ErrKindConnectionFailed, "store down")
	svc := newTestService(store)

	// Callers get an empty list, not an error.
	files := svc.List(context.Background(), "journal/")
	require.NotNil(t, files)
	assert.Empty(t, files)
}

func TestService_EnsureBucketIdempotent(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	require.NoError(t, svc.EnsureBucket(context.Background()))
	assert.True(t, store.buckets["journal-photos"])
	require.NoError(t, svc.EnsureBucket(context.Background()))
}
