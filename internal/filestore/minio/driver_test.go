package minio

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kincraig/wanderlog/internal/errs"
	"github.com/kincraig/wanderlog/internal/filestore"
	"github.com/kincraig/wanderlog/internal/logger"
)

// Integration tests against a live MinIO. Set MINIO_TEST_ENDPOINT (plus
// MINIO_TEST_ACCESS_KEY / MINIO_TEST_SECRET_KEY, default minioadmin) to run:
//
//	MINIO_TEST_ENDPOINT=localhost:9000 go test ./internal/filestore/minio/
func testDriver(t *testing.T) *Driver {
	t.Helper()

	endpoint := os.Getenv("MINIO_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_TEST_ENDPOINT not set")
	}

	cfg := &filestore.Config{
		Endpoint:  endpoint,
		AccessKey: envOr("MINIO_TEST_ACCESS_KEY", "minioadmin"),
		SecretKey: envOr("MINIO_TEST_SECRET_KEY", "minioadmin"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	d, err := New(ctx, cfg)
	require.NoError(t, err)

	exists, err := d.BucketExists(ctx, testBucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, d.MakeBucket(ctx, testBucket))
	}
	return d
}

const testBucket = "wanderlog-test"

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func TestDriver_UploadPresignRoundTrip(t *testing.T) {
	d := testDriver(t)
	ctx := context.Background()

	log := logger.New(&logger.Config{Level: "fatal"})
	svc := filestore.NewService(d, testBucket, os.Getenv("MINIO_TEST_ENDPOINT"), log)
	require.NoError(t, svc.EnsureBucket(ctx))

	content := []byte("round trip payload")
	up, err := svc.Upload(ctx, bytes.NewReader(content), int64(len(content)), "trip.txt", "text/plain", "it")
	require.NoError(t, err)
	t.Cleanup(func() { svc.Delete(ctx, up.Key) })

	url, err := svc.URL(ctx, up.Key, time.Minute)
	require.NoError(t, err)

	// The presigned URL must resolve to byte-identical content.
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestDriver_StatMissingObject(t *testing.T) {
	d := testDriver(t)

	_, err := d.StatObject(context.Background(), testBucket, "it/never-existed.bin")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestDriver_ListEmptyPrefix(t *testing.T) {
	d := testDriver(t)

	objects, err := d.ListObjects(context.Background(), testBucket, filestore.ListOptions{
		Prefix:    "it/no-such-prefix/",
		Recursive: true,
	})
	require.NoError(t, err)
	assert.Empty(t, objects)
}
