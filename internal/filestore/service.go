package filestore

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/kincraig/wanderlog/internal/errs"
	"github.com/kincraig/wanderlog/internal/logger"
)

// DefaultURLExpiry is how long presigned URLs stay valid when the caller
// does not specify an expiry.
const DefaultURLExpiry = 7 * 24 * time.Hour

// Service layers journal-photo semantics over a Store: namespaced key
// generation, presigned URL issuance, and the bucket lifecycle. It holds
// only configuration and is safe for concurrent use.
type Service struct {
	store    Store
	bucket   string
	endpoint string
	log      *logger.Logger

	// Injection points for deterministic tests.
	now   func() time.Time
	newID func() string
}

// NewService wraps store with upload/URL/delete/list operations against one
// bucket. endpoint is only reported by Endpoint for status probes.
func NewService(store Store, bucket, endpoint string, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		bucket:   bucket,
		endpoint: endpoint,
		log:      log.Component("filestore"),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// Bucket returns the configured bucket name.
func (s *Service) Bucket() string { return s.bucket }

// Endpoint returns the configured storage endpoint, for status reporting.
func (s *Service) Endpoint() string { return s.endpoint }

// Ping reports whether the storage backend is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// EnsureBucket checks that the bucket exists and creates it if absent.
// Idempotent; called once at process startup, not per-request.
func (s *Service) EnsureBucket(ctx context.Context) error {
	exists, err := s.store.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := s.store.MakeBucket(ctx, s.bucket); err != nil {
		return err
	}
	s.log.Info().Str("bucket", s.bucket).Msg("created bucket")
	return nil
}

// Upload describes a stored object: its key and a presigned access URL.
type Upload struct {
	Key string
	URL string
}

// Upload writes content to the store under a generated key
// (<folder>/<date>/<id>_<sanitized-name>.<ext>) and returns the key together
// with a presigned URL valid for DefaultURLExpiry.
func (s *Service) Upload(ctx context.Context, content io.Reader, size int64, filename, contentType, folder string) (*Upload, error) {
	if filename == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "upload requires a filename")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := ObjectKey(folder, filename, s.newID(), s.now())

	if err := s.store.Put(ctx, s.bucket, key, content, size, contentType); err != nil {
		return nil, err
	}

	url, err := s.store.PresignGetURL(ctx, s.bucket, key, DefaultURLExpiry)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("key", key).Int64("size", size).Msg("uploaded object")
	return &Upload{Key: key, URL: url}, nil
}

// URL returns a presigned URL for an existing object. expiry <= 0 falls back
// to DefaultURLExpiry. Fails with a not-found error when the key is absent.
func (s *Service) URL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = DefaultURLExpiry
	}

	// Presigning is purely local, so probe the object first — a URL for a
	// missing key would only fail later in the client's hands.
	if _, err := s.store.StatObject(ctx, s.bucket, key); err != nil {
		return "", err
	}

	return s.store.PresignGetURL(ctx, s.bucket, key, expiry)
}

// Delete removes the object at key. It reports success as a boolean and
// never lets a backend fault escape the boundary.
func (s *Service) Delete(ctx context.Context, key string) bool {
	// A remove on a missing key is not a success: probe first.
	if _, err := s.store.StatObject(ctx, s.bucket, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("delete skipped")
		return false
	}
	if err := s.store.Remove(ctx, s.bucket, key); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("delete failed")
		return false
	}
	s.log.Info().Str("key", key).Msg("deleted object")
	return true
}

// List returns the keys matching prefix. On a backend fault it returns an
// empty list rather than an error, to keep callers resilient.
func (s *Service) List(ctx context.Context, prefix string) []string {
	objects, err := s.store.ListObjects(ctx, s.bucket, ListOptions{Prefix: prefix, Recursive: true})
	if err != nil {
		s.log.Error().Err(err).Str("prefix", prefix).Msg("list failed")
		return []string{}
	}

	keys := make([]string, len(objects))
	for i, obj := range objects {
		keys[i] = obj.Key
	}
	return keys
}
