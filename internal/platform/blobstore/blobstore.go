// Package blobstore provides signed-grant blob storage for visit audio
// recordings. Clients never talk to this API with raw audio bytes: they
// request a time-limited write grant, upload directly against the blob
// store, and the transcription worker later requests a read grant for the
// same path. The package defines the SignedStore interface, an in-memory
// implementation suitable for development and testing, an HTTP-backed
// implementation for a remote storage service, and Echo handlers that
// redeem in-memory grants.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

var (
	ErrObjectExists   = errors.New("object already exists at path")
	ErrObjectNotFound = errors.New("object not found")
	ErrGrantNotFound  = errors.New("grant not found or expired")
	ErrGrantConsumed  = errors.New("upload grant already used")
)

// DefaultWriteGrantTTL bounds how long a staged upload URL stays valid.
const DefaultWriteGrantTTL = 15 * time.Minute

// WriteGrant is a time-limited capability to upload bytes to one exact path.
type WriteGrant struct {
	Bucket    string    `json:"bucket"`
	Path      string    `json:"path"`
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ReadGrant is a time-limited capability to download one stored object.
type ReadGrant struct {
	Bucket    string    `json:"bucket"`
	Path      string    `json:"path"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// WriteGrantOptions controls write grant issuance. Overwrite stays false
// everywhere in this codebase: recording paths are write-once.
type WriteGrantOptions struct {
	Overwrite bool
	TTL       time.Duration
}

// SignedStore is the contract the transcription pipeline consumes.
type SignedStore interface {
	RequestWriteGrant(ctx context.Context, bucket, path string, opts WriteGrantOptions) (*WriteGrant, error)
	RequestReadGrant(ctx context.Context, bucket, path string, ttl time.Duration) (*ReadGrant, error)
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

type storedObject struct {
	data        []byte
	contentType string
	createdAt   time.Time
}

type grantTarget struct {
	bucket string
	path   string
}

// InMemoryStore is a thread-safe SignedStore for development and tests.
// Grant tokens live in a TTL cache; objects live in a plain map keyed by
// bucket/path.
type InMemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*storedObject

	baseURL string
	grants  *gocache.Cache
}

// NewInMemoryStore returns a ready-to-use InMemoryStore. baseURL is the
// externally visible prefix used to build grant URLs (e.g.
// "http://localhost:8000").
func NewInMemoryStore(baseURL string) *InMemoryStore {
	return &InMemoryStore{
		objects: make(map[string]*storedObject),
		baseURL: baseURL,
		grants:  gocache.New(DefaultWriteGrantTTL, time.Minute),
	}
}

func objectKey(bucket, path string) string {
	return bucket + "/" + path
}

// RequestWriteGrant issues a single-use upload token for the exact path.
// An existing object at the path is rejected unless Overwrite is set,
// which keeps recording paths write-once.
func (s *InMemoryStore) RequestWriteGrant(_ context.Context, bucket, path string, opts WriteGrantOptions) (*WriteGrant, error) {
	if bucket == "" || path == "" {
		return nil, fmt.Errorf("bucket and path are required")
	}

	s.mu.RLock()
	_, exists := s.objects[objectKey(bucket, path)]
	s.mu.RUnlock()
	if exists && !opts.Overwrite {
		return nil, ErrObjectExists
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultWriteGrantTTL
	}

	token := uuid.New().String()
	s.grants.Set("w:"+token, grantTarget{bucket: bucket, path: path}, ttl)

	return &WriteGrant{
		Bucket:    bucket,
		Path:      path,
		URL:       fmt.Sprintf("%s/api/v1/storage/upload/%s", s.baseURL, token),
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}, nil
}

// RequestReadGrant issues a download token for a stored object.
func (s *InMemoryStore) RequestReadGrant(_ context.Context, bucket, path string, ttl time.Duration) (*ReadGrant, error) {
	s.mu.RLock()
	_, exists := s.objects[objectKey(bucket, path)]
	s.mu.RUnlock()
	if !exists {
		return nil, ErrObjectNotFound
	}

	if ttl <= 0 {
		ttl = time.Hour
	}

	token := uuid.New().String()
	s.grants.Set("r:"+token, grantTarget{bucket: bucket, path: path}, ttl)

	return &ReadGrant{
		Bucket:    bucket,
		Path:      path,
		URL:       fmt.Sprintf("%s/api/v1/storage/object/%s", s.baseURL, token),
		ExpiresAt: time.Now().UTC().Add(ttl),
	}, nil
}

// CompleteUpload redeems a write grant token and stores the object. The
// token is single-use, and a concurrent upload to the same path loses to
// whichever write landed first.
func (s *InMemoryStore) CompleteUpload(token string, contentType string, data []byte) (string, error) {
	v, ok := s.grants.Get("w:" + token)
	if !ok {
		return "", ErrGrantNotFound
	}
	target := v.(grantTarget)
	s.grants.Delete("w:" + token)

	key := objectKey(target.bucket, target.path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[key]; exists {
		return "", ErrObjectExists
	}
	s.objects[key] = &storedObject{
		data:        data,
		contentType: contentType,
		createdAt:   time.Now().UTC(),
	}
	return target.path, nil
}

// Open redeems a read grant token and returns the object bytes.
func (s *InMemoryStore) Open(token string) ([]byte, string, error) {
	v, ok := s.grants.Get("r:" + token)
	if !ok {
		return nil, "", ErrGrantNotFound
	}
	target := v.(grantTarget)

	s.mu.RLock()
	obj, exists := s.objects[objectKey(target.bucket, target.path)]
	s.mu.RUnlock()
	if !exists {
		return nil, "", ErrObjectNotFound
	}
	return obj.data, obj.contentType, nil
}

// Exists reports whether an object is stored at bucket/path.
func (s *InMemoryStore) Exists(bucket, path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[objectKey(bucket, path)]
	return ok
}

// Put stores an object directly, bypassing the grant flow. Test helper.
func (s *InMemoryStore) Put(bucket, path, contentType string, data []byte) error {
	key := objectKey(bucket, path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[key]; exists {
		return ErrObjectExists
	}
	s.objects[key] = &storedObject{
		data:        data,
		contentType: contentType,
		createdAt:   time.Now().UTC(),
	}
	return nil
}
