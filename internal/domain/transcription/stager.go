package transcription

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/telecare/telecare/internal/platform/auth"
	"github.com/telecare/telecare/internal/platform/blobstore"
)

// Stager issues write-once upload grants for raw audio blobs, keeping large
// binary transfer out of the job orchestration path.
type Stager struct {
	store  blobstore.SignedStore
	bucket string
}

func NewStager(store blobstore.SignedStore, bucket string) *Stager {
	return &Stager{store: store, bucket: bucket}
}

// StageGrant is the caller-visible output of a successful stage request.
type StageGrant struct {
	Path      string `json:"path"`
	SignedURL string `json:"signed_url"`
	Token     string `json:"token"`
	Bucket    string `json:"bucket"`
}

// Stage derives a namespaced, collision-resistant storage path for the caller
// and requests a write-once upload grant for it. Overwrite is never allowed,
// so re-staging the same logical upload always yields a distinct path.
func (s *Stager) Stage(ctx context.Context, ident auth.Identity, filename, contentType string) (*StageGrant, error) {
	if s.bucket == "" {
		return nil, newError(KindConfiguration, StageValidate, "storage bucket not configured", nil)
	}

	path := derivePath(ident, filename, contentType)
	grant, err := s.store.RequestWriteGrant(ctx, s.bucket, path, blobstore.WriteGrantOptions{Overwrite: false})
	if err != nil {
		return nil, newError(KindUpstream, StageValidate, "blob store refused upload grant", err)
	}

	return &StageGrant{
		Path:      path,
		SignedURL: grant.URL,
		Token:     grant.Token,
		Bucket:    s.bucket,
	}, nil
}

func derivePath(ident auth.Identity, filename, contentType string) string {
	userID := ident.UserID
	if userID == "" {
		userID = "anonymous"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("recordings/%s/%s/%d-%s.%s",
		ident.Role(), userID, time.Now().UnixMilli(), suffix, inferExtension(filename, contentType))
}

// inferExtension prefers the filename's extension, then the content type's
// subtype, then "bin".
func inferExtension(filename, contentType string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 && i < len(filename)-1 {
		return strings.ToLower(filename[i+1:])
	}
	if i := strings.Index(contentType, "/"); i >= 0 && i < len(contentType)-1 {
		sub := contentType[i+1:]
		if j := strings.IndexAny(sub, ";+"); j >= 0 {
			sub = sub[:j]
		}
		if sub = strings.TrimSpace(sub); sub != "" {
			return strings.ToLower(sub)
		}
	}
	return "bin"
}
