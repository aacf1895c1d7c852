// Package lifecycle owns the ephemeral object lifecycle: ingesting uploads,
// deciding whether an object is still deliverable, serving it back, and
// destroying it once its time or download budget runs out.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Object is the metadata record for one uploaded file. All fields except
// Downloads are immutable after ingest; Downloads only grows, and only on
// successful retrievals.
type Object struct {
	ID           string    // public, URL-safe capability token
	Filename     string    // original display name
	StoragePath  string    // blob location, unrelated to ID
	Salt         []byte    // key derivation salt, lives and dies with the blob
	Password     string    // "" = unprotected
	MaxDownloads int       // 0 = unlimited
	Downloads    int
	ExpireAt     time.Time
	CreatedAt    time.Time
}

// Protected reports whether a password gates this object.
func (o *Object) Protected() bool { return o.Password != "" }

// ObjectStore is the durable metadata collaborator. Implementations must
// make ClaimDownload atomic per record: two concurrent claims for the last
// remaining download must not both succeed.
type ObjectStore interface {
	CreateObject(ctx context.Context, obj *Object) error
	// GetObject returns (nil, nil) for an unknown id.
	GetObject(ctx context.Context, id string) (*Object, error)
	// ClaimDownload increments the download counter if and only if the
	// quota is not yet exhausted, returning the new count and whether the
	// claim succeeded.
	ClaimDownload(ctx context.Context, id string) (downloads int, claimed bool, err error)
	// DeleteObject is idempotent; deleting an unknown id is not an error.
	DeleteObject(ctx context.Context, id string) error
	ListObjects(ctx context.Context) ([]*Object, error)
	// ListStoragePaths returns every storage path referenced by metadata,
	// for the orphan sweep.
	ListStoragePaths(ctx context.Context) ([]string, error)
}

// BlobStore is the byte-addressable medium holding encrypted payloads.
type BlobStore interface {
	Write(ctx context.Context, path string, data []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	// Delete is idempotent.
	Delete(ctx context.Context, path string) error
	List(ctx context.Context) ([]BlobInfo, error)
}

// BlobInfo describes one stored blob. The modification time lets the
// orphan sweep leave blobs from in-flight ingests alone.
type BlobInfo struct {
	Path    string
	ModTime time.Time
}

// ErrNotFound covers unknown, expired and quota-exhausted objects alike.
// Collapsing them hides whether an id ever existed.
var ErrNotFound = errors.New("object not found")

// ValidationError rejects a bad ingest request (empty upload, bad TTL,
// disallowed extension). User-visible.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
