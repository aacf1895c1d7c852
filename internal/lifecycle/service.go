package lifecycle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"burnlink/internal/cryptox"
)

// DefaultTTL applies when an upload does not specify its own lifetime.
const DefaultTTL = 24 * time.Hour

// Service orchestrates ingest and retrieval against the metadata store,
// the blob medium and the object cipher.
type Service struct {
	store  ObjectStore
	blobs  BlobStore
	cipher *cryptox.Cipher

	// now is swappable for tests.
	now func() time.Time
}

// NewService wires a lifecycle service. ttl handling, policy evaluation
// and purging all live here; callers only see ids, payloads and Decisions.
func NewService(store ObjectStore, blobs BlobStore, cipher *cryptox.Cipher) *Service {
	return &Service{
		store:  store,
		blobs:  blobs,
		cipher: cipher,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// IngestRequest describes one upload.
type IngestRequest struct {
	Data         []byte
	Filename     string
	Password     string        // "" = unprotected
	TTL          time.Duration // 0 = DefaultTTL
	MaxDownloads int           // 0 = unlimited
}

// Ingest encrypts and persists an upload and returns its public id.
// The id doubles as a capability token: guessing it must be infeasible,
// so it carries 16 bytes of entropy.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (string, error) {
	if len(req.Data) == 0 {
		return "", &ValidationError{Field: "file", Message: "empty upload"}
	}
	if req.TTL < 0 {
		return "", &ValidationError{Field: "ttl", Message: "must be positive"}
	}
	if req.MaxDownloads < 0 {
		return "", &ValidationError{Field: "max_downloads", Message: "must not be negative"}
	}

	filename := sanitizeFilename(req.Filename)
	if err := validateFilename(filename); err != nil {
		return "", err
	}

	ttl := req.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}

	id, err := newObjectID()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}

	salt, ciphertext, err := s.cipher.Seal(req.Data, id)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}

	// The storage path is derived from a second random token so the
	// medium never learns the public id.
	path := "objects/" + uuid.NewString()

	if err := s.blobs.Write(ctx, path, ciphertext); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}

	now := s.now()
	obj := &Object{
		ID:           id,
		Filename:     filename,
		StoragePath:  path,
		Salt:         salt,
		Password:     req.Password,
		MaxDownloads: req.MaxDownloads,
		ExpireAt:     now.Add(ttl),
		CreatedAt:    now,
	}
	if err := s.store.CreateObject(ctx, obj); err != nil {
		// Don't leave an unreferenced blob behind.
		if derr := s.blobs.Delete(ctx, path); derr != nil {
			log.Printf("service=lifecycle msg=%q path=%s err=%v", "blob_rollback_failed", path, derr)
		}
		return "", fmt.Errorf("create metadata: %w", err)
	}

	return id, nil
}

// Download is a successfully retrieved payload.
type Download struct {
	Filename string
	Data     []byte
	// RemainingDownloads after this retrieval; -1 means unlimited.
	RemainingDownloads int
}

// Retrieve serves an object back if policy allows it.
//
// On Expired or QuotaExhausted the object is purged and ErrNotFound is
// returned; the two cases are indistinguishable from an id that never
// existed. PasswordRequired is reported through the Evaluation so the
// caller can prompt. After a deliverable decrypt the download is claimed
// atomically; if that claim consumed the last quota slot the object is
// destroyed immediately rather than waiting for the sweeper.
func (s *Service) Retrieve(ctx context.Context, id, password string) (*Download, Evaluation, error) {
	obj, err := s.store.GetObject(ctx, id)
	if err != nil {
		return nil, Evaluation{}, fmt.Errorf("lookup: %w", err)
	}
	if obj == nil {
		return nil, Evaluation{}, ErrNotFound
	}

	ev := Evaluate(obj, s.now(), password)
	switch ev.Decision {
	case Expired, QuotaExhausted:
		s.purge(ctx, obj)
		return nil, ev, ErrNotFound
	case PasswordRequired:
		return nil, ev, nil
	}

	ciphertext, err := s.blobs.Read(ctx, obj.StoragePath)
	if err != nil {
		return nil, ev, fmt.Errorf("read blob: %w", err)
	}

	plaintext, err := s.cipher.Open(ciphertext, obj.ID, obj.Salt)
	if err != nil {
		// Corrupted blob or missing/mismatched salt. Terminal for this
		// retrieval; re-deriving the same key will fail the same way.
		return nil, ev, err
	}

	downloads, claimed, err := s.store.ClaimDownload(ctx, obj.ID)
	if err != nil {
		return nil, ev, fmt.Errorf("claim download: %w", err)
	}
	if !claimed {
		// A concurrent retrieval took the final slot between our policy
		// check and the claim.
		s.purge(ctx, obj)
		return nil, Evaluation{Decision: QuotaExhausted}, ErrNotFound
	}

	remaining := -1
	if obj.MaxDownloads > 0 {
		remaining = obj.MaxDownloads - downloads
		if remaining <= 0 {
			// That was the last permitted download.
			s.purge(ctx, obj)
			remaining = 0
		}
	}

	return &Download{
		Filename:           obj.Filename,
		Data:               plaintext,
		RemainingDownloads: remaining,
	}, ev, nil
}

// Info describes an object without serving its payload.
type Info struct {
	Filename           string
	Downloads          int
	RemainingDownloads int // -1 = unlimited
	RemainingSeconds   int64
	Protected          bool
}

// Describe returns metadata for the share page. It runs the same policy
// evaluation as Retrieve but never touches the payload or the download
// counter.
func (s *Service) Describe(ctx context.Context, id, password string) (*Info, Evaluation, error) {
	obj, err := s.store.GetObject(ctx, id)
	if err != nil {
		return nil, Evaluation{}, fmt.Errorf("lookup: %w", err)
	}
	if obj == nil {
		return nil, Evaluation{}, ErrNotFound
	}

	ev := Evaluate(obj, s.now(), password)
	switch ev.Decision {
	case Expired, QuotaExhausted:
		s.purge(ctx, obj)
		return nil, ev, ErrNotFound
	case PasswordRequired:
		return nil, ev, nil
	}

	return &Info{
		Filename:           obj.Filename,
		Downloads:          obj.Downloads,
		RemainingDownloads: ev.RemainingDownloads,
		RemainingSeconds:   ev.RemainingSeconds,
		Protected:          obj.Protected(),
	}, ev, nil
}

// purge removes an object's blob and metadata record. Each deletion is
// attempted independently and failures are logged, never returned: partial
// cleanup must not block a user-facing response, and the orphan sweep
// reconciles whatever is left behind. Idempotent.
func (s *Service) purge(ctx context.Context, obj *Object) {
	if err := s.blobs.Delete(ctx, obj.StoragePath); err != nil {
		log.Printf("service=lifecycle msg=%q id=%s path=%s err=%v",
			"blob_delete_failed", obj.ID, obj.StoragePath, err)
	}
	if err := s.store.DeleteObject(ctx, obj.ID); err != nil {
		log.Printf("service=lifecycle msg=%q id=%s err=%v",
			"metadata_delete_failed", obj.ID, err)
	}
}

// newObjectID returns a URL-safe random token with 128 bits of entropy.
func newObjectID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
