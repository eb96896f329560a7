package audit

import (
	"context"
	"io"
	"time"
)

// RecordStore persists audit records.
type RecordStore interface {
	CreateRecord(ctx context.Context, record Record) error
	UpdateRecord(ctx context.Context, id string, update RecordUpdate) error
	GetRecord(ctx context.Context, id string) (Record, error)
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Extractor turns a URL into an ExtractedPage. Implementations never fail;
// unreachable pages come back degraded.
type Extractor interface {
	Extract(ctx context.Context, url string) ExtractedPage
}

// PageCache stores extracted pages keyed by URL.
type PageCache interface {
	Get(ctx context.Context, url string) (ExtractedPage, bool, error)
	Set(ctx context.Context, url string, page ExtractedPage) error
}

// Generator is the external text-generation capability.
type Generator interface {
	Generate(ctx context.Context, request GenerationRequest) (string, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for cache keys.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces audit IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
