package archive

import (
	"context"
	"io"
)

type resourceFetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

type objectStore interface {
	Put(ctx context.Context, path string, data io.ReadSeeker, size int64, contentType string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

type archiveRecorder interface {
	MarkArchived(ctx context.Context, id, prefix string) error
}
