package dashboard

import (
	"context"
	"io"

	"fraud-viewer/internal/domain"
	"fraud-viewer/internal/view/page"
)

type pageStore interface {
	Get(id string) (*page.Entry, bool)
	GetOrCreate(id string) *page.Entry
}

type historyReader interface {
	List(ctx context.Context, sessionID string, limit, offset int) ([]domain.Submission, error)
	GetByID(ctx context.Context, id string) (*domain.Submission, error)
}

type archiveReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
}
