package render

import (
	"context"
	"time"

	"fraud-viewer/internal/usecase/preview"
)

type tablePreviewer interface {
	Load(ctx context.Context, ref string) preview.Result
}

type clock interface {
	Now() time.Time
}
