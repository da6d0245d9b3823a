package preview

import "context"

type resourceFetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}
