package archive

import "errors"

var (
	ErrNotArchivable = errors.New("submission is not archivable")
	ErrFetchFailed   = errors.New("failed to fetch artifact")
)
