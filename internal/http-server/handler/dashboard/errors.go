package dashboard

import "errors"

var (
	ErrHistoryDisabled = errors.New("submission history is disabled")
	ErrArchiveDisabled = errors.New("archive storage is disabled")
	ErrNotArchived     = errors.New("submission is not archived")
)
