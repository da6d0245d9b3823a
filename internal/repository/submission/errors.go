package submission

import "errors"

var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrObjectNotFound     = errors.New("object not found")
	ErrStorageError       = errors.New("storage error")
)
