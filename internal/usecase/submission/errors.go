package submission

import "errors"

var (
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrAnalysisFailed   = errors.New("analysis failed")
	ErrIncompleteResult = errors.New("incomplete analysis result")
	ErrStaleSubmission  = errors.New("submission superseded by a newer one")
)

// FailureError is an application-level failure reported by the analysis service
// with success=false.
type FailureError struct {
	Message string
}

func (e *FailureError) Error() string {
	return e.Message
}

func (e *FailureError) Is(target error) bool {
	return target == ErrAnalysisFailed
}
