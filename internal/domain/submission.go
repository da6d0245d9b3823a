package domain

import "time"

type Submission struct {
	ID             string
	SessionID      string
	Status         SubmissionStatus
	Mode           ChartMode
	Files          int
	Message        string
	PredictionsURL string
	ChartImages    map[ChartTarget]string
	PreviewRows    int
	ArchivePrefix  string
	CreatedAt      time.Time
	FinishedAt     time.Time
}

type SubmissionStatus string

const (
	SubmissionProcessing SubmissionStatus = "processing"
	SubmissionSucceeded  SubmissionStatus = "succeeded"
	SubmissionFailed     SubmissionStatus = "failed"
	SubmissionStale      SubmissionStatus = "stale"
	SubmissionArchived   SubmissionStatus = "archived"
)

// SubmissionEvent is published to the broker once a submission reaches a terminal status.
type SubmissionEvent struct {
	ID             string                 `json:"id"`
	SessionID      string                 `json:"session_id,omitempty"`
	Status         SubmissionStatus       `json:"status"`
	Mode           ChartMode              `json:"mode,omitempty"`
	Message        string                 `json:"message,omitempty"`
	PredictionsURL string                 `json:"predictions_url,omitempty"`
	ChartImages    map[ChartTarget]string `json:"chart_images,omitempty"`
	FinishedAt     time.Time              `json:"finished_at"`
}

func (s *Submission) Event() SubmissionEvent {
	return SubmissionEvent{
		ID:             s.ID,
		SessionID:      s.SessionID,
		Status:         s.Status,
		Mode:           s.Mode,
		Message:        s.Message,
		PredictionsURL: s.PredictionsURL,
		ChartImages:    s.ChartImages,
		FinishedAt:     s.FinishedAt,
	}
}

const (
	PathPrefixArchive   = "submissions/"
	ArchivePredictions  = "predictions.csv"
	DefaultCaptionColor = "90,90,90"
)
