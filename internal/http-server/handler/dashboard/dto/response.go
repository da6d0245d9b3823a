package dto

import (
	"time"

	"fraud-viewer/internal/domain"
	"fraud-viewer/internal/view/page"
)

type StateResponse struct {
	SessionID string     `json:"session_id"`
	State     page.State `json:"state"`
}

type SubmissionResponse struct {
	ID             string                        `json:"id"`
	Status         string                        `json:"status"`
	Mode           string                        `json:"mode,omitempty"`
	Files          int                           `json:"files"`
	Message        string                        `json:"message,omitempty"`
	PredictionsURL string                        `json:"predictions_url,omitempty"`
	ChartImages    map[domain.ChartTarget]string `json:"chart_images,omitempty"`
	PreviewRows    int                           `json:"preview_rows"`
	ArchivePrefix  string                        `json:"archive_prefix,omitempty"`
	CreatedAt      time.Time                     `json:"created_at"`
	FinishedAt     *time.Time                    `json:"finished_at,omitempty"`
}

type ListSubmissionsResponse struct {
	Submissions []SubmissionResponse `json:"submissions"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func NewSubmissionResponse(s domain.Submission) SubmissionResponse {
	resp := SubmissionResponse{
		ID:             s.ID,
		Status:         string(s.Status),
		Mode:           string(s.Mode),
		Files:          s.Files,
		Message:        s.Message,
		PredictionsURL: s.PredictionsURL,
		ChartImages:    s.ChartImages,
		PreviewRows:    s.PreviewRows,
		ArchivePrefix:  s.ArchivePrefix,
		CreatedAt:      s.CreatedAt,
	}
	if !s.FinishedAt.IsZero() {
		finished := s.FinishedAt
		resp.FinishedAt = &finished
	}
	return resp
}
