package submission

import (
	"context"
	"time"

	"fraud-viewer/internal/domain"
)

// View is the rendering surface a submission is applied to.
type View interface {
	ShowStatus(message string)
	ShowError(message string)
	HideStatus()
	HideResults()
	RevealResults()
	RenderChart(chart domain.ChartSpec)
	SetChartImage(target domain.ChartTarget, src string)
	SetDownloadLink(href string)
	ClearTable()
	SetTable(table domain.PreviewTable)
	SetTableMessage(message string)
}

type analysisClient interface {
	Analyze(ctx context.Context, payload *domain.Payload) (*domain.AnalysisResult, error)
}

type resultRenderer interface {
	Render(ctx context.Context, result *domain.AnalysisResult) (*domain.RenderInstruction, error)
}

type submissionRecorder interface {
	Save(ctx context.Context, sub *domain.Submission) error
	Update(ctx context.Context, sub *domain.Submission) error
}

type eventPublisher interface {
	Publish(ctx context.Context, event domain.SubmissionEvent) error
}

type clock interface {
	Now() time.Time
}
