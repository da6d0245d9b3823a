package submission

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fraud-viewer/internal/client/analyzer"
	"fraud-viewer/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
)

type Handler struct {
	analyzer  analysisClient
	renderer  resultRenderer
	recorder  submissionRecorder
	publisher eventPublisher
	validate  *validator.Validate
	clock     clock
	logger    *zlog.Zerolog
}

// NewHandler wires the submission flow. recorder and publisher may be nil when history
// or events are disabled.
func NewHandler(client analysisClient, renderer resultRenderer, recorder submissionRecorder, publisher eventPublisher, clock clock, logger *zlog.Zerolog) *Handler {
	return &Handler{
		analyzer:  client,
		renderer:  renderer,
		recorder:  recorder,
		publisher: publisher,
		validate:  validator.New(),
		clock:     clock,
		logger:    logger,
	}
}

// Analyze runs one submission without touching any view.
func (h *Handler) Analyze(ctx context.Context, payload *domain.Payload) (*domain.RenderInstruction, error) {
	_, instr, err := h.analyze(ctx, payload)
	return instr, err
}

func (h *Handler) analyze(ctx context.Context, payload *domain.Payload) (*domain.AnalysisResult, *domain.RenderInstruction, error) {
	if payload == nil {
		return nil, nil, fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}
	if err := h.validate.Struct(payload); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	result, err := h.analyzer.Analyze(ctx, payload)
	if err != nil {
		return nil, nil, err
	}

	if !result.Success {
		message := result.Error
		if message == "" {
			message = domain.MessageAnalysisFailed
		}
		return result, nil, &FailureError{Message: message}
	}

	if err := h.validate.Struct(result); err != nil {
		return result, nil, fmt.Errorf("%w: predictions_url is missing", ErrIncompleteResult)
	}

	instr, err := h.renderer.Render(ctx, result)
	if err != nil {
		return result, nil, fmt.Errorf("failed to render result: %w", err)
	}

	return result, instr, nil
}

// Session serializes submissions coming from one view. The most recently started
// submission wins: an older one finishing later is discarded without touching the view.
type Session struct {
	handler *Handler
	id      string

	mu      sync.Mutex
	current uint64
}

func (h *Handler) NewSession(id string) *Session {
	return &Session{handler: h, id: id}
}

func (s *Session) ID() string {
	return s.id
}

// Submit shows the processing status, runs the analysis and applies its outcome to view.
// It returns ErrStaleSubmission when a newer submission started in the meantime.
func (s *Session) Submit(ctx context.Context, view View, payload *domain.Payload) (*domain.Submission, error) {
	h := s.handler

	sub := &domain.Submission{
		ID:        uuid.New().String(),
		SessionID: s.id,
		Status:    domain.SubmissionProcessing,
		CreatedAt: h.clock.Now(),
	}
	if payload != nil {
		sub.Files = len(payload.Files)
	}

	s.mu.Lock()
	s.current++
	token := s.current
	view.ShowStatus(domain.MessageProcessing)
	view.HideResults()
	s.mu.Unlock()

	h.logger.Info().
		Str("submission_id", sub.ID).
		Str("session_id", s.id).
		Int("files", sub.Files).
		Msg("Submission started")

	h.save(ctx, sub)

	result, instr, err := h.analyze(ctx, payload)

	s.mu.Lock()
	if token != s.current {
		s.mu.Unlock()
		h.logger.Info().Str("submission_id", sub.ID).Msg("Discarding stale submission")
		sub.Status = domain.SubmissionStale
		h.finish(ctx, sub, false)
		return sub, ErrStaleSubmission
	}

	if err != nil {
		view.ShowError(UserMessage(err))
	} else {
		Apply(view, instr)
	}
	s.mu.Unlock()

	if err != nil {
		h.logger.Warn().Err(err).Str("submission_id", sub.ID).Msg("Submission failed")
		sub.Status = domain.SubmissionFailed
		sub.Message = UserMessage(err)
		h.finish(ctx, sub, true)
		return sub, err
	}

	sub.Status = domain.SubmissionSucceeded
	sub.Mode = instr.Mode
	sub.PredictionsURL = result.PredictionsURL
	sub.ChartImages = chartSources(result)
	if instr.Preview != nil {
		sub.PreviewRows = len(instr.Preview.Rows)
	}
	sub.Message = instr.PreviewMessage
	h.finish(ctx, sub, true)

	h.logger.Info().
		Str("submission_id", sub.ID).
		Str("mode", string(sub.Mode)).
		Int("preview_rows", sub.PreviewRows).
		Msg("Submission succeeded")

	return sub, nil
}

// Apply writes a render instruction to view: charts, download link and table, then swaps
// the status line for the results section.
func Apply(view View, instr *domain.RenderInstruction) {
	for _, chart := range instr.Charts {
		view.RenderChart(chart)
	}

	for _, target := range []domain.ChartTarget{domain.TargetFraudDistribution, domain.TargetFeatureImportance} {
		if src, ok := instr.ChartImages[target]; ok {
			view.SetChartImage(target, src)
		}
	}

	view.SetDownloadLink(instr.DownloadURL)

	view.ClearTable()
	switch {
	case instr.Preview != nil:
		view.SetTable(*instr.Preview)
	case instr.PreviewMessage != "":
		view.SetTableMessage(instr.PreviewMessage)
	}

	view.HideStatus()
	view.RevealResults()
}

// UserMessage is the text shown in the status area for a failed submission.
func UserMessage(err error) string {
	var respErr *analyzer.ResponseError
	var failErr *FailureError

	message := err.Error()
	switch {
	case errors.As(err, &respErr):
		message = respErr.Message
	case errors.As(err, &failErr):
		message = failErr.Message
	case errors.Is(err, ErrInvalidPayload):
		message = domain.MessageInvalidForm
	}

	return domain.MessageErrorPrefix + message
}

func chartSources(result *domain.AnalysisResult) map[domain.ChartTarget]string {
	if !result.HasChartImages() {
		return nil
	}

	sources := make(map[domain.ChartTarget]string, 2)
	if result.PieChartURL != "" {
		sources[domain.TargetFraudDistribution] = result.PieChartURL
	}
	if result.FeatureImportanceURL != "" {
		sources[domain.TargetFeatureImportance] = result.FeatureImportanceURL
	}
	return sources
}

func (h *Handler) save(ctx context.Context, sub *domain.Submission) {
	if h.recorder == nil {
		return
	}
	if err := h.recorder.Save(ctx, sub); err != nil {
		h.logger.Error().Err(err).Str("submission_id", sub.ID).Msg("Failed to save submission")
	}
}

func (h *Handler) finish(ctx context.Context, sub *domain.Submission, publish bool) {
	sub.FinishedAt = h.clock.Now()

	if h.recorder != nil {
		if err := h.recorder.Update(ctx, sub); err != nil {
			h.logger.Error().Err(err).Str("submission_id", sub.ID).Msg("Failed to update submission")
		}
	}

	if !publish || h.publisher == nil {
		return
	}

	if err := h.publisher.Publish(ctx, sub.Event()); err != nil {
		h.logger.Error().Err(err).Str("submission_id", sub.ID).Msg("Failed to publish submission event")
	}
}
