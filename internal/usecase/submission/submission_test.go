package submission

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"fraud-viewer/internal/client/analyzer"
	"fraud-viewer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
)

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, payload *domain.Payload) (*domain.AnalysisResult, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnalysisResult), args.Error(1)
}

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(ctx context.Context, result *domain.AnalysisResult) (*domain.RenderInstruction, error) {
	args := m.Called(ctx, result)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RenderInstruction), args.Error(1)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Save(ctx context.Context, sub *domain.Submission) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *MockRecorder) Update(ctx context.Context, sub *domain.Submission) error {
	return m.Called(ctx, sub).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event domain.SubmissionEvent) error {
	return m.Called(ctx, event).Error(0)
}

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

// fakeView keeps the state a page would show.
type fakeView struct {
	mu sync.Mutex

	status        string
	statusError   bool
	statusVisible bool
	resultsShown  bool
	charts        []domain.ChartSpec
	images        map[domain.ChartTarget]string
	download      string
	table         *domain.PreviewTable
	tableMessage  string
	calls         []string
}

func newFakeView() *fakeView {
	return &fakeView{images: map[domain.ChartTarget]string{}}
}

func (v *fakeView) record(call string) {
	v.calls = append(v.calls, call)
}

func (v *fakeView) ShowStatus(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("ShowStatus")
	v.status, v.statusError, v.statusVisible = message, false, true
}

func (v *fakeView) ShowError(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("ShowError")
	v.status, v.statusError, v.statusVisible = message, true, true
}

func (v *fakeView) HideStatus() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("HideStatus")
	v.statusVisible = false
}

func (v *fakeView) HideResults() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("HideResults")
	v.resultsShown = false
}

func (v *fakeView) RevealResults() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("RevealResults")
	v.resultsShown = true
}

func (v *fakeView) RenderChart(chart domain.ChartSpec) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("RenderChart")
	v.charts = append(v.charts, chart)
}

func (v *fakeView) SetChartImage(target domain.ChartTarget, src string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("SetChartImage")
	v.images[target] = src
}

func (v *fakeView) SetDownloadLink(href string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("SetDownloadLink")
	v.download = href
}

func (v *fakeView) ClearTable() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("ClearTable")
	v.table, v.tableMessage = nil, ""
}

func (v *fakeView) SetTable(table domain.PreviewTable) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("SetTable")
	v.table = &table
}

func (v *fakeView) SetTableMessage(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record("SetTableMessage")
	v.tableMessage = message
}

func testLogger() *zlog.Zerolog {
	zlog.Init()
	return &zlog.Logger
}

func testPayload(name string) *domain.Payload {
	return &domain.Payload{
		Files: []domain.FilePart{{
			Field:    domain.FieldTestProviders,
			Filename: name,
			Open: func() (io.ReadCloser, error) {
				return io.NopCloser(strings.NewReader("Provider\nPRV1\n")), nil
			},
		}},
	}
}

func samePayload(p *domain.Payload) interface{} {
	return mock.MatchedBy(func(got *domain.Payload) bool { return got == p })
}

func TestSubmitSuccessAppliesInstruction(t *testing.T) {
	client := new(MockAnalyzer)
	renderer := new(MockRenderer)
	payload := testPayload("providers.csv")

	result := &domain.AnalysisResult{Success: true, PredictionsURL: "/static/p.csv"}
	instr := &domain.RenderInstruction{
		Mode:        domain.ChartModeImage,
		ChartImages: map[domain.ChartTarget]string{domain.TargetFeatureImportance: "http://u/f.png?t=1"},
		DownloadURL: "http://u/static/p.csv",
		Preview: &domain.PreviewTable{
			Header: []domain.Cell{{Text: "Provider"}},
			Rows:   [][]domain.Cell{{{Text: "PRV1"}}},
		},
	}

	client.On("Analyze", mock.Anything, samePayload(payload)).Return(result, nil)
	renderer.On("Render", mock.Anything, result).Return(instr, nil)

	h := NewHandler(client, renderer, nil, nil, fixedClock{}, testLogger())
	view := newFakeView()

	sub, err := h.NewSession("s1").Submit(context.Background(), view, payload)
	require.NoError(t, err)

	assert.Equal(t, domain.SubmissionSucceeded, sub.Status)
	assert.Equal(t, "s1", sub.SessionID)
	assert.Equal(t, 1, sub.Files)
	assert.Equal(t, 1, sub.PreviewRows)
	assert.Equal(t, "/static/p.csv", sub.PredictionsURL)

	assert.False(t, view.statusVisible)
	assert.True(t, view.resultsShown)
	assert.Equal(t, "http://u/static/p.csv", view.download)
	assert.Equal(t, "http://u/f.png?t=1", view.images[domain.TargetFeatureImportance])
	require.NotNil(t, view.table)
	assert.Equal(t, "PRV1", view.table.Rows[0][0].Text)

	assert.Equal(t, []string{
		"ShowStatus", "HideResults",
		"SetChartImage", "SetDownloadLink", "ClearTable", "SetTable",
		"HideStatus", "RevealResults",
	}, view.calls)

	client.AssertExpectations(t)
	renderer.AssertExpectations(t)
}

func TestSubmitShowsProcessingStatusFirst(t *testing.T) {
	client := new(MockAnalyzer)
	payload := testPayload("a.csv")
	view := newFakeView()

	client.On("Analyze", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			view.mu.Lock()
			defer view.mu.Unlock()
			assert.Equal(t, domain.MessageProcessing, view.status)
			assert.True(t, view.statusVisible)
			assert.False(t, view.resultsShown)
		}).
		Return(nil, &analyzer.ResponseError{StatusCode: 500, Message: "Server responded with status: 500"})

	h := NewHandler(client, new(MockRenderer), nil, nil, fixedClock{}, testLogger())
	_, err := h.NewSession("s").Submit(context.Background(), view, payload)
	require.Error(t, err)
}

func TestSubmitFailureMessages(t *testing.T) {
	tests := []struct {
		name   string
		result *domain.AnalysisResult
		err    error
		want   string
	}{
		{
			name: "server error field",
			err:  &analyzer.ResponseError{StatusCode: 400, Message: "bad file"},
			want: "Error: bad file",
		},
		{
			name: "status fallback",
			err:  &analyzer.ResponseError{StatusCode: 502, Message: "Server responded with status: 502"},
			want: "Error: Server responded with status: 502",
		},
		{
			name:   "application failure",
			result: &domain.AnalysisResult{Success: false, Error: "Missing labels"},
			want:   "Error: Missing labels",
		},
		{
			name:   "application failure without message",
			result: &domain.AnalysisResult{Success: false},
			want:   "Error: Analysis failed",
		},
		{
			name: "transport failure",
			err:  errors.New("connection refused"),
			want: "Error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(MockAnalyzer)
			client.On("Analyze", mock.Anything, mock.Anything).Return(tt.result, tt.err)

			h := NewHandler(client, new(MockRenderer), nil, nil, fixedClock{}, testLogger())
			view := newFakeView()

			sub, err := h.NewSession("s").Submit(context.Background(), view, testPayload("a.csv"))
			require.Error(t, err)

			assert.Equal(t, domain.SubmissionFailed, sub.Status)
			assert.Equal(t, tt.want, view.status)
			assert.True(t, view.statusError)
			assert.True(t, view.statusVisible)
			assert.False(t, view.resultsShown)
			assert.Equal(t, tt.want, sub.Message)
		})
	}
}

func TestAnalyzeRejectsSuccessWithoutPredictions(t *testing.T) {
	client := new(MockAnalyzer)
	renderer := new(MockRenderer)
	client.On("Analyze", mock.Anything, mock.Anything).Return(&domain.AnalysisResult{Success: true}, nil)

	h := NewHandler(client, renderer, nil, nil, fixedClock{}, testLogger())
	_, err := h.Analyze(context.Background(), testPayload("a.csv"))

	assert.ErrorIs(t, err, ErrIncompleteResult)
	renderer.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
}

func TestAnalyzeRejectsInvalidPayload(t *testing.T) {
	client := new(MockAnalyzer)
	h := NewHandler(client, new(MockRenderer), nil, nil, fixedClock{}, testLogger())

	_, err := h.Analyze(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Equal(t, "Error: Invalid form data.", UserMessage(err))

	_, err = h.Analyze(context.Background(), &domain.Payload{
		Files: []domain.FilePart{{Field: "trainLabels", Filename: "labels.csv"}},
	})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	client.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestAnalyzeForwardsPayloadWithoutFiles(t *testing.T) {
	payload := &domain.Payload{Fields: []domain.FormField{{Name: "trainLabels", Value: ""}}}

	client := new(MockAnalyzer)
	client.On("Analyze", mock.Anything, payload).Return(nil, &analyzer.ResponseError{
		StatusCode: 400,
		Message:    "Please upload all 8 files.",
	})

	h := NewHandler(client, new(MockRenderer), nil, nil, fixedClock{}, testLogger())
	_, err := h.Analyze(context.Background(), payload)

	require.Error(t, err)
	assert.Equal(t, "Error: Please upload all 8 files.", UserMessage(err))
	client.AssertExpectations(t)
}

func TestFailureErrorMatchesSentinel(t *testing.T) {
	var err error = &FailureError{Message: "x"}
	assert.ErrorIs(t, err, ErrAnalysisFailed)
	assert.Equal(t, "Error: x", UserMessage(err))
}

func TestLaterSubmissionWins(t *testing.T) {
	client := new(MockAnalyzer)
	renderer := new(MockRenderer)

	first := testPayload("first.csv")
	second := testPayload("second.csv")

	firstResult := &domain.AnalysisResult{Success: true, PredictionsURL: "/first.csv"}
	secondResult := &domain.AnalysisResult{Success: true, PredictionsURL: "/second.csv"}

	started := make(chan struct{})
	release := make(chan struct{})

	client.On("Analyze", mock.Anything, samePayload(first)).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(firstResult, nil)
	client.On("Analyze", mock.Anything, samePayload(second)).Return(secondResult, nil)

	renderer.On("Render", mock.Anything, firstResult).
		Return(&domain.RenderInstruction{Mode: domain.ChartModeInline, DownloadURL: "http://u/first.csv"}, nil)
	renderer.On("Render", mock.Anything, secondResult).
		Return(&domain.RenderInstruction{Mode: domain.ChartModeInline, DownloadURL: "http://u/second.csv"}, nil)

	recorder := new(MockRecorder)
	recorder.On("Save", mock.Anything, mock.Anything).Return(nil)
	recorder.On("Update", mock.Anything, mock.Anything).Return(nil)

	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	h := NewHandler(client, renderer, recorder, publisher, fixedClock{}, testLogger())
	session := h.NewSession("s")
	view := newFakeView()

	type outcome struct {
		sub *domain.Submission
		err error
	}
	firstDone := make(chan outcome, 1)

	go func() {
		sub, err := session.Submit(context.Background(), view, first)
		firstDone <- outcome{sub, err}
	}()

	<-started
	_, err := session.Submit(context.Background(), view, second)
	require.NoError(t, err)

	close(release)
	got := <-firstDone

	assert.ErrorIs(t, got.err, ErrStaleSubmission)
	assert.Equal(t, domain.SubmissionStale, got.sub.Status)
	assert.Equal(t, "http://u/second.csv", view.download)
	assert.True(t, view.resultsShown)

	// Only the winning submission is published.
	publisher.AssertNumberOfCalls(t, "Publish", 1)
	recorder.AssertNumberOfCalls(t, "Update", 2)
}

func TestSinkFailuresDoNotReachView(t *testing.T) {
	client := new(MockAnalyzer)
	renderer := new(MockRenderer)
	result := &domain.AnalysisResult{Success: true, PredictionsURL: "/p.csv"}

	client.On("Analyze", mock.Anything, mock.Anything).Return(result, nil)
	renderer.On("Render", mock.Anything, result).
		Return(&domain.RenderInstruction{Mode: domain.ChartModeInline, DownloadURL: "http://u/p.csv"}, nil)

	recorder := new(MockRecorder)
	recorder.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))
	recorder.On("Update", mock.Anything, mock.Anything).Return(errors.New("db down"))

	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.SubmissionEvent) bool {
		return e.Status == domain.SubmissionSucceeded && e.PredictionsURL == "/p.csv"
	})).Return(errors.New("broker down"))

	h := NewHandler(client, renderer, recorder, publisher, fixedClock{}, testLogger())
	view := newFakeView()

	sub, err := h.NewSession("s").Submit(context.Background(), view, testPayload("a.csv"))
	require.NoError(t, err)

	assert.Equal(t, domain.SubmissionSucceeded, sub.Status)
	assert.False(t, view.statusError)
	assert.True(t, view.resultsShown)
	publisher.AssertExpectations(t)
}

func TestApplyPreviewMessage(t *testing.T) {
	view := newFakeView()
	Apply(view, &domain.RenderInstruction{
		Mode:           domain.ChartModeInline,
		Charts:         []domain.ChartSpec{{Kind: domain.ChartPie}, {Kind: domain.ChartBar}},
		DownloadURL:    "http://u/p.csv",
		PreviewMessage: domain.MessagePreviewFallback,
	})

	assert.Len(t, view.charts, 2)
	assert.Nil(t, view.table)
	assert.Equal(t, domain.MessagePreviewFallback, view.tableMessage)
	assert.Equal(t, "http://u/p.csv", view.download)
	assert.True(t, view.resultsShown)
}
