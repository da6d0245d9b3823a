package page

import (
	"sync"
	"testing"
	"time"

	"fraud-viewer/internal/domain"
	"fraud-viewer/internal/usecase/submission"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
)

func TestPageStatusAndResults(t *testing.T) {
	p := New()

	p.ShowStatus(domain.MessageProcessing)
	p.HideResults()
	s := p.Snapshot()
	assert.Equal(t, domain.MessageProcessing, s.Status)
	assert.True(t, s.StatusVisible)
	assert.False(t, s.StatusError)
	assert.False(t, s.ResultsVisible)

	p.ShowError("Error: bad file")
	s = p.Snapshot()
	assert.Equal(t, "Error: bad file", s.Status)
	assert.True(t, s.StatusError)

	p.HideStatus()
	p.RevealResults()
	s = p.Snapshot()
	assert.False(t, s.StatusVisible)
	assert.True(t, s.ResultsVisible)
}

func TestPageChartTargetsAreExclusive(t *testing.T) {
	p := New()

	p.RenderChart(domain.ChartSpec{Target: domain.TargetFraudDistribution, Kind: domain.ChartPie, Values: []float64{1}})
	p.RenderChart(domain.ChartSpec{Target: domain.TargetFraudDistribution, Kind: domain.ChartPie, Values: []float64{2}})
	p.RenderChart(domain.ChartSpec{Target: domain.TargetFeatureImportance, Kind: domain.ChartBar})

	s := p.Snapshot()
	require.Len(t, s.Charts, 2)
	assert.Equal(t, []float64{2}, s.Charts[0].Values)

	p.SetChartImage(domain.TargetFraudDistribution, "http://u/pie.png?t=1")
	s = p.Snapshot()
	require.Len(t, s.Charts, 1)
	assert.Equal(t, domain.TargetFeatureImportance, s.Charts[0].Target)
	assert.Equal(t, "http://u/pie.png?t=1", s.ChartImages[domain.TargetFraudDistribution])

	p.RenderChart(domain.ChartSpec{Target: domain.TargetFraudDistribution, Kind: domain.ChartPie})
	s = p.Snapshot()
	assert.Empty(t, s.ChartImages)
	assert.Len(t, s.Charts, 2)
}

func TestPageTableReplacement(t *testing.T) {
	p := New()

	p.SetTable(domain.PreviewTable{Header: []domain.Cell{{Text: "Provider"}}})
	p.ClearTable()
	p.SetTableMessage(domain.MessagePreviewFallback)

	s := p.Snapshot()
	assert.Nil(t, s.Table)
	assert.Equal(t, domain.MessagePreviewFallback, s.TableMessage)

	p.ClearTable()
	p.SetTable(domain.PreviewTable{Header: []domain.Cell{{Text: "Provider"}}})
	s = p.Snapshot()
	require.NotNil(t, s.Table)
	assert.Empty(t, s.TableMessage)
}

func TestSnapshotIsIndependent(t *testing.T) {
	p := New()
	p.SetChartImage(domain.TargetFeatureImportance, "a")

	s := p.Snapshot()
	s.ChartImages[domain.TargetFeatureImportance] = "b"

	assert.Equal(t, "a", p.Snapshot().ChartImages[domain.TargetFeatureImportance])
}

func TestPageConcurrentWrites(t *testing.T) {
	p := New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.ShowStatus(domain.MessageProcessing)
			p.RenderChart(domain.ChartSpec{Target: domain.TargetFeatureImportance})
			_ = p.Snapshot()
		}()
	}
	wg.Wait()

	assert.Len(t, p.Snapshot().Charts, 1)
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestStoreSessions(t *testing.T) {
	zlog.Init()
	clk := &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	handler := submission.NewHandler(nil, nil, nil, nil, clk, &zlog.Logger)

	store := NewStore(handler, clk, time.Hour)

	a := store.GetOrCreate("a")
	assert.Same(t, a, store.GetOrCreate("a"))
	assert.Equal(t, "a", a.Session.ID())

	_, ok := store.Get("b")
	assert.False(t, ok)

	store.GetOrCreate("b")
	assert.Equal(t, 2, store.Len())

	clk.Advance(30 * time.Minute)
	store.GetOrCreate("b")
	clk.Advance(45 * time.Minute)

	_, ok = store.Get("a")
	assert.False(t, ok)
	_, ok = store.Get("b")
	assert.True(t, ok)
}
