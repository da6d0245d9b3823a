package page

import (
	"slices"
	"sync"

	"fraud-viewer/internal/domain"
)

// State is a point-in-time copy of a page, safe to hand to templates and encoders.
type State struct {
	Status         string                        `json:"status"`
	StatusError    bool                          `json:"status_error"`
	StatusVisible  bool                          `json:"status_visible"`
	ResultsVisible bool                          `json:"results_visible"`
	Charts         []domain.ChartSpec            `json:"charts,omitempty"`
	ChartImages    map[domain.ChartTarget]string `json:"chart_images,omitempty"`
	DownloadURL    string                        `json:"download_url,omitempty"`
	Table          *domain.PreviewTable          `json:"table,omitempty"`
	TableMessage   string                        `json:"table_message,omitempty"`
}

// Page holds the server-side state of one results page. A chart target is shown either
// as an inline chart or as an image, never both.
type Page struct {
	mu    sync.RWMutex
	state State
}

func New() *Page {
	return &Page{
		state: State{ChartImages: make(map[domain.ChartTarget]string)},
	}
}

func (p *Page) ShowStatus(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Status = message
	p.state.StatusError = false
	p.state.StatusVisible = true
}

func (p *Page) ShowError(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Status = message
	p.state.StatusError = true
	p.state.StatusVisible = true
}

func (p *Page) HideStatus() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.StatusVisible = false
}

func (p *Page) HideResults() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.ResultsVisible = false
}

func (p *Page) RevealResults() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.ResultsVisible = true
}

// RenderChart replaces whatever was drawn for the chart's target.
func (p *Page) RenderChart(chart domain.ChartSpec) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.state.ChartImages, chart.Target)

	for i, existing := range p.state.Charts {
		if existing.Target == chart.Target {
			p.state.Charts[i] = chart
			return
		}
	}
	p.state.Charts = append(p.state.Charts, chart)
}

func (p *Page) SetChartImage(target domain.ChartTarget, src string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state.Charts = slices.DeleteFunc(p.state.Charts, func(c domain.ChartSpec) bool {
		return c.Target == target
	})
	p.state.ChartImages[target] = src
}

func (p *Page) SetDownloadLink(href string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.DownloadURL = href
}

func (p *Page) ClearTable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Table = nil
	p.state.TableMessage = ""
}

func (p *Page) SetTable(table domain.PreviewTable) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Table = &table
	p.state.TableMessage = ""
}

func (p *Page) SetTableMessage(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Table = nil
	p.state.TableMessage = message
}

func (p *Page) Snapshot() State {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := p.state
	s.Charts = slices.Clone(p.state.Charts)

	s.ChartImages = make(map[domain.ChartTarget]string, len(p.state.ChartImages))
	for k, v := range p.state.ChartImages {
		s.ChartImages[k] = v
	}

	if p.state.Table != nil {
		t := *p.state.Table
		s.Table = &t
	}

	return s
}
