package render

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"fraud-viewer/internal/client/analyzer"
	"fraud-viewer/internal/domain"

	"github.com/wb-go/wbf/zlog"
)

type Renderer struct {
	mode      domain.ChartMode
	publicURL *url.URL
	previewer tablePreviewer
	clock     clock
	logger    *zlog.Zerolog
}

func NewRenderer(mode domain.ChartMode, publicURL string, previewer tablePreviewer, clock clock, logger *zlog.Zerolog) (*Renderer, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChartMode, mode)
	}

	u, err := url.Parse(publicURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", analyzer.ErrInvalidURL, publicURL)
	}

	return &Renderer{
		mode:      mode,
		publicURL: u,
		previewer: previewer,
		clock:     clock,
		logger:    logger,
	}, nil
}

// Render turns a successful analysis into a render instruction: charts for the chosen
// variant, the download link and the table preview of the predictions.
func (r *Renderer) Render(ctx context.Context, result *domain.AnalysisResult) (*domain.RenderInstruction, error) {
	downloadURL, err := analyzer.ResolveAgainst(r.publicURL, result.PredictionsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve predictions url: %w", err)
	}

	instr := &domain.RenderInstruction{
		Mode:        r.resolveMode(result),
		DownloadURL: downloadURL,
	}

	switch instr.Mode {
	case domain.ChartModeImage:
		images, err := r.chartImages(result)
		if err != nil {
			return nil, err
		}
		instr.ChartImages = images
	default:
		instr.Charts = InlineCharts(result)
	}

	table := r.previewer.Load(ctx, result.PredictionsURL)
	instr.Preview = table.Table
	instr.PreviewMessage = table.Message
	instr.PredictionsCSV = table.Raw

	r.logger.Debug().
		Str("mode", string(instr.Mode)).
		Str("download_url", instr.DownloadURL).
		Bool("preview", instr.Preview != nil).
		Msg("Render instruction built")

	return instr, nil
}

func (r *Renderer) resolveMode(result *domain.AnalysisResult) domain.ChartMode {
	if r.mode != domain.ChartModeAuto {
		return r.mode
	}
	if result.HasChartImages() {
		return domain.ChartModeImage
	}
	return domain.ChartModeInline
}

func (r *Renderer) chartImages(result *domain.AnalysisResult) (map[domain.ChartTarget]string, error) {
	now := r.clock.Now()
	images := make(map[domain.ChartTarget]string, 2)

	sources := map[domain.ChartTarget]string{
		domain.TargetFraudDistribution: result.PieChartURL,
		domain.TargetFeatureImportance: result.FeatureImportanceURL,
	}

	for target, src := range sources {
		if src == "" {
			r.logger.Warn().Str("target", string(target)).Msg("Chart image url missing")
			continue
		}

		resolved, err := analyzer.ResolveAgainst(r.publicURL, src)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve chart url: %w", err)
		}

		busted, err := CacheBust(resolved, now)
		if err != nil {
			return nil, err
		}
		images[target] = busted
	}

	return images, nil
}

// CacheBust appends a timestamp query parameter so a reused filename is not served from cache.
func CacheBust(rawURL string, now time.Time) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %q", analyzer.ErrInvalidURL, rawURL)
	}

	q := u.Query()
	q.Set(domain.CacheBustParam, strconv.FormatInt(now.UnixMilli(), 10))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// InlineCharts builds the pie and bar charts from inline data. Each missing field falls
// back on its own; an explicitly empty list is kept as sent.
func InlineCharts(result *domain.AnalysisResult) []domain.ChartSpec {
	pieLabels := result.PieLabels
	if pieLabels == nil {
		pieLabels = domain.DefaultPieLabels()
	}
	pieValues := result.PieValues
	if pieValues == nil {
		pieValues = domain.DefaultPieValues()
	}

	featureLabels := result.FeatureLabels
	if featureLabels == nil {
		featureLabels = domain.DefaultFeatureLabels()
	}
	featureValues := result.FeatureValues
	if featureValues == nil {
		featureValues = domain.DefaultFeatureValues()
	}

	yMin, yMax := 0.0, 1.0

	return []domain.ChartSpec{
		{
			Target: domain.TargetFraudDistribution,
			Kind:   domain.ChartPie,
			Labels: pieLabels,
			Values: pieValues,
			Colors: []string{domain.ColorFraud, domain.ColorNonFraud},
		},
		{
			Target: domain.TargetFeatureImportance,
			Kind:   domain.ChartBar,
			Label:  domain.FeatureImportanceLabel,
			Labels: featureLabels,
			Values: featureValues,
			Colors: []string{domain.ColorFeature},
			YMin:   &yMin,
			YMax:   &yMax,
		},
	}
}
