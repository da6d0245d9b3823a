package preview

import (
	"context"
	"strings"
	"unicode"

	"fraud-viewer/internal/domain"

	"github.com/wb-go/wbf/zlog"
)

type Result struct {
	// Table is nil when the resource was empty or could not be loaded.
	Table   *domain.PreviewTable
	Message string
	Raw     []byte
}

type Previewer struct {
	fetcher resourceFetcher
	policy  domain.MatchPolicy
	logger  *zlog.Zerolog
}

func NewPreviewer(fetcher resourceFetcher, policy domain.MatchPolicy, logger *zlog.Zerolog) *Previewer {
	if !policy.Valid() {
		policy = domain.PolicyKeywords
	}
	return &Previewer{
		fetcher: fetcher,
		policy:  policy,
		logger:  logger,
	}
}

// Load fetches the CSV at ref and builds its preview. Failures never escape: they
// degrade to the fallback message so the rest of the results can still be shown.
func (p *Previewer) Load(ctx context.Context, ref string) Result {
	data, err := p.fetcher.Fetch(ctx, ref)
	if err != nil {
		p.logger.Warn().Err(err).Str("url", ref).Msg("Failed to display results table")
		return Result{Message: domain.MessagePreviewFallback}
	}

	table := Build(string(data), p.policy)

	rows := 0
	if table != nil {
		rows = len(table.Rows)
	}
	p.logger.Debug().Str("url", ref).Int("rows", rows).Msg("Preview built")

	return Result{Table: table, Raw: data}
}

// Build splits text on newlines and commas without any quoting support. The first line
// is the header; at most domain.PreviewCap lines follow it.
func Build(text string, policy domain.MatchPolicy) *domain.PreviewTable {
	text = strings.TrimRightFunc(text, unicode.IsSpace)
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")

	table := &domain.PreviewTable{
		Header: headerCells(lines[0]),
		Rows:   make([][]domain.Cell, 0, min(len(lines)-1, domain.PreviewCap)),
	}

	for i := 1; i < min(len(lines), domain.PreviewCap+1); i++ {
		table.Rows = append(table.Rows, bodyCells(lines[i], policy))
	}

	return table
}

func headerCells(line string) []domain.Cell {
	fields := splitLine(line)
	cells := make([]domain.Cell, len(fields))
	for i, f := range fields {
		cells[i] = domain.Cell{Text: f}
	}
	return cells
}

func bodyCells(line string, policy domain.MatchPolicy) []domain.Cell {
	fields := splitLine(line)
	cells := make([]domain.Cell, len(fields))
	for i, f := range fields {
		cells[i] = domain.Cell{Text: f, Positive: policy.IsPositive(f)}
	}
	return cells
}

func splitLine(line string) []string {
	return strings.Split(strings.TrimSuffix(line, "\r"), ",")
}
