package terminal

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"fraud-viewer/internal/domain"
)

const positiveMark = " *"

// View prints submission progress and results as plain text. Positive preview cells
// are marked with a trailing asterisk.
type View struct {
	mu    sync.Mutex
	out   io.Writer
	table *domain.PreviewTable
}

func New(out io.Writer) *View {
	return &View{out: out}
}

func (v *View) ShowStatus(message string) {
	v.printf("%s\n", message)
}

func (v *View) ShowError(message string) {
	v.printf("%s\n", message)
}

func (v *View) HideStatus() {}

func (v *View) HideResults() {}

func (v *View) RevealResults() {
	v.printf("\nAnalysis complete.\n")
}

func (v *View) RenderChart(chart domain.ChartSpec) {
	pairs := make([]string, 0, len(chart.Labels))
	for i, label := range chart.Labels {
		value := "-"
		if i < len(chart.Values) {
			value = strconv.FormatFloat(chart.Values[i], 'g', -1, 64)
		}
		pairs = append(pairs, label+"="+value)
	}
	v.printf("%s (%s): %s\n", chart.Target.Title(), chart.Kind, strings.Join(pairs, ", "))
}

func (v *View) SetChartImage(target domain.ChartTarget, src string) {
	v.printf("%s: %s\n", target.Title(), src)
}

func (v *View) SetDownloadLink(href string) {
	v.printf("Download predictions: %s\n", href)
}

func (v *View) ClearTable() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.table = nil
}

func (v *View) SetTable(table domain.PreviewTable) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.table = &table

	fmt.Fprintln(v.out)
	tw := tabwriter.NewWriter(v.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, joinCells(table.Header))
	for _, row := range table.Rows {
		fmt.Fprintln(tw, joinCells(row))
	}
	tw.Flush()
}

func (v *View) SetTableMessage(message string) {
	v.printf("\n%s\n", message)
}

// Table returns the last preview table written, or nil.
func (v *View) Table() *domain.PreviewTable {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.table
}

func (v *View) printf(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, format, args...)
}

func joinCells(cells []domain.Cell) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = c.Text
		if c.Positive {
			parts[i] += positiveMark
		}
	}
	return strings.Join(parts, "\t")
}
