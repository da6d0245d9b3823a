package dashboard

import "fraud-viewer/internal/domain"

// canvasIDs maps chart targets to the element ids used by the page.
var canvasIDs = map[domain.ChartTarget]string{
	domain.TargetFraudDistribution: "fraud-pie-chart",
	domain.TargetFeatureImportance: "importance-chart",
}

type chartView struct {
	CanvasID string         `json:"canvas_id"`
	Config   map[string]any `json:"config"`
}

// chartConfig turns a chart spec into a Chart.js configuration object.
func chartConfig(spec domain.ChartSpec) map[string]any {
	dataset := map[string]any{
		"data": spec.Values,
	}
	if spec.Label != "" {
		dataset["label"] = spec.Label
	}

	options := map[string]any{
		"responsive": true,
		"plugins": map[string]any{
			"tooltip": map[string]any{"enabled": true},
		},
	}

	switch spec.Kind {
	case domain.ChartBar:
		if len(spec.Colors) > 0 {
			dataset["backgroundColor"] = spec.Colors[0]
		}
		y := map[string]any{"beginAtZero": true}
		if spec.YMin != nil {
			y["min"] = *spec.YMin
		}
		if spec.YMax != nil {
			y["max"] = *spec.YMax
		}
		options["scales"] = map[string]any{"y": y}
	default:
		dataset["backgroundColor"] = spec.Colors
	}

	return map[string]any{
		"type": string(spec.Kind),
		"data": map[string]any{
			"labels":   spec.Labels,
			"datasets": []any{dataset},
		},
		"options": options,
	}
}

func chartViews(specs []domain.ChartSpec) []chartView {
	views := make([]chartView, 0, len(specs))
	for _, spec := range specs {
		id, ok := canvasIDs[spec.Target]
		if !ok {
			continue
		}
		views = append(views, chartView{CanvasID: id, Config: chartConfig(spec)})
	}
	return views
}
