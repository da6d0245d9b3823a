package domain

type ChartKind string

const (
	ChartPie ChartKind = "pie"
	ChartBar ChartKind = "bar"
)

// ChartTarget names the slot a chart is rendered into on the results page.
type ChartTarget string

const (
	TargetFraudDistribution ChartTarget = "fraud-distribution"
	TargetFeatureImportance ChartTarget = "feature-importance"
)

func (t ChartTarget) Title() string {
	switch t {
	case TargetFraudDistribution:
		return "Fraud Distribution"
	case TargetFeatureImportance:
		return "Feature Importance"
	}
	return string(t)
}

type ChartSpec struct {
	Target ChartTarget `json:"target"`
	Kind   ChartKind   `json:"kind"`
	Label  string      `json:"label,omitempty"`
	Labels []string    `json:"labels"`
	Values []float64   `json:"values"`
	Colors []string    `json:"colors"`
	YMin   *float64    `json:"y_min,omitempty"`
	YMax   *float64    `json:"y_max,omitempty"`
}

const (
	ColorFraud    = "#e74c3c"
	ColorNonFraud = "#2ecc71"
	ColorFeature  = "#3498db"

	FeatureImportanceLabel = "Feature Importance"
)

// Fallbacks used when the upstream omits inline chart data.
func DefaultPieLabels() []string { return []string{"Fraudulent", "Non-Fraudulent"} }

func DefaultPieValues() []float64 { return []float64{120, 880} }

func DefaultFeatureLabels() []string {
	return []string{"ClaimAmt", "HospitalVisits", "DiagnosisCount", "Age"}
}

func DefaultFeatureValues() []float64 { return []float64{0.8, 0.6, 0.4, 0.3} }
