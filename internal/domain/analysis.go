package domain

// AnalysisResult is the JSON document returned by the upstream /analyze endpoint.
// Slices are left nil when a field is absent so fallbacks can tell "missing" from "empty".
type AnalysisResult struct {
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
	PredictionsURL string `json:"predictions_url,omitempty" validate:"required_if=Success true"`

	PieLabels     []string  `json:"pie_labels,omitempty"`
	PieValues     []float64 `json:"pie_values,omitempty"`
	FeatureLabels []string  `json:"feature_labels,omitempty"`
	FeatureValues []float64 `json:"feature_values,omitempty"`

	PieChartURL          string `json:"pie_chart_url,omitempty"`
	FeatureImportanceURL string `json:"feature_importance_url,omitempty"`
}

// HasChartImages reports whether the upstream sent server-rendered chart images.
func (r *AnalysisResult) HasChartImages() bool {
	return r.PieChartURL != "" || r.FeatureImportanceURL != ""
}

type ChartMode string

const (
	ChartModeAuto   ChartMode = "auto"
	ChartModeInline ChartMode = "inline"
	ChartModeImage  ChartMode = "image"
)

func (m ChartMode) Valid() bool {
	switch m {
	case ChartModeAuto, ChartModeInline, ChartModeImage:
		return true
	}
	return false
}

const AnalyzePath = "/analyze"

const (
	MessageProcessing       = "Uploading files and running analysis... This may take a few moments."
	MessageAnalysisFailed   = "Analysis failed"
	MessagePreviewFallback  = "Could not load prediction results preview."
	MessageErrorPrefix      = "Error: "
	MessageInvalidForm      = "Invalid form data."
	CacheBustParam          = "t"
	DefaultMaxUploadSize    = 256 << 20
	DefaultMaxErrorBodySize = 1 << 20
)

// Upload field names expected by the analysis service.
const (
	FieldTrainBeneficiary = "trainBeneficiary"
	FieldTrainInpatient   = "trainInpatient"
	FieldTrainOutpatient  = "trainOutpatient"
	FieldTrainLabels      = "trainLabels"
	FieldTestBeneficiary  = "testBeneficiary"
	FieldTestInpatient    = "testInpatient"
	FieldTestOutpatient   = "testOutpatient"
	FieldTestProviders    = "testProviders"
)

var UploadFields = []string{
	FieldTrainBeneficiary,
	FieldTrainInpatient,
	FieldTrainOutpatient,
	FieldTrainLabels,
	FieldTestBeneficiary,
	FieldTestInpatient,
	FieldTestOutpatient,
	FieldTestProviders,
}
