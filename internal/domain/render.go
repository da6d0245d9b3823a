package domain

// RenderInstruction is the outcome of a successful analysis, ready to be applied to a view.
type RenderInstruction struct {
	Mode ChartMode `json:"mode"`

	Charts      []ChartSpec            `json:"charts,omitempty"`
	ChartImages map[ChartTarget]string `json:"chart_images,omitempty"`

	DownloadURL string `json:"download_url"`

	// Preview is nil when the CSV was empty or could not be loaded.
	Preview        *PreviewTable `json:"preview,omitempty"`
	PreviewMessage string        `json:"preview_message,omitempty"`
	PredictionsCSV []byte        `json:"-"`
}
