package domain

import "strings"

// PreviewCap is the maximum number of data rows shown below the header.
const PreviewCap = 15

type Cell struct {
	Text     string `json:"text"`
	Positive bool   `json:"positive,omitempty"`
}

type PreviewTable struct {
	Header []Cell   `json:"header"`
	Rows   [][]Cell `json:"rows"`
}

type MatchPolicy string

const (
	// PolicyKeywords flags trimmed, case-insensitive "yes" or "fraudulent".
	PolicyKeywords MatchPolicy = "keywords"
	// PolicyExact flags the literal "Yes" only.
	PolicyExact MatchPolicy = "exact"
)

func (p MatchPolicy) Valid() bool {
	return p == PolicyKeywords || p == PolicyExact
}

func (p MatchPolicy) IsPositive(text string) bool {
	switch p {
	case PolicyExact:
		return text == "Yes"
	default:
		v := strings.ToLower(strings.TrimSpace(text))
		return v == "yes" || v == "fraudulent"
	}
}
