package face

import "context"

// Face is one detection result. Gender is 0 for male, 1 for female; the age
// range comes from the analyzer's age-bucket classifier.
type Face struct {
	Gender int     `json:"gender"`
	MinAge int     `json:"min_age"`
	MaxAge int     `json:"max_age"`
	Box    [4]int  `json:"box"`
	Score  float64 `json:"score"`
}

// Analyzer detects faces with age/gender attributes. Callers must treat any
// error as "no faces": detection is enrichment, never a gate.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte) ([]Face, error)
}
