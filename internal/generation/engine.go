// Package generation defines the capability boundary between the
// orchestration layers and whatever produces text. Agents depend only on
// the Engine interface; backends are swappable without touching agent code.
package generation

import "context"

// CompleteOptions tunes a single completion call.
type CompleteOptions struct {
	MaxTokens   int
	Temperature float32
	// SystemPrompt frames the completion; empty means no system framing.
	SystemPrompt string
}

// AnalysisResult is a structured rubric evaluation of a piece of content.
// Dimension scores are in [0, 1].
type AnalysisResult struct {
	Dimensions map[string]float64 `json:"dimensions"`
	Summary    string             `json:"summary"`
	Confidence float64            `json:"confidence"`
}

// Engine produces text and evaluates text. Implementations must be safe
// for concurrent use.
type Engine interface {
	// Complete returns generated text for a prompt. A failure here is
	// fatal to the calling pipeline run.
	Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error)

	// Analyze scores content along the named rubric dimensions.
	Analyze(ctx context.Context, content string, dimensions []string) (AnalysisResult, error)
}

// Rubric dimension names shared by every backend so scores are comparable
// between a template run and a model-backed run.
const (
	DimProfessionalTone = "professional_tone"
	DimSolutionFocus    = "solution_focus"
	DimOptimism         = "optimism"
	DimDataDriven       = "data_driven"
	DimAccessibility    = "accessibility"
)

// DefaultDimensions is the rubric used when a caller does not name its own.
func DefaultDimensions() []string {
	return []string{
		DimProfessionalTone,
		DimSolutionFocus,
		DimOptimism,
		DimDataDriven,
		DimAccessibility,
	}
}
