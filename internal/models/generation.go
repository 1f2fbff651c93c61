package models

import "strings"

// GenerationRequest is the input value object for one orchestration run.
// It is validated at entry and never mutated afterwards.
type GenerationRequest struct {
	Prompt           string      `json:"prompt"`
	ContentType      ContentType `json:"content_type"`
	TargetAudience   string      `json:"target_audience,omitempty"`
	Tone             string      `json:"tone,omitempty"`
	MaxLength        int         `json:"max_length,omitempty"`
	Platform         Platform    `json:"platform,omitempty"`
	UseRAG           bool        `json:"use_rag"`
	IncludeReasoning bool        `json:"include_reasoning"`
}

// Validate rejects malformed requests before any pipeline state transition.
func (r *GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return &ValidationError{Field: "prompt", Reason: "must not be empty"}
	}
	if r.ContentType != "" && !r.ContentType.Valid() {
		return &ValidationError{Field: "content_type", Reason: "unknown content type: " + string(r.ContentType)}
	}
	if r.MaxLength < 0 {
		return &ValidationError{Field: "max_length", Reason: "must be a positive integer"}
	}
	return nil
}

// EventType tags an AgentActivityEvent. The string values are the wire
// contract consumed by the streaming frontend and must not change.
type EventType string

const (
	EventStarted       EventType = "started"
	EventProgress      EventType = "progress"
	EventRetrieval     EventType = "retrieval"
	EventBrandAnalysis EventType = "brand_analysis"
	EventCompleted     EventType = "completed"
	EventError         EventType = "error"
)

// AgentActivityEvent is an ephemeral progress record emitted during
// orchestration. All events of one run share a RequestID; Step strictly
// increases and Progress never decreases across the sequence.
type AgentActivityEvent struct {
	Type       EventType         `json:"type"`
	Step       int               `json:"step"`
	Action     string            `json:"action"`
	Progress   int               `json:"progress"`
	Reasoning  string            `json:"reasoning,omitempty"`
	Confidence float64           `json:"confidence,omitempty"`
	ToolsUsed  []string          `json:"toolsUsed,omitempty"`
	RequestID  string            `json:"requestId"`
	Results    []RetrievalResult `json:"results,omitempty"`
}

// GenerationResponse is the terminal output of a successful run.
// BrandVoiceScore is nil when brand analysis was skipped or degraded.
type GenerationResponse struct {
	Content          string   `json:"content"`
	Reasoning        string   `json:"reasoning,omitempty"`
	Confidence       float64  `json:"confidence"`
	BrandVoiceScore  *float64 `json:"brand_voice_score"`
	SourcesUsed      []string `json:"sources_used"`
	Suggestions      []string `json:"suggestions,omitempty"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	RequestID        string   `json:"request_id"`
}

// ContentStrategy is the plan produced before drafting: the angle to take,
// the points to hit, and the structure to follow.
type ContentStrategy struct {
	Approach   string   `json:"approach"`
	KeyPoints  []string `json:"key_points"`
	Structure  string   `json:"structure"`
	Reasoning  string   `json:"reasoning"`
	Confidence float64  `json:"confidence"`
}

// BrandAnalysis is the outcome of scoring content against the brand voice
// exemplar corpus.
type BrandAnalysis struct {
	OverallScore    float64            `json:"overall_score"`
	Confidence      float64            `json:"confidence"`
	DimensionScores map[string]float64 `json:"dimension_scores,omitempty"`
	Suggestions     []string           `json:"suggestions,omitempty"`
	ExampleIDs      []string           `json:"example_ids,omitempty"`
}

// PlatformAdaptation describes how content should be reshaped for one
// publishing destination.
type PlatformAdaptation struct {
	Platform  Platform `json:"platform"`
	Content   string   `json:"content"`
	MaxLength int      `json:"max_length"`
	Truncated bool     `json:"truncated"`
	Notes     []string `json:"notes,omitempty"`
	Hashtags  []string `json:"hashtags,omitempty"`
}

// DistributionPlan groups the per-platform adaptations for one piece of content.
type DistributionPlan struct {
	ContentType ContentType          `json:"content_type"`
	Adaptations []PlatformAdaptation `json:"adaptations"`
}

// PublishResult reports the outcome of one platform publish call. A failed
// platform never aborts the others; each branch captures its own error.
type PublishResult struct {
	Platform Platform               `json:"platform"`
	Success  bool                   `json:"success"`
	Error    string                 `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
