// Package coordinator drives the multi-agent content pipeline: retrieval,
// strategy, generation, brand analysis, and optional distribution, surfaced
// to callers either as a final response or as a live event stream.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ecotech/contentforge/internal/agents"
	"github.com/ecotech/contentforge/internal/eventlog"
	"github.com/ecotech/contentforge/internal/models"
	"github.com/ecotech/contentforge/internal/retriever"
	"github.com/ecotech/contentforge/pkg/logger"
)

// State names one pipeline phase. Transitions are strictly forward;
// COMPLETED and FAILED are terminal.
type State string

const (
	StateInitialized    State = "INITIALIZED"
	StateRetrieving     State = "RETRIEVING"
	StateStrategizing   State = "STRATEGIZING"
	StateGenerating     State = "GENERATING"
	StateAnalyzingBrand State = "ANALYZING_BRAND"
	StateDistributing   State = "DISTRIBUTING"
	StateCompleted      State = "COMPLETED"
	StateFailed         State = "FAILED"
)

// Config carries the per-stage deadlines and retrieval tuning for a
// coordinator. Zero fields fall back to defaults.
type Config struct {
	RetrievalTimeout    time.Duration
	StrategyTimeout     time.Duration
	GenerationTimeout   time.Duration
	BrandTimeout        time.Duration
	DistributionTimeout time.Duration

	RetrievalTopK      int
	RetrievalThreshold float64
	BrandTargetScore   float64

	// Platforms to distribute to when the request asks for distribution.
	DistributionPlatforms []models.Platform

	// EventBuffer sizes the streaming channel.
	EventBuffer int
}

func (c *Config) applyDefaults() {
	if c.RetrievalTimeout <= 0 {
		c.RetrievalTimeout = 10 * time.Second
	}
	if c.StrategyTimeout <= 0 {
		c.StrategyTimeout = 10 * time.Second
	}
	if c.GenerationTimeout <= 0 {
		c.GenerationTimeout = 60 * time.Second
	}
	if c.BrandTimeout <= 0 {
		c.BrandTimeout = 15 * time.Second
	}
	if c.DistributionTimeout <= 0 {
		c.DistributionTimeout = 30 * time.Second
	}
	if c.RetrievalTopK <= 0 {
		c.RetrievalTopK = retriever.DefaultTopK
	}
	if c.RetrievalThreshold <= 0 {
		c.RetrievalThreshold = retriever.DefaultThreshold
	}
	if c.BrandTargetScore <= 0 {
		c.BrandTargetScore = agents.DefaultTargetScore
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 32
	}
}

// Coordinator wires the specialist agents into one pipeline. It holds no
// per-run state; concurrent runs are independent.
type Coordinator struct {
	retriever    *retriever.Retriever
	strategy     *agents.StrategyAgent
	brand        *agents.BrandAgent
	distribution *agents.DistributionAgent
	eventLog     eventlog.Publisher
	cfg          Config
	log          *logger.Logger
}

// New builds a Coordinator. distribution and eventLog may be nil: without a
// distribution agent the pipeline skips the DISTRIBUTING phase, and without
// an event log events only reach the caller's stream.
func New(r *retriever.Retriever, strategy *agents.StrategyAgent, brand *agents.BrandAgent, distribution *agents.DistributionAgent, eventLog eventlog.Publisher, cfg Config, log *logger.Logger) *Coordinator {
	cfg.applyDefaults()
	return &Coordinator{
		retriever:    r,
		strategy:     strategy,
		brand:        brand,
		distribution: distribution,
		eventLog:     eventLog,
		cfg:          cfg,
		log:          log,
	}
}

// Generate runs the full pipeline and returns the final response. The
// event stream is not exposed; events still reach the event log when one
// is configured.
func (c *Coordinator) Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	em := newEmitter(ctx, nil, c.eventLog, uuid.NewString())
	return c.run(ctx, req, em)
}

// GenerateStreaming runs the pipeline in the background and returns a
// bounded channel of activity events. The channel is closed when the run
// terminates for any reason. On failure the last event before close has
// type "error"; on cancellation the channel closes with no terminal event.
// Validation errors are returned immediately with no channel and no events.
func (c *Coordinator) GenerateStreaming(ctx context.Context, req *models.GenerationRequest) (<-chan models.AgentActivityEvent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ch := make(chan models.AgentActivityEvent, c.cfg.EventBuffer)
	em := newEmitter(ctx, ch, c.eventLog, uuid.NewString())

	go func() {
		defer close(ch)
		if _, err := c.run(ctx, req, em); err != nil && ctx.Err() == nil {
			event := models.AgentActivityEvent{
				Type:     models.EventError,
				Action:   "Generation failed: " + err.Error(),
				Progress: 100,
			}
			var serr *stageError
			if errors.As(err, &serr) {
				event.Reasoning = fmt.Sprintf("Failed in state %s after %d completed steps", serr.stage, em.step)
			}
			em.emit(event)
		}
	}()
	return ch, nil
}

// run executes the pipeline phases in order. Degradable phases surface a
// warning suggestion and continue without a confidence entry; fatal phases
// abort with the error. Aggregate confidence is the min over completed
// stages.
func (c *Coordinator) run(ctx context.Context, req *models.GenerationRequest, em *emitter) (*models.GenerationResponse, error) {
	start := time.Now()
	log := c.log.WithRequest(em.requestID)
	state := StateInitialized

	var (
		stageConfidences []float64
		reasoning        []string
		suggestions      []string
		sources          []string
		seenSources      = map[string]bool{}
	)
	addSources := func(ids ...string) {
		for _, id := range ids {
			if !seenSources[id] {
				seenSources[id] = true
				sources = append(sources, id)
			}
		}
	}

	em.emit(models.AgentActivityEvent{
		Type:     models.EventStarted,
		Action:   "Starting content generation",
		Progress: 0,
	})

	// RETRIEVING: failure degrades to an empty context set.
	state = StateRetrieving
	var contextItems []models.RetrievalResult
	if req.UseRAG {
		em.emit(models.AgentActivityEvent{
			Type:      models.EventProgress,
			Action:    "Retrieving relevant context",
			Progress:  10,
			ToolsUsed: []string{"retriever"},
		})

		retrCtx, cancel := context.WithTimeout(ctx, c.cfg.RetrievalTimeout)
		results, err := c.retriever.RetrieveContext(retrCtx, req.Prompt, req.ContentType, c.cfg.RetrievalTopK, c.cfg.RetrievalThreshold)
		cancel()
		if err := c.checkCancelled(ctx); err != nil {
			return nil, err
		}
		if err != nil {
			// The failed stage contributes no confidence entry: the
			// aggregate min covers completed stages only.
			log.WithError(err).Warn("Retrieval failed; continuing without context")
			suggestions = append(suggestions, "Context retrieval was unavailable; content was generated without reference material")
			reasoning = append(reasoning, "Retrieval degraded: generated without reference context")
		} else {
			contextItems = results
			stageConfidences = append(stageConfidences, 1.0)
			for _, res := range results {
				addSources(res.Item.ID)
			}
			reasoning = append(reasoning, fmt.Sprintf("Retrieved %d context items", len(results)))
			em.emit(models.AgentActivityEvent{
				Type:      models.EventRetrieval,
				Action:    fmt.Sprintf("Found %d relevant items", len(results)),
				Progress:  25,
				Results:   results,
				ToolsUsed: []string{"retriever"},
			})
		}
	}

	// STRATEGIZING: fatal on failure.
	state = StateStrategizing
	em.emit(models.AgentActivityEvent{
		Type:      models.EventProgress,
		Action:    "Planning content strategy",
		Progress:  35,
		ToolsUsed: []string{"strategy_agent"},
	})

	stratCtx, cancel := context.WithTimeout(ctx, c.cfg.StrategyTimeout)
	strategy, err := c.strategy.PlanStrategy(stratCtx, req, contextItems)
	cancel()
	if cerr := c.checkCancelled(ctx); cerr != nil {
		return nil, cerr
	}
	if err != nil {
		return nil, c.fail(log, state, fmt.Errorf("strategy planning: %w", err))
	}
	stageConfidences = append(stageConfidences, strategy.Confidence)
	reasoning = append(reasoning, strategy.Reasoning)
	em.emit(models.AgentActivityEvent{
		Type:       models.EventProgress,
		Action:     "Strategy ready: " + strategy.Approach,
		Progress:   45,
		Reasoning:  strategy.Reasoning,
		Confidence: strategy.Confidence,
		ToolsUsed:  []string{"strategy_agent"},
	})

	// GENERATING: fatal on failure.
	state = StateGenerating
	em.emit(models.AgentActivityEvent{
		Type:      models.EventProgress,
		Action:    "Generating content",
		Progress:  55,
		ToolsUsed: []string{"generation_engine"},
	})

	genCtx, cancel := context.WithTimeout(ctx, c.cfg.GenerationTimeout)
	content, err := c.strategy.GenerateContent(genCtx, req, strategy, contextItems)
	cancel()
	if cerr := c.checkCancelled(ctx); cerr != nil {
		return nil, cerr
	}
	if err != nil {
		return nil, c.fail(log, state, err)
	}
	stageConfidences = append(stageConfidences, 0.9)
	reasoning = append(reasoning, fmt.Sprintf("Drafted %d characters of %s content", len(content), contentTypeOrDefault(req)))

	// ANALYZING_BRAND: failure degrades to a nil score plus a warning.
	state = StateAnalyzingBrand
	em.emit(models.AgentActivityEvent{
		Type:      models.EventProgress,
		Action:    "Analyzing brand voice alignment",
		Progress:  75,
		ToolsUsed: []string{"brand_agent"},
	})

	var brandScore *float64
	brandCtx, cancel := context.WithTimeout(ctx, c.cfg.BrandTimeout)
	analysis, err := c.brand.AnalyzeBrandVoice(brandCtx, content, c.cfg.BrandTargetScore)
	cancel()
	if cerr := c.checkCancelled(ctx); cerr != nil {
		return nil, cerr
	}
	if err != nil {
		log.WithError(err).Warn("Brand analysis failed; returning content without a score")
		suggestions = append(suggestions, "Brand voice analysis was unavailable; review tone manually before publishing")
		reasoning = append(reasoning, "Brand analysis degraded: no alignment score")
	} else {
		score := analysis.OverallScore
		brandScore = &score
		stageConfidences = append(stageConfidences, analysis.Confidence)
		suggestions = append(suggestions, analysis.Suggestions...)
		addSources(analysis.ExampleIDs...)
		reasoning = append(reasoning, fmt.Sprintf("Brand voice alignment %.2f (confidence %.2f)", analysis.OverallScore, analysis.Confidence))
		em.emit(models.AgentActivityEvent{
			Type:       models.EventBrandAnalysis,
			Action:     fmt.Sprintf("Brand voice score: %.2f", analysis.OverallScore),
			Progress:   85,
			Confidence: analysis.Confidence,
			ToolsUsed:  []string{"brand_agent"},
		})
	}

	// DISTRIBUTING: optional; per-platform failures fold into suggestions.
	if req.Platform != "" && c.distribution != nil {
		state = StateDistributing
		platforms := c.cfg.DistributionPlatforms
		if len(platforms) == 0 {
			platforms = []models.Platform{req.Platform}
		}
		em.emit(models.AgentActivityEvent{
			Type:      models.EventProgress,
			Action:    fmt.Sprintf("Distributing to %d platforms", len(platforms)),
			Progress:  90,
			ToolsUsed: []string{"distribution_agent"},
		})

		plan := c.distribution.PlanDistribution(content, contentTypeOrDefault(req), platforms)
		distCtx, cancel := context.WithTimeout(ctx, c.cfg.DistributionTimeout)
		results := c.distribution.ExecuteDistribution(distCtx, plan)
		cancel()
		if cerr := c.checkCancelled(ctx); cerr != nil {
			return nil, cerr
		}

		published := 0
		for _, res := range results {
			if res.Success {
				published++
			} else {
				suggestions = append(suggestions, fmt.Sprintf("Publishing to %s failed: %s", res.Platform, res.Error))
			}
		}
		reasoning = append(reasoning, fmt.Sprintf("Distributed to %d of %d platforms", published, len(results)))
	}

	state = StateCompleted
	confidence := minConfidence(stageConfidences)
	resp := &models.GenerationResponse{
		Content:          content,
		Confidence:       confidence,
		BrandVoiceScore:  brandScore,
		SourcesUsed:      sources,
		Suggestions:      suggestions,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		RequestID:        em.requestID,
	}
	if req.IncludeReasoning {
		resp.Reasoning = strings.Join(reasoning, "\n")
	}

	em.emit(models.AgentActivityEvent{
		Type:       models.EventCompleted,
		Action:     "Content generation completed",
		Progress:   100,
		Confidence: confidence,
	})
	log.WithPayload(map[string]interface{}{
		"state":       string(state),
		"confidence":  confidence,
		"duration_ms": resp.ProcessingTimeMs,
	}).Info("Generation run completed")
	return resp, nil
}

// checkCancelled maps context cancellation to the pipeline's cancellation
// error. No event is emitted for a cancelled run.
func (c *Coordinator) checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrCancelled, err)
	}
	return nil
}

// stageError tags a fatal pipeline error with the state it occurred in, so
// the terminal error event can report where the run stopped.
type stageError struct {
	stage State
	err   error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func (c *Coordinator) fail(log *logger.Logger, state State, err error) error {
	log.WithError(err).WithPayload(map[string]interface{}{"state": string(state)}).Error("Generation run failed")
	return &stageError{stage: state, err: err}
}

func contentTypeOrDefault(req *models.GenerationRequest) models.ContentType {
	if req.ContentType != "" {
		return req.ContentType
	}
	return models.ContentTypeBlogPost
}

func minConfidence(confidences []float64) float64 {
	if len(confidences) == 0 {
		return 0.5
	}
	min := confidences[0]
	for _, c := range confidences[1:] {
		if c < min {
			min = c
		}
	}
	return min
}
