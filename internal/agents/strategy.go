// Package agents holds the specialist collaborators the coordinator drives:
// strategy planning and drafting, brand voice analysis, and distribution
// planning. Agents hold no per-run state; every call is self-contained.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/ecotech/contentforge/internal/generation"
	"github.com/ecotech/contentforge/internal/models"
	"github.com/ecotech/contentforge/pkg/logger"
)

// StrategyAgent plans an approach for a request and drafts content against
// that plan through the generation engine.
type StrategyAgent struct {
	engine generation.Engine
	log    *logger.Logger
}

func NewStrategyAgent(engine generation.Engine, log *logger.Logger) *StrategyAgent {
	return &StrategyAgent{engine: engine, log: log}
}

// PlanStrategy derives a content strategy from the request and the retrieved
// context. The plan is deterministic given the same inputs; the engine is
// only involved at drafting time.
func (a *StrategyAgent) PlanStrategy(ctx context.Context, req *models.GenerationRequest, contextItems []models.RetrievalResult) (*models.ContentStrategy, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = models.ContentTypeBlogPost
	}

	strategy := &models.ContentStrategy{
		Approach:  approachFor(contentType, req.Tone),
		Structure: structureFor(contentType),
	}

	strategy.KeyPoints = append(strategy.KeyPoints, "Address the core topic: "+summarize(req.Prompt, 60))
	if req.TargetAudience != "" {
		strategy.KeyPoints = append(strategy.KeyPoints, "Speak directly to "+req.TargetAudience)
	}
	for i, res := range contextItems {
		if i >= 3 {
			break
		}
		strategy.KeyPoints = append(strategy.KeyPoints, "Draw on prior content: "+res.Item.Title)
	}

	var reasoning []string
	reasoning = append(reasoning, fmt.Sprintf("Planning %s content", contentType))
	if len(contextItems) > 0 {
		reasoning = append(reasoning, fmt.Sprintf("Grounding on %d retrieved context items", len(contextItems)))
		strategy.Confidence = 0.85
	} else {
		reasoning = append(reasoning, "No retrieved context available; drafting from the request alone")
		strategy.Confidence = 0.6
	}
	if req.Tone != "" {
		reasoning = append(reasoning, "Applying requested tone: "+req.Tone)
	}
	strategy.Reasoning = strings.Join(reasoning, ". ")

	return strategy, nil
}

// GenerateContent drafts content for the strategy. MaxLength is a soft
// target passed to the engine; output exceeding 120% of it is hard-cut at
// the last sentence boundary inside the limit.
func (a *StrategyAgent) GenerateContent(ctx context.Context, req *models.GenerationRequest, strategy *models.ContentStrategy, contextItems []models.RetrievalResult) (string, error) {
	prompt := a.buildPrompt(req, strategy, contextItems)

	opts := generation.CompleteOptions{
		SystemPrompt: "You are a content writer for a sustainable technology company. Write clear, professional, optimistic content grounded in data.",
		Temperature:  0.7,
	}
	if req.MaxLength > 0 {
		// Soft target: words to tokens is roughly 1:1.3.
		opts.MaxTokens = req.MaxLength + req.MaxLength/3
	}

	content, err := a.engine.Complete(ctx, prompt, opts)
	if err != nil {
		return "", &models.GenerationFailedError{Stage: "generation", Strategy: strategy, Err: err}
	}
	if content = strings.TrimSpace(content); content == "" {
		return "", &models.GenerationFailedError{Stage: "generation", Strategy: strategy, Err: fmt.Errorf("engine returned empty content")}
	}

	if req.MaxLength > 0 {
		content = enforceSoftLimit(content, req.MaxLength)
	}
	return content, nil
}

func (a *StrategyAgent) buildPrompt(req *models.GenerationRequest, strategy *models.ContentStrategy, contextItems []models.RetrievalResult) string {
	var b strings.Builder

	contentType := req.ContentType
	if contentType == "" {
		contentType = models.ContentTypeBlogPost
	}
	fmt.Fprintf(&b, "Topic: %s\n", req.Prompt)
	fmt.Fprintf(&b, "Content type: %s\n", contentType)
	if req.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", req.Tone)
	}
	if req.TargetAudience != "" {
		fmt.Fprintf(&b, "Target audience: %s\n", req.TargetAudience)
	}
	if req.MaxLength > 0 {
		fmt.Fprintf(&b, "Target length: about %d characters\n", req.MaxLength)
	}

	fmt.Fprintf(&b, "\nApproach: %s\nStructure: %s\nKey points:\n", strategy.Approach, strategy.Structure)
	for _, p := range strategy.KeyPoints {
		fmt.Fprintf(&b, "- %s\n", p)
	}

	if req.UseRAG && len(contextItems) > 0 {
		b.WriteString("\nReference material from prior content:\n")
		for _, res := range contextItems {
			fmt.Fprintf(&b, "[%s] %s\n", res.Item.Title, summarize(res.Item.Text, 300))
		}
	}
	return b.String()
}

// enforceSoftLimit allows content up to 120% of the target before cutting
// at the last sentence boundary within the target.
func enforceSoftLimit(content string, maxLength int) string {
	hardLimit := maxLength + maxLength/5
	if len(content) <= hardLimit {
		return content
	}
	cut := content[:maxLength]
	if i := strings.LastIndexAny(cut, ".!?"); i > 0 {
		return cut[:i+1]
	}
	if i := strings.LastIndex(cut, " "); i > 0 {
		return cut[:i]
	}
	return cut
}

func approachFor(ct models.ContentType, tone string) string {
	var approach string
	switch ct {
	case models.ContentTypeSocialMedia:
		approach = "Concise, engagement-focused message with a clear hook"
	case models.ContentTypeEmailNewsletter:
		approach = "Personal, value-first update with actionable takeaways"
	case models.ContentTypeProductDescription:
		approach = "Benefit-led description backed by concrete specifications"
	case models.ContentTypeLandingPage:
		approach = "Persuasive narrative building to a single call to action"
	default:
		approach = "Informative deep-dive establishing authority on the topic"
	}
	if tone != "" {
		approach += ", delivered in a " + tone + " tone"
	}
	return approach
}

func structureFor(ct models.ContentType) string {
	switch ct {
	case models.ContentTypeSocialMedia:
		return "hook, value statement, call to action"
	case models.ContentTypeEmailNewsletter:
		return "greeting, highlight, practical steps, sign-off"
	case models.ContentTypeProductDescription:
		return "headline benefit, supporting evidence, differentiator"
	case models.ContentTypeLandingPage:
		return "headline, social proof, benefits, call to action"
	default:
		return "introduction, supporting evidence, analysis, conclusion"
	}
}

func summarize(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	if i := strings.LastIndex(cut, " "); i > limit/2 {
		cut = cut[:i]
	}
	return cut + "..."
}
