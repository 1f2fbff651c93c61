package agents

import (
	"context"
	"fmt"
	"sort"

	"github.com/ecotech/contentforge/internal/generation"
	"github.com/ecotech/contentforge/internal/models"
	"github.com/ecotech/contentforge/internal/retriever"
	"github.com/ecotech/contentforge/pkg/logger"
)

// DefaultTargetScore is the brand alignment bar below which the agent
// produces improvement suggestions.
const DefaultTargetScore = 0.8

const brandExampleTopK = 5

// BrandAgent scores content against the brand voice exemplar corpus.
// Scoring is retrieval-based: exemplars similar to the content vote on it,
// with more similar exemplars weighted more heavily.
type BrandAgent struct {
	retriever *retriever.Retriever
	engine    generation.Engine
	log       *logger.Logger
}

func NewBrandAgent(r *retriever.Retriever, engine generation.Engine, log *logger.Logger) *BrandAgent {
	return &BrandAgent{retriever: r, engine: engine, log: log}
}

// AnalyzeBrandVoice computes a weighted brand alignment score for content.
// Each retrieved exemplar contributes its stored brand voice score weighted
// by the square of its similarity, so closer exemplars dominate. With no
// exemplars clearing the retrieval threshold the result is a neutral 0.5
// with low confidence rather than an error.
func (a *BrandAgent) AnalyzeBrandVoice(ctx context.Context, content string, targetScore float64) (*models.BrandAnalysis, error) {
	if targetScore <= 0 {
		targetScore = DefaultTargetScore
	}

	examples, err := a.retriever.RetrieveBrandVoiceExamples(ctx, content, brandExampleTopK)
	if err != nil {
		return nil, fmt.Errorf("retrieve brand voice examples: %w", err)
	}

	analysis := &models.BrandAnalysis{}
	var weightedSum, totalWeight float64
	for _, ex := range examples {
		if ex.Item.BrandVoiceScore == nil {
			continue
		}
		weight := ex.SimilarityScore * ex.SimilarityScore
		weightedSum += *ex.Item.BrandVoiceScore * weight
		totalWeight += weight
		analysis.ExampleIDs = append(analysis.ExampleIDs, ex.Item.ID)
	}

	if totalWeight > 0 {
		analysis.OverallScore = weightedSum / totalWeight
		analysis.Confidence = totalWeight / float64(brandExampleTopK)
		if analysis.Confidence > 1 {
			analysis.Confidence = 1
		}
	} else {
		analysis.OverallScore = 0.5
		analysis.Confidence = 0.2
		a.log.Warn("No brand voice exemplars matched; returning neutral score")
	}

	// Dimension scoring is part of the analysis contract: without it the
	// stage fails and the caller decides how to degrade.
	result, err := a.engine.Analyze(ctx, content, generation.DefaultDimensions())
	if err != nil {
		return nil, fmt.Errorf("dimension analysis: %w", err)
	}
	analysis.DimensionScores = result.Dimensions

	if analysis.OverallScore < targetScore {
		analysis.Suggestions = a.buildSuggestions(analysis, targetScore)
	}
	return analysis, nil
}

// buildSuggestions turns the weakest dimensions into ordered, concrete
// advice. Order is deterministic: weakest dimension first, name as
// tie-break.
func (a *BrandAgent) buildSuggestions(analysis *models.BrandAnalysis, targetScore float64) []string {
	suggestions := []string{
		fmt.Sprintf("Overall brand alignment is %.2f, below the %.2f target; review the tone against published exemplars", analysis.OverallScore, targetScore),
	}

	type dimScore struct {
		name  string
		score float64
	}
	var weak []dimScore
	for name, score := range analysis.DimensionScores {
		if score < targetScore {
			weak = append(weak, dimScore{name, score})
		}
	}
	sort.Slice(weak, func(i, j int) bool {
		if weak[i].score != weak[j].score {
			return weak[i].score < weak[j].score
		}
		return weak[i].name < weak[j].name
	})

	for _, d := range weak {
		switch d.name {
		case generation.DimProfessionalTone:
			suggestions = append(suggestions, "Adopt a more professional register: drop slang and repeated exclamation marks")
		case generation.DimSolutionFocus:
			suggestions = append(suggestions, "Emphasize solutions and outcomes rather than problems")
		case generation.DimOptimism:
			suggestions = append(suggestions, "Frame the topic around opportunity and progress")
		case generation.DimDataDriven:
			suggestions = append(suggestions, "Add concrete figures, percentages, or study references")
		case generation.DimAccessibility:
			suggestions = append(suggestions, "Shorten sentences and simplify terminology for a broader audience")
		default:
			suggestions = append(suggestions, fmt.Sprintf("Improve the %s dimension (currently %.2f)", d.name, d.score))
		}
	}
	return suggestions
}
