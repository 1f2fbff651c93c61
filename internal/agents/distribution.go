package agents

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ecotech/contentforge/internal/models"
	"github.com/ecotech/contentforge/internal/publisher"
	"github.com/ecotech/contentforge/pkg/logger"
)

// platformSpec captures the formatting constraints of one destination.
type platformSpec struct {
	maxLength   int
	toneShift   string
	hashtags    []string
	supportsTag bool
}

// Per-platform constraints. Lengths are the platform hard limits the
// adaptation must respect.
var platformSpecs = map[models.Platform]platformSpec{
	models.PlatformTwitter: {
		maxLength:   280,
		toneShift:   "punchy and conversational",
		hashtags:    []string{"#Sustainability", "#CleanEnergy"},
		supportsTag: true,
	},
	models.PlatformLinkedIn: {
		maxLength:   3000,
		toneShift:   "professional and insight-led",
		hashtags:    []string{"#Sustainability", "#CleanTech", "#Innovation"},
		supportsTag: true,
	},
	models.PlatformFacebook: {
		maxLength:   2200,
		toneShift:   "friendly and community-oriented",
		hashtags:    []string{"#Sustainability"},
		supportsTag: true,
	},
	models.PlatformEmail: {
		maxLength: 5000,
		toneShift: "personal and direct",
	},
	models.PlatformBlog: {
		toneShift: "in-depth and authoritative",
	},
	models.PlatformWordPress: {
		toneShift: "in-depth and authoritative",
	},
}

// DistributionAgent adapts finished content per platform and executes the
// publish fan-out.
type DistributionAgent struct {
	registry *publisher.Registry
	log      *logger.Logger
}

func NewDistributionAgent(registry *publisher.Registry, log *logger.Logger) *DistributionAgent {
	return &DistributionAgent{registry: registry, log: log}
}

// PlanDistribution builds one adaptation per requested platform from the
// platform spec table. Planning is pure: no network calls, deterministic
// output, unknown platforms get a pass-through adaptation with a note.
func (a *DistributionAgent) PlanDistribution(content string, contentType models.ContentType, platforms []models.Platform) *models.DistributionPlan {
	plan := &models.DistributionPlan{
		ContentType: contentType,
		Adaptations: make([]models.PlatformAdaptation, 0, len(platforms)),
	}

	for _, platform := range platforms {
		spec, known := platformSpecs[platform]
		adaptation := models.PlatformAdaptation{
			Platform:  platform,
			Content:   content,
			MaxLength: spec.maxLength,
		}

		if !known {
			adaptation.Notes = append(adaptation.Notes, "no platform profile; publishing content unchanged")
			plan.Adaptations = append(plan.Adaptations, adaptation)
			continue
		}

		if spec.toneShift != "" {
			adaptation.Notes = append(adaptation.Notes, "adjust tone: "+spec.toneShift)
		}
		if spec.supportsTag {
			adaptation.Hashtags = spec.hashtags
		}
		if spec.maxLength > 0 && len(adaptation.Content) > spec.maxLength {
			adaptation.Content = truncateForPlatform(adaptation.Content, spec.maxLength)
			adaptation.Truncated = true
			adaptation.Notes = append(adaptation.Notes, "truncated to platform limit")
		}

		plan.Adaptations = append(plan.Adaptations, adaptation)
	}
	return plan
}

// ExecuteDistribution publishes every adaptation concurrently. Each branch
// captures its own failure; one failed platform never aborts the others.
// Results come back ordered by platform name for determinism.
func (a *DistributionAgent) ExecuteDistribution(ctx context.Context, plan *models.DistributionPlan) []models.PublishResult {
	results := make([]models.PublishResult, len(plan.Adaptations))

	var wg sync.WaitGroup
	for i, adaptation := range plan.Adaptations {
		wg.Add(1)
		go func(i int, adaptation models.PlatformAdaptation) {
			defer wg.Done()
			results[i] = a.publishOne(ctx, adaptation)
		}(i, adaptation)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Platform < results[j].Platform
	})
	return results
}

func (a *DistributionAgent) publishOne(ctx context.Context, adaptation models.PlatformAdaptation) models.PublishResult {
	client, ok := a.registry.Client(adaptation.Platform)
	if !ok {
		return models.PublishResult{
			Platform: adaptation.Platform,
			Success:  false,
			Error:    "no client registered for platform",
		}
	}

	result, err := client.Publish(ctx, adaptation)
	if err != nil {
		a.log.WithError(err).Warn("Publish failed for platform " + string(adaptation.Platform))
		return models.PublishResult{
			Platform: adaptation.Platform,
			Success:  false,
			Error:    err.Error(),
		}
	}
	return *result
}

// truncateForPlatform cuts at a sentence boundary when one exists in the
// back half of the limit, otherwise at a word boundary, reserving room for
// an ellipsis.
func truncateForPlatform(content string, limit int) string {
	if len(content) <= limit {
		return content
	}
	cut := content[:limit-3]
	if i := strings.LastIndexAny(cut, ".!?"); i > limit/2 {
		return cut[:i+1]
	}
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}
