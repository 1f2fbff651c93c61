package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ecotech/contentforge/internal/models"
	"github.com/ecotech/contentforge/internal/publisher"
)

// fakeClient scripts one platform's publish outcome.
type fakeClient struct {
	platform models.Platform
	err      error
	calls    int
}

func (c *fakeClient) Platform() models.Platform { return c.platform }

func (c *fakeClient) Publish(ctx context.Context, adaptation models.PlatformAdaptation) (*models.PublishResult, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &models.PublishResult{
		Platform: c.platform,
		Success:  true,
		Metadata: map[string]interface{}{"post_id": "p-" + string(c.platform)},
	}, nil
}

func TestPlanDistributionTwitterTruncation(t *testing.T) {
	agent := NewDistributionAgent(publisher.NewRegistry(), testLogger())
	long := strings.Repeat("Sustainable energy updates for your organization. ", 20)

	plan := agent.PlanDistribution(long, models.ContentTypeSocialMedia, []models.Platform{models.PlatformTwitter})
	if len(plan.Adaptations) != 1 {
		t.Fatalf("got %d adaptations, want 1", len(plan.Adaptations))
	}

	a := plan.Adaptations[0]
	if !a.Truncated {
		t.Error("long content for twitter must be marked truncated")
	}
	if len(a.Content) > 280 {
		t.Errorf("adapted content length %d exceeds the 280 limit", len(a.Content))
	}
	if len(a.Hashtags) == 0 {
		t.Error("twitter adaptation should carry hashtag suggestions")
	}
	if a.MaxLength != 280 {
		t.Errorf("MaxLength = %d, want 280", a.MaxLength)
	}
}

func TestPlanDistributionPreservesShortContent(t *testing.T) {
	agent := NewDistributionAgent(publisher.NewRegistry(), testLogger())
	content := "Short update on solar progress."

	plan := agent.PlanDistribution(content, models.ContentTypeSocialMedia, []models.Platform{
		models.PlatformTwitter, models.PlatformLinkedIn,
	})
	for _, a := range plan.Adaptations {
		if a.Truncated {
			t.Errorf("%s: short content must not be truncated", a.Platform)
		}
		if a.Content != content {
			t.Errorf("%s: content altered: %q", a.Platform, a.Content)
		}
	}
}

func TestPlanDistributionUnknownPlatform(t *testing.T) {
	agent := NewDistributionAgent(publisher.NewRegistry(), testLogger())

	plan := agent.PlanDistribution("content", models.ContentTypeBlogPost, []models.Platform{"myspace"})
	if len(plan.Adaptations) != 1 {
		t.Fatalf("got %d adaptations, want 1", len(plan.Adaptations))
	}
	if len(plan.Adaptations[0].Notes) == 0 {
		t.Error("unknown platform should carry an explanatory note")
	}
}

func TestExecuteDistributionPartialFailure(t *testing.T) {
	twitter := &fakeClient{platform: models.PlatformTwitter}
	linkedin := &fakeClient{platform: models.PlatformLinkedIn, err: errors.New("rate limited upstream")}
	email := &fakeClient{platform: models.PlatformEmail}
	agent := NewDistributionAgent(publisher.NewRegistry(twitter, linkedin, email), testLogger())

	plan := agent.PlanDistribution("Short update.", models.ContentTypeSocialMedia, []models.Platform{
		models.PlatformTwitter, models.PlatformLinkedIn, models.PlatformEmail,
	})
	results := agent.ExecuteDistribution(context.Background(), plan)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	// Results come back sorted by platform name.
	for i := 1; i < len(results); i++ {
		if results[i-1].Platform > results[i].Platform {
			t.Errorf("results not sorted: %v before %v", results[i-1].Platform, results[i].Platform)
		}
	}

	byPlatform := map[models.Platform]models.PublishResult{}
	for _, res := range results {
		byPlatform[res.Platform] = res
	}
	if !byPlatform[models.PlatformTwitter].Success || !byPlatform[models.PlatformEmail].Success {
		t.Error("healthy platforms must succeed despite one failure")
	}
	failed := byPlatform[models.PlatformLinkedIn]
	if failed.Success {
		t.Error("failing platform reported success")
	}
	if !strings.Contains(failed.Error, "rate limited") {
		t.Errorf("failure should capture the branch error: %q", failed.Error)
	}
	for _, c := range []*fakeClient{twitter, linkedin, email} {
		if c.calls != 1 {
			t.Errorf("%s called %d times, want 1", c.platform, c.calls)
		}
	}
}

func TestExecuteDistributionMissingClient(t *testing.T) {
	agent := NewDistributionAgent(publisher.NewRegistry(), testLogger())

	plan := agent.PlanDistribution("Short update.", models.ContentTypeSocialMedia, []models.Platform{models.PlatformTwitter})
	results := agent.ExecuteDistribution(context.Background(), plan)
	if len(results) != 1 || results[0].Success {
		t.Fatalf("unexpected results: %+v", results)
	}
	if results[0].Error == "" {
		t.Error("missing client should produce an error message")
	}
}
