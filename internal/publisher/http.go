package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ecotech/contentforge/internal/models"
	"github.com/ecotech/contentforge/pkg/circuitbreaker"
	"github.com/ecotech/contentforge/pkg/logger"
	"github.com/ecotech/contentforge/pkg/ratelimiter"
)

// HTTPClient publishes to a platform's REST endpoint. Every call waits on a
// token bucket first, then goes through a circuit breaker, so a saturated
// or failing platform throttles only its own branch of a distribution
// fan-out.
type HTTPClient struct {
	platform models.Platform
	endpoint string
	apiKey   string
	hc       *http.Client
	limiter  ratelimiter.Limiter
	breaker  *circuitbreaker.Breaker
	log      *logger.Logger
}

// NewHTTPClient builds a client for one platform endpoint. ratePerSec
// bounds the sustained publish rate; burst bounds short spikes.
func NewHTTPClient(platform models.Platform, endpoint, apiKey string, ratePerSec float64, burst int, log *logger.Logger) *HTTPClient {
	return &HTTPClient{
		platform: platform,
		endpoint: endpoint,
		apiKey:   apiKey,
		hc:       &http.Client{Timeout: 30 * time.Second},
		limiter:  ratelimiter.NewTokenBucket(ratePerSec, burst),
		breaker:  circuitbreaker.New(3, 1, 60*time.Second),
		log:      log,
	}
}

func (c *HTTPClient) Platform() models.Platform { return c.platform }

type publishPayload struct {
	Content  string   `json:"content"`
	Hashtags []string `json:"hashtags,omitempty"`
}

type publishResponse struct {
	PostID string `json:"post_id"`
	URL    string `json:"url"`
}

func (c *HTTPClient) Publish(ctx context.Context, adaptation models.PlatformAdaptation) (*models.PublishResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait for %s: %w", c.platform, err)
	}

	body, err := json.Marshal(publishPayload{
		Content:  adaptation.Content,
		Hashtags: adaptation.Hashtags,
	})
	if err != nil {
		return nil, fmt.Errorf("encode publish payload: %w", err)
	}

	var resp publishResponse
	err = c.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		httpResp, err := c.hc.Do(req)
		if err != nil {
			return err
		}
		defer httpResp.Body.Close()

		if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
			snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
			return fmt.Errorf("platform %s returned %d: %s", c.platform, httpResp.StatusCode, snippet)
		}
		return json.NewDecoder(httpResp.Body).Decode(&resp)
	})
	if err != nil {
		return nil, err
	}

	c.log.WithPayload(map[string]interface{}{"platform": c.platform, "post_id": resp.PostID}).Info("Published content")
	return &models.PublishResult{
		Platform: c.platform,
		Success:  true,
		Metadata: map[string]interface{}{
			"post_id": resp.PostID,
			"url":     resp.URL,
		},
	}, nil
}
