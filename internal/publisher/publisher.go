// Package publisher is the outbound boundary to publishing platforms.
// The distribution agent talks to PlatformClient only; transport concerns
// (rate limits, flapping endpoints, auth) stay behind the interface.
package publisher

import (
	"context"

	"github.com/ecotech/contentforge/internal/models"
)

// PlatformClient publishes one adapted piece of content to one platform.
// Implementations must be safe for concurrent use: the distribution agent
// fans out to several platforms at once.
type PlatformClient interface {
	Platform() models.Platform
	Publish(ctx context.Context, adaptation models.PlatformAdaptation) (*models.PublishResult, error)
}

// Registry resolves platform names to clients.
type Registry struct {
	clients map[models.Platform]PlatformClient
}

func NewRegistry(clients ...PlatformClient) *Registry {
	r := &Registry{clients: make(map[models.Platform]PlatformClient, len(clients))}
	for _, c := range clients {
		r.clients[c.Platform()] = c
	}
	return r
}

// Client returns the client for a platform, or false if none is registered.
func (r *Registry) Client(platform models.Platform) (PlatformClient, bool) {
	c, ok := r.clients[platform]
	return c, ok
}

// Register adds or replaces the client for its platform.
func (r *Registry) Register(c PlatformClient) {
	r.clients[c.Platform()] = c
}
