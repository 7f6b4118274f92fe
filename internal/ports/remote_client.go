package ports

import (
	"context"
	"encoding/json"
	"time"

	"commerce-sync-core/internal/domain"
)

// DefaultPageSize is the largest page the remote platform serves
const DefaultPageSize = 250

// ListOptions selects a page of remote records
type ListOptions struct {
	SinceID      int64
	Limit        int
	UpdatedAtMin *time.Time
}

// Page is one page of raw remote records in ascending remote id order
type Page struct {
	Records []json.RawMessage
	LastID  int64
}

// RemoteClient talks to the remote commerce platform on behalf of one store
type RemoteClient interface {
	// Verify checks the store credential and returns shop metadata
	Verify(ctx context.Context) (*domain.ShopInfo, error)

	// List returns the page of records with remote id greater than opts.SinceID.
	// A page shorter than opts.Limit is the last one.
	List(ctx context.Context, resource domain.ResourceType, opts ListOptions) (*Page, error)

	// Count returns the number of remote records of a resource
	Count(ctx context.Context, resource domain.ResourceType) (int, error)

	// RegisterWebhook subscribes callbackURL to topic
	RegisterWebhook(ctx context.Context, topic domain.WebhookTopic, callbackURL string) (*domain.WebhookDescriptor, error)

	// ListWebhooks returns the store's current webhook subscriptions
	ListWebhooks(ctx context.Context) ([]domain.WebhookDescriptor, error)
}

// RemoteClientFactory builds a RemoteClient for a store's domain and credential
type RemoteClientFactory interface {
	NewClient(shopDomain string, accessToken string) (RemoteClient, error)
}
