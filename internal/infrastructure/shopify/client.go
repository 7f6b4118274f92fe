package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"commerce-sync-core/internal/domain"
	"commerce-sync-core/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// restClient is the part of the go-shopify client the adapter uses
type restClient interface {
	Get(ctx context.Context, path string, resource, options interface{}) error
	Post(ctx context.Context, path string, data, resource interface{}) error
	Count(ctx context.Context, path string, options interface{}) (int, error)
}

var _ restClient = (*goshopify.Client)(nil)

// ClientFactory creates a RemoteClient per store
type ClientFactory struct {
	app     goshopify.App
	timeout time.Duration
	logger  zerolog.Logger
}

// NewClientFactory creates a factory for Shopify Admin API clients. Every
// remote call made by its clients is bounded by timeout.
func NewClientFactory(apiKey, apiSecret string, timeout time.Duration, logger zerolog.Logger) *ClientFactory {
	return &ClientFactory{
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		timeout: timeout,
		logger:  logger,
	}
}

var _ ports.RemoteClientFactory = (*ClientFactory)(nil)

// NewClient creates a client for one store
func (f *ClientFactory) NewClient(shopDomain string, accessToken string) (ports.RemoteClient, error) {
	if shopDomain == "" || accessToken == "" {
		return nil, &domain.AuthError{Shop: shopDomain, Message: "missing shop domain or access token"}
	}
	rc, err := goshopify.NewClient(f.app, shopDomain, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return newClient(rc, shopDomain, f.timeout, f.logger), nil
}

type client struct {
	rest    restClient
	shop    string
	timeout time.Duration
	logger  zerolog.Logger
}

func newClient(rest restClient, shop string, timeout time.Duration, logger zerolog.Logger) *client {
	return &client{
		rest:    rest,
		shop:    shop,
		timeout: timeout,
		logger:  logger.With().Str("shop", shop).Logger(),
	}
}

type listQuery struct {
	SinceID      int64  `url:"since_id,omitempty"`
	Limit        int    `url:"limit,omitempty"`
	UpdatedAtMin string `url:"updated_at_min,omitempty"`
	Status       string `url:"status,omitempty"`
}

type countQuery struct {
	Status string `url:"status,omitempty"`
}

// Orders are filtered to open ones unless status=any is requested
func statusFor(resource domain.ResourceType) string {
	if resource == domain.ResourceOrders {
		return "any"
	}
	return ""
}

func (c *client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Verify checks the credential by fetching the shop resource
func (c *client) Verify(ctx context.Context) (*domain.ShopInfo, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var body struct {
		Shop *domain.ShopInfo `json:"shop"`
	}
	if err := c.rest.Get(ctx, "shop.json", &body, nil); err != nil {
		return nil, c.mapError(ctx, "verify shop", err)
	}
	if body.Shop == nil {
		return nil, &domain.RemoteError{Status: http.StatusOK, Message: "malformed shop response: missing shop"}
	}
	return body.Shop, nil
}

// List fetches one page of a resource
func (c *client) List(ctx context.Context, resource domain.ResourceType, opts ports.ListOptions) (*ports.Page, error) {
	if !resource.IsValid() {
		return nil, domain.NewValidationError("resource", fmt.Sprintf("unknown resource %q", resource))
	}
	limit := opts.Limit
	if limit <= 0 || limit > ports.DefaultPageSize {
		limit = ports.DefaultPageSize
	}
	query := listQuery{
		SinceID: opts.SinceID,
		Limit:   limit,
		Status:  statusFor(resource),
	}
	if opts.UpdatedAtMin != nil {
		query.UpdatedAtMin = opts.UpdatedAtMin.Format(time.RFC3339)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var body map[string]json.RawMessage
	if err := c.rest.Get(ctx, fmt.Sprintf("%s.json", resource), &body, query); err != nil {
		return nil, c.mapError(ctx, "list "+resource.String(), err)
	}

	rawRecords, ok := body[resource.String()]
	if !ok {
		return nil, &domain.RemoteError{Status: http.StatusOK, Message: fmt.Sprintf("malformed %s response: missing %q", resource, resource)}
	}
	var records []json.RawMessage
	if err := json.Unmarshal(rawRecords, &records); err != nil {
		return nil, &domain.RemoteError{Status: http.StatusOK, Message: fmt.Sprintf("malformed %s response", resource), Err: err}
	}

	page := &ports.Page{Records: records}
	for _, record := range records {
		var ref struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(record, &ref); err != nil {
			return nil, &domain.RemoteError{Status: http.StatusOK, Message: fmt.Sprintf("malformed %s record", resource), Err: err}
		}
		if ref.ID > page.LastID {
			page.LastID = ref.ID
		}
	}

	c.logger.Debug().
		Str("resource", resource.String()).
		Int64("sinceId", opts.SinceID).
		Int("count", len(records)).
		Msg("Fetched page")

	return page, nil
}

// Count returns the remote record count of a resource
func (c *client) Count(ctx context.Context, resource domain.ResourceType) (int, error) {
	if !resource.IsValid() {
		return 0, domain.NewValidationError("resource", fmt.Sprintf("unknown resource %q", resource))
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	count, err := c.rest.Count(ctx, fmt.Sprintf("%s/count.json", resource), countQuery{Status: statusFor(resource)})
	if err != nil {
		return 0, c.mapError(ctx, "count "+resource.String(), err)
	}
	return count, nil
}

// RegisterWebhook subscribes callbackURL to a topic
func (c *client) RegisterWebhook(ctx context.Context, topic domain.WebhookTopic, callbackURL string) (*domain.WebhookDescriptor, error) {
	if !topic.IsValid() {
		return nil, domain.NewValidationError("topic", "unknown webhook topic")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	request := map[string]interface{}{
		"webhook": goshopify.Webhook{
			Topic:   topic.String(),
			Address: callbackURL,
			Format:  "json",
		},
	}
	var body struct {
		Webhook *domain.WebhookDescriptor `json:"webhook"`
	}
	if err := c.rest.Post(ctx, "webhooks.json", request, &body); err != nil {
		return nil, c.mapError(ctx, "register webhook "+topic.String(), err)
	}
	if body.Webhook == nil {
		return nil, &domain.RemoteError{Status: http.StatusOK, Message: "malformed webhook response: missing webhook"}
	}
	return body.Webhook, nil
}

// ListWebhooks returns the store's webhook subscriptions
func (c *client) ListWebhooks(ctx context.Context) ([]domain.WebhookDescriptor, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var body struct {
		Webhooks []domain.WebhookDescriptor `json:"webhooks"`
	}
	if err := c.rest.Get(ctx, "webhooks.json", &body, nil); err != nil {
		return nil, c.mapError(ctx, "list webhooks", err)
	}
	if body.Webhooks == nil {
		return []domain.WebhookDescriptor{}, nil
	}
	return body.Webhooks, nil
}

// mapError converts go-shopify and transport errors into the domain taxonomy
func (c *client) mapError(ctx context.Context, op string, err error) error {
	var rateErr goshopify.RateLimitError
	if errors.As(err, &rateErr) {
		return &domain.RemoteError{Status: http.StatusTooManyRequests, Message: fmt.Sprintf("%s: rate limited, retry after %ds", op, rateErr.RetryAfter), Err: err}
	}

	status, message, ok := responseStatus(err)
	if ok {
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			c.logger.Warn().Int("status", status).Str("op", op).Msg("Remote platform rejected credential")
			return &domain.AuthError{Shop: c.shop, Message: message}
		}
		return &domain.RemoteError{Status: status, Message: fmt.Sprintf("%s: %s", op, message), Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &domain.RemoteError{Message: fmt.Sprintf("%s: request timed out after %s", op, c.timeout), Err: err}
	}
	return &domain.RemoteError{Message: fmt.Sprintf("%s: %v", op, err), Err: err}
}

func responseStatus(err error) (int, string, bool) {
	var respErr goshopify.ResponseError
	if errors.As(err, &respErr) {
		return respErr.Status, respErr.Error(), true
	}
	var respErrPtr *goshopify.ResponseError
	if errors.As(err, &respErrPtr) && respErrPtr != nil {
		return respErrPtr.Status, respErrPtr.Error(), true
	}
	return 0, "", false
}
