package pubsub

import (
	"context"
	"fmt"
	"sync"

	"commerce-sync-core/internal/domain"
	"commerce-sync-core/internal/ports"

	"github.com/rs/zerolog"
)

// subscriptionBuffer is the number of events a slow subscriber may lag behind
// before events are dropped for it
const subscriptionBuffer = 32

// SyncEventChannel represents a subscription channel
type SyncEventChannel struct {
	ID     string
	Filter SyncEventFilter
	Events chan *domain.SyncEvent
	Done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// SyncEventFilter filters sync events. TenantID is mandatory so a
// subscriber only ever sees its own tenant's activity.
type SyncEventFilter struct {
	TenantID string
	StoreID  string
	Kinds    []domain.SyncEventKind
}

// SyncPubSub fans run transitions and webhook events out to live subscribers
type SyncPubSub struct {
	mu       sync.RWMutex
	channels map[string]*SyncEventChannel
	logger   zerolog.Logger
	nextID   int64
}

// NewSyncPubSub creates a new sync event pub/sub system
func NewSyncPubSub(logger zerolog.Logger) *SyncPubSub {
	return &SyncPubSub{
		channels: make(map[string]*SyncEventChannel),
		logger:   logger,
	}
}

var _ ports.SyncEventPublisher = (*SyncPubSub)(nil)

// Subscribe creates a subscription that lives until ctx is cancelled or
// Unsubscribe is called
func (ps *SyncPubSub) Subscribe(ctx context.Context, filter SyncEventFilter) *SyncEventChannel {
	subCtx, cancel := context.WithCancel(ctx)

	ps.mu.Lock()
	ps.nextID++
	id := fmt.Sprintf("channel-%d", ps.nextID)
	channel := &SyncEventChannel{
		ID:     id,
		Filter: filter,
		Events: make(chan *domain.SyncEvent, subscriptionBuffer),
		Done:   make(chan struct{}),
		ctx:    subCtx,
		cancel: cancel,
	}
	ps.channels[id] = channel
	ps.mu.Unlock()

	ps.logger.Debug().
		Str("channelId", id).
		Str("tenantId", filter.TenantID).
		Str("storeId", filter.StoreID).
		Msg("Sync event subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(id)
	}()

	return channel
}

// Unsubscribe removes a subscription channel and closes it
func (ps *SyncPubSub) Unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.Events)
	close(channel.Done)
	channel.cancel()
	delete(ps.channels, channelID)

	ps.logger.Debug().
		Str("channelId", channelID).
		Msg("Sync event subscription removed")
}

// Publish delivers event to every matching subscriber without blocking.
// A subscriber whose buffer is full misses the event.
func (ps *SyncPubSub) Publish(event *domain.SyncEvent) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, channel := range ps.channels {
		if !matchesFilter(event, channel.Filter) {
			continue
		}
		select {
		case channel.Events <- event:
		case <-channel.ctx.Done():
		default:
			ps.logger.Warn().
				Str("channelId", channel.ID).
				Msg("Channel buffer full, dropping event")
		}
	}
}

func matchesFilter(event *domain.SyncEvent, filter SyncEventFilter) bool {
	if event.TenantID != filter.TenantID {
		return false
	}
	if filter.StoreID != "" && event.StoreID != filter.StoreID {
		return false
	}
	if len(filter.Kinds) > 0 {
		for _, kind := range filter.Kinds {
			if event.Kind == kind {
				return true
			}
		}
		return false
	}
	return true
}

// SubscriberCount returns the number of active subscriptions
func (ps *SyncPubSub) SubscriberCount() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.channels)
}
