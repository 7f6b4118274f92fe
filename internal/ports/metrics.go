package ports

import (
	"time"

	"commerce-sync-core/internal/domain"
)

// SyncMetrics records sync and webhook activity
type SyncMetrics interface {
	RunStarted(syncType domain.SyncType)
	RunFinished(syncType domain.SyncType, state domain.SyncState, duration time.Duration)
	RecordsPersisted(resource domain.ResourceType, count int)
	PageFetched(resource domain.ResourceType, duration time.Duration)
	WebhookProcessed(topic string, outcome string)
}
