package application

import (
	"time"

	"commerce-sync-core/internal/domain"
)

type noopMetrics struct{}

func (noopMetrics) RunStarted(domain.SyncType)                                   {}
func (noopMetrics) RunFinished(domain.SyncType, domain.SyncState, time.Duration) {}
func (noopMetrics) RecordsPersisted(domain.ResourceType, int)                    {}
func (noopMetrics) PageFetched(domain.ResourceType, time.Duration)               {}
func (noopMetrics) WebhookProcessed(string, string)                              {}

type noopPublisher struct{}

func (noopPublisher) Publish(*domain.SyncEvent) {}
