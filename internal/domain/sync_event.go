package domain

import "time"

// SyncEventKind distinguishes run progress from webhook activity
type SyncEventKind string

const (
	SyncEventRun     SyncEventKind = "run"
	SyncEventWebhook SyncEventKind = "webhook"
)

// SyncEvent is published to live subscribers of a tenant's sync activity
type SyncEvent struct {
	Kind      SyncEventKind `json:"kind"`
	TenantID  string        `json:"tenant_id"`
	StoreID   string        `json:"store_id"`
	RunID     string        `json:"run_id,omitempty"`
	State     SyncState     `json:"state,omitempty"`
	Processed int           `json:"processed,omitempty"`
	Topic     string        `json:"topic,omitempty"`
	Message   string        `json:"message,omitempty"`
	At        time.Time     `json:"at"`
}
