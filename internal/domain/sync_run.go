package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SyncType selects between walking everything and walking from the watermark
type SyncType string

const (
	SyncTypeFull        SyncType = "full"
	SyncTypeIncremental SyncType = "incremental"
)

// ParseSyncType validates a sync type coming from the API
func ParseSyncType(s string) (SyncType, error) {
	switch SyncType(s) {
	case SyncTypeFull, SyncTypeIncremental:
		return SyncType(s), nil
	case "":
		return SyncTypeIncremental, nil
	}
	return "", NewValidationError("type", fmt.Sprintf("unknown sync type %q", s))
}

// SyncState is the state of a run
type SyncState string

const (
	SyncStatePending      SyncState = "pending"
	SyncStateFetching     SyncState = "fetching"
	SyncStateTransforming SyncState = "transforming"
	SyncStatePersisting   SyncState = "persisting"
	SyncStateCompleted    SyncState = "completed"
	SyncStateFailed       SyncState = "failed"
)

// IsTerminal reports whether no further transition is allowed
func (s SyncState) IsTerminal() bool {
	return s == SyncStateCompleted || s == SyncStateFailed
}

// failed is reachable from every non-terminal state and is not listed here
var syncTransitions = map[SyncState][]SyncState{
	SyncStatePending:      {SyncStateFetching},
	SyncStateFetching:     {SyncStateTransforming},
	SyncStateTransforming: {SyncStatePersisting},
	SyncStatePersisting:   {SyncStateFetching, SyncStateCompleted},
}

// CanTransitionTo reports whether next is a legal successor of s
func (s SyncState) CanTransitionTo(next SyncState) bool {
	if s.IsTerminal() {
		return false
	}
	if next == SyncStateFailed {
		return true
	}
	for _, allowed := range syncTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ResourceProgress is the per-resource cursor of a run
type ResourceProgress struct {
	LastRemoteID int64      `json:"last_remote_id"`
	Pages        int        `json:"pages"`
	Processed    int        `json:"processed"`
	Skipped      int        `json:"skipped"`
	MaxUpdatedAt *time.Time `json:"max_updated_at,omitempty"`
	Done         bool       `json:"done"`
}

// SyncRun is one orchestrated pass over a single store
type SyncRun struct {
	ID              string                             `json:"id"`
	TenantID        string                             `json:"tenant_id"`
	StoreID         string                             `json:"store_id"`
	Type            SyncType                           `json:"type"`
	State           SyncState                          `json:"state"`
	Progress        map[ResourceType]*ResourceProgress `json:"progress"`
	Processed       int                                `json:"processed"`
	FailureReason   string                             `json:"failure_reason,omitempty"`
	WatermarkBefore *time.Time                         `json:"watermark_before,omitempty"`
	WatermarkAfter  *time.Time                         `json:"watermark_after,omitempty"`
	StartedAt       time.Time                          `json:"started_at"`
	FinishedAt      *time.Time                         `json:"finished_at,omitempty"`
}

// NewSyncRun creates a pending run
func NewSyncRun(tenantID, storeID string, syncType SyncType, now time.Time) *SyncRun {
	return &SyncRun{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		StoreID:   storeID,
		Type:      syncType,
		State:     SyncStatePending,
		Progress:  make(map[ResourceType]*ResourceProgress),
		StartedAt: now,
	}
}

// TransitionTo moves the run to next or returns an error if the move is illegal
func (r *SyncRun) TransitionTo(next SyncState) error {
	if !r.State.CanTransitionTo(next) {
		return fmt.Errorf("illegal sync state transition %s -> %s", r.State, next)
	}
	r.State = next
	return nil
}

// ProgressFor returns the progress entry for a resource, creating it if needed
func (r *SyncRun) ProgressFor(resource ResourceType) *ResourceProgress {
	if r.Progress == nil {
		r.Progress = make(map[ResourceType]*ResourceProgress)
	}
	p, ok := r.Progress[resource]
	if !ok {
		p = &ResourceProgress{}
		r.Progress[resource] = p
	}
	return p
}

// RecordPage accounts for one persisted page
func (r *SyncRun) RecordPage(resource ResourceType, lastRemoteID int64, persisted, skipped int, maxUpdatedAt *time.Time) {
	p := r.ProgressFor(resource)
	p.Pages++
	p.Processed += persisted
	p.Skipped += skipped
	if lastRemoteID > p.LastRemoteID {
		p.LastRemoteID = lastRemoteID
	}
	if maxUpdatedAt != nil && (p.MaxUpdatedAt == nil || maxUpdatedAt.After(*p.MaxUpdatedAt)) {
		t := *maxUpdatedAt
		p.MaxUpdatedAt = &t
	}
	r.Processed += persisted
}

// MaxUpdatedAt is the greatest remote updated_at observed across resources
func (r *SyncRun) MaxUpdatedAt() *time.Time {
	var latest *time.Time
	for _, p := range r.Progress {
		if p.MaxUpdatedAt != nil && (latest == nil || p.MaxUpdatedAt.After(*latest)) {
			latest = p.MaxUpdatedAt
		}
	}
	if latest == nil {
		return nil
	}
	t := *latest
	return &t
}

// Watermark builds the store update for a completed run. The previous
// watermark and cursors are kept for resources that saw no records.
func (r *SyncRun) Watermark(store *Store, now time.Time) Watermark {
	wm := Watermark{
		UpdatedAt: store.SyncWatermark,
		Cursors:   make(map[ResourceType]time.Time, len(store.SyncCursors)),
		SyncedAt:  now,
	}
	for resource, cursor := range store.SyncCursors {
		wm.Cursors[resource] = cursor
	}
	for resource, p := range r.Progress {
		if p.MaxUpdatedAt == nil {
			continue
		}
		if cur, ok := wm.Cursors[resource]; !ok || p.MaxUpdatedAt.After(cur) {
			wm.Cursors[resource] = *p.MaxUpdatedAt
		}
	}
	if latest := r.MaxUpdatedAt(); latest != nil && (wm.UpdatedAt == nil || latest.After(*wm.UpdatedAt)) {
		wm.UpdatedAt = latest
	}
	return wm
}

// Complete marks the run completed
func (r *SyncRun) Complete(now time.Time) error {
	if err := r.TransitionTo(SyncStateCompleted); err != nil {
		return err
	}
	r.FinishedAt = &now
	return nil
}

// Fail marks the run failed with a human-readable reason. Failing a run
// that already finished is a no-op.
func (r *SyncRun) Fail(reason string, now time.Time) {
	if r.State.IsTerminal() {
		return
	}
	r.State = SyncStateFailed
	r.FailureReason = reason
	r.FinishedAt = &now
}

// Clone returns a deep copy that can be handed to another goroutine
func (r *SyncRun) Clone() *SyncRun {
	c := *r
	c.Progress = make(map[ResourceType]*ResourceProgress, len(r.Progress))
	for resource, p := range r.Progress {
		pc := *p
		if p.MaxUpdatedAt != nil {
			t := *p.MaxUpdatedAt
			pc.MaxUpdatedAt = &t
		}
		c.Progress[resource] = &pc
	}
	return &c
}
