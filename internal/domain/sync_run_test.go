package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from SyncState
		to   SyncState
		want bool
	}{
		{SyncStatePending, SyncStateFetching, true},
		{SyncStatePending, SyncStatePersisting, false},
		{SyncStateFetching, SyncStateTransforming, true},
		{SyncStateTransforming, SyncStatePersisting, true},
		{SyncStatePersisting, SyncStateFetching, true},
		{SyncStatePersisting, SyncStateCompleted, true},
		{SyncStateFetching, SyncStateCompleted, false},
		{SyncStatePending, SyncStateFailed, true},
		{SyncStateTransforming, SyncStateFailed, true},
		{SyncStateCompleted, SyncStateFailed, false},
		{SyncStateFailed, SyncStateFetching, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestSyncRun_Lifecycle(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	run := NewSyncRun("tenant-1", "store-1", SyncTypeFull, now)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, SyncStatePending, run.State)

	require.NoError(t, run.TransitionTo(SyncStateFetching))
	require.NoError(t, run.TransitionTo(SyncStateTransforming))
	require.NoError(t, run.TransitionTo(SyncStatePersisting))
	require.Error(t, run.TransitionTo(SyncStateTransforming))
	require.NoError(t, run.Complete(now))

	assert.Equal(t, SyncStateCompleted, run.State)
	assert.Equal(t, now, *run.FinishedAt)

	run.Fail("late failure", now)
	assert.Equal(t, SyncStateCompleted, run.State)
	assert.Empty(t, run.FailureReason)
}

func TestSyncRun_RecordPageAndWatermark(t *testing.T) {
	t1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)

	run := NewSyncRun("tenant-1", "store-1", SyncTypeIncremental, t1)
	run.RecordPage(ResourceOrders, 10, 2, 0, &t1)
	run.RecordPage(ResourceOrders, 20, 3, 1, &t2)
	run.RecordPage(ResourceCustomers, 5, 1, 0, nil)

	orders := run.Progress[ResourceOrders]
	assert.Equal(t, int64(20), orders.LastRemoteID)
	assert.Equal(t, 2, orders.Pages)
	assert.Equal(t, 5, orders.Processed)
	assert.Equal(t, 1, orders.Skipped)
	assert.Equal(t, 6, run.Processed)
	assert.Equal(t, t2, *run.MaxUpdatedAt())

	store := &Store{
		SyncWatermark: &t1,
		SyncCursors:   map[ResourceType]time.Time{ResourceProducts: t1},
	}
	wm := run.Watermark(store, t3)

	assert.Equal(t, t2, *wm.UpdatedAt)
	assert.Equal(t, t2, wm.Cursors[ResourceOrders])
	assert.Equal(t, t1, wm.Cursors[ResourceProducts])
	_, hasCustomers := wm.Cursors[ResourceCustomers]
	assert.False(t, hasCustomers)
	assert.Equal(t, t3, wm.SyncedAt)
}

func TestSyncRun_WatermarkNeverMovesBackwards(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)

	run := NewSyncRun("tenant-1", "store-1", SyncTypeFull, newer)
	run.RecordPage(ResourceOrders, 1, 1, 0, &older)

	wm := run.Watermark(&Store{SyncWatermark: &newer}, newer)
	assert.Equal(t, newer, *wm.UpdatedAt)
}

func TestParseSyncType(t *testing.T) {
	st, err := ParseSyncType("full")
	require.NoError(t, err)
	assert.Equal(t, SyncTypeFull, st)

	st, err = ParseSyncType("")
	require.NoError(t, err)
	assert.Equal(t, SyncTypeIncremental, st)

	_, err = ParseSyncType("partial")
	assert.True(t, IsValidationError(err))
}
