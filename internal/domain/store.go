package domain

import (
	"strings"
	"time"
)

// ConnectionStatus is the state of a store's link to the remote platform
type ConnectionStatus string

const (
	StoreStatusConnected    ConnectionStatus = "connected"
	StoreStatusDisconnected ConnectionStatus = "disconnected"
	StoreStatusFailed       ConnectionStatus = "failed"
)

// SyncFrequency controls how often the scheduler runs an incremental sync
type SyncFrequency string

const (
	SyncFrequencyHourly SyncFrequency = "hourly"
	SyncFrequencyDaily  SyncFrequency = "daily"
	SyncFrequencyWeekly SyncFrequency = "weekly"
	SyncFrequencyManual SyncFrequency = "manual"
)

// IsValid checks if the frequency is one of the known values
func (f SyncFrequency) IsValid() bool {
	switch f {
	case SyncFrequencyHourly, SyncFrequencyDaily, SyncFrequencyWeekly, SyncFrequencyManual:
		return true
	}
	return false
}

// Interval returns the scheduling period, or 0 for manual
func (f SyncFrequency) Interval() time.Duration {
	switch f {
	case SyncFrequencyHourly:
		return time.Hour
	case SyncFrequencyDaily:
		return 24 * time.Hour
	case SyncFrequencyWeekly:
		return 7 * 24 * time.Hour
	}
	return 0
}

// Store is a remote shop connected by a tenant
type Store struct {
	ID             string                     `json:"id"`
	TenantID       string                     `json:"tenant_id"`
	ShopDomain     string                     `json:"shop_domain"`
	AccessToken    string                     `json:"-"`
	ShopName       string                     `json:"shop_name"`
	Email          string                     `json:"email"`
	Currency       string                     `json:"currency"`
	Timezone       string                     `json:"timezone"`
	PlanName       string                     `json:"plan_name"`
	Status         ConnectionStatus           `json:"status"`
	SyncFrequency  SyncFrequency              `json:"sync_frequency"`
	Settings       map[string]string          `json:"settings"`
	LastSyncAt     *time.Time                 `json:"last_sync_at,omitempty"`
	SyncWatermark  *time.Time                 `json:"sync_watermark,omitempty"`
	SyncCursors    map[ResourceType]time.Time `json:"sync_cursors"`
	SyncInProgress bool                       `json:"sync_in_progress"`
	CreatedAt      time.Time                  `json:"created_at"`
	UpdatedAt      time.Time                  `json:"updated_at"`
	DisconnectedAt *time.Time                 `json:"disconnected_at,omitempty"`
}

// Watermark is what a completed run writes back to its store
type Watermark struct {
	UpdatedAt *time.Time
	Cursors   map[ResourceType]time.Time
	SyncedAt  time.Time
}

// IsConnected reports whether the store can be synced
func (s *Store) IsConnected() bool {
	return s.Status == StoreStatusConnected && s.AccessToken != ""
}

// IsDisconnected reports whether the store was disconnected or uninstalled.
// A failed store still receives webhooks.
func (s *Store) IsDisconnected() bool {
	return s.Status == StoreStatusDisconnected
}

// IncrementalSince returns the lower bound for an incremental fetch: the
// minimum of the store watermark and every per-resource cursor. Nil means
// nothing has been synced yet and every page must be walked.
func (s *Store) IncrementalSince() *time.Time {
	if s.SyncWatermark == nil {
		return nil
	}
	since := *s.SyncWatermark
	for _, cursor := range s.SyncCursors {
		if cursor.Before(since) {
			since = cursor
		}
	}
	return &since
}

// SyncDue reports whether the scheduler should start a run at now
func (s *Store) SyncDue(now time.Time) bool {
	if !s.IsConnected() || s.SyncInProgress {
		return false
	}
	interval := s.SyncFrequency.Interval()
	if interval == 0 {
		return false
	}
	if s.LastSyncAt == nil {
		return true
	}
	return !now.Before(s.LastSyncAt.Add(interval))
}

// ApplyShopInfo copies verified shop metadata onto the store
func (s *Store) ApplyShopInfo(info *ShopInfo) {
	if info == nil {
		return
	}
	s.ShopName = info.Name
	s.Email = info.Email
	s.Currency = info.Currency
	s.Timezone = info.Timezone
	s.PlanName = info.PlanName
}

// Disconnect soft-deletes the store: the row stays, the credential goes
func (s *Store) Disconnect(now time.Time) {
	s.Status = StoreStatusDisconnected
	s.AccessToken = ""
	s.SyncInProgress = false
	s.DisconnectedAt = &now
	s.UpdatedAt = now
}

// NormalizeShopDomain lowercases the domain, strips any scheme or path and
// appends .myshopify.com to bare shop names
func NormalizeShopDomain(shopDomain string) string {
	d := strings.ToLower(strings.TrimSpace(shopDomain))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	if i := strings.IndexByte(d, '/'); i >= 0 {
		d = d[:i]
	}
	if d == "" {
		return ""
	}
	if !strings.Contains(d, ".") {
		d += ".myshopify.com"
	}
	return d
}

// ShopInfo is the metadata returned when a store's credential is verified
type ShopInfo struct {
	RemoteID        int64  `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Domain          string `json:"domain"`
	MyshopifyDomain string `json:"myshopify_domain"`
	Currency        string `json:"currency"`
	Timezone        string `json:"iana_timezone"`
	PlanName        string `json:"plan_name"`
}

// WebhookDescriptor is a webhook subscription registered on the remote platform
type WebhookDescriptor struct {
	RemoteID  int64      `json:"id"`
	Topic     string     `json:"topic"`
	Address   string     `json:"address"`
	Format    string     `json:"format"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}
