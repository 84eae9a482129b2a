// Package admin implements the cross-region fan-out and reconciliation
// layer behind the dashboard listing endpoints: per-region source
// resolution (direct, proxy or missing), merge-sorted pagination across
// both regions, and the diagnostic source statuses attached to every
// aggregate response.
package admin

import (
	"time"

	"github.com/nicepick/backend/internal/region"
	"github.com/shopspring/decimal"
)

// UserRow is the normalized consumer account record.
// IDs are unique only within their region; cross-region identity is
// never assumed.
type UserRow struct {
	ID        string        `json:"id"`
	Region    region.Region `json:"region"`
	CreatedAt *time.Time    `json:"createdAt"`
	Email     string        `json:"email,omitempty"`
	Nickname  string        `json:"nickname,omitempty"`
	Tier      string        `json:"tier,omitempty"`
	Status    string        `json:"status,omitempty"`
}

// OrderRow is the normalized order record
type OrderRow struct {
	ID        string          `json:"id"`
	Region    region.Region   `json:"region"`
	CreatedAt *time.Time      `json:"createdAt"`
	UserID    string          `json:"userId,omitempty"`
	Channel   string          `json:"channel,omitempty"`
	Status    string          `json:"status,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency,omitempty"`
}

// PaymentRow is the normalized payment record
type PaymentRow struct {
	ID        string          `json:"id"`
	Region    region.Region   `json:"region"`
	CreatedAt *time.Time      `json:"createdAt"`
	OrderID   string          `json:"orderId,omitempty"`
	Method    string          `json:"method,omitempty"`
	Status    string          `json:"status,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency,omitempty"`
}

// ReleaseRow is the normalized app release record
type ReleaseRow struct {
	ID        string        `json:"id"`
	Region    region.Region `json:"region"`
	CreatedAt *time.Time    `json:"createdAt"`
	Version   string        `json:"version,omitempty"`
	Platform  string        `json:"platform,omitempty"`
	Channel   string        `json:"channel,omitempty"`
	Active    bool          `json:"active"`
	FileKey   string        `json:"fileKey,omitempty"`
	Notes     string        `json:"notes,omitempty"`
}

// DeviceStatRow is the normalized device analytics record
type DeviceStatRow struct {
	ID         string        `json:"id"`
	Region     region.Region `json:"region"`
	CreatedAt  *time.Time    `json:"createdAt"`
	Platform   string        `json:"platform,omitempty"`
	OSVersion  string        `json:"osVersion,omitempty"`
	AppVersion string        `json:"appVersion,omitempty"`
	EventType  string        `json:"eventType,omitempty"`
	Count      int64         `json:"count"`
}

// Sort-key accessors handed to the reconciler. Rows with a nil
// timestamp sort after everything else in the merged window.

func (r UserRow) SortTime() *time.Time       { return r.CreatedAt }
func (r OrderRow) SortTime() *time.Time      { return r.CreatedAt }
func (r PaymentRow) SortTime() *time.Time    { return r.CreatedAt }
func (r ReleaseRow) SortTime() *time.Time    { return r.CreatedAt }
func (r DeviceStatRow) SortTime() *time.Time { return r.CreatedAt }

// Timestamped is satisfied by every entity row type
type Timestamped interface {
	SortTime() *time.Time
}
