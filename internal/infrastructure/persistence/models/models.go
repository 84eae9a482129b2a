// Package models holds the GORM models for the INTL relational backend.
package models

import (
	"time"

	"github.com/nicepick/backend/internal/admin"
	"github.com/nicepick/backend/internal/region"
	"github.com/shopspring/decimal"
)

// UserModel is the INTL consumer account row
type UserModel struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	Email     string `gorm:"index"`
	Nickname  string
	Tier      string `gorm:"index"`
	Status    string `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for UserModel
func (UserModel) TableName() string { return "users" }

// ToRow converts the model to the normalized admin row
func (m *UserModel) ToRow() admin.UserRow {
	return admin.UserRow{
		ID:        m.ID,
		Region:    region.INTL,
		CreatedAt: admin.ParseFlexibleTime(m.CreatedAt),
		Email:     m.Email,
		Nickname:  m.Nickname,
		Tier:      m.Tier,
		Status:    m.Status,
	}
}

// OrderModel is the INTL order row
type OrderModel struct {
	ID        string          `gorm:"primaryKey;type:uuid"`
	UserID    string          `gorm:"index"`
	Channel   string          `gorm:"index"`
	Status    string          `gorm:"index"`
	Amount    decimal.Decimal `gorm:"type:numeric(12,2)"`
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for OrderModel
func (OrderModel) TableName() string { return "orders" }

// ToRow converts the model to the normalized admin row
func (m *OrderModel) ToRow() admin.OrderRow {
	return admin.OrderRow{
		ID:        m.ID,
		Region:    region.INTL,
		CreatedAt: admin.ParseFlexibleTime(m.CreatedAt),
		UserID:    m.UserID,
		Channel:   m.Channel,
		Status:    m.Status,
		Amount:    m.Amount,
		Currency:  m.Currency,
	}
}

// PaymentModel is the INTL payment row
type PaymentModel struct {
	ID        string          `gorm:"primaryKey;type:uuid"`
	OrderID   string          `gorm:"index"`
	Method    string
	Status    string          `gorm:"index"`
	Amount    decimal.Decimal `gorm:"type:numeric(12,2)"`
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for PaymentModel
func (PaymentModel) TableName() string { return "payments" }

// ToRow converts the model to the normalized admin row
func (m *PaymentModel) ToRow() admin.PaymentRow {
	return admin.PaymentRow{
		ID:        m.ID,
		Region:    region.INTL,
		CreatedAt: admin.ParseFlexibleTime(m.CreatedAt),
		OrderID:   m.OrderID,
		Method:    m.Method,
		Status:    m.Status,
		Amount:    m.Amount,
		Currency:  m.Currency,
	}
}

// ReleaseModel is the INTL app release row
type ReleaseModel struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	Version   string `gorm:"index"`
	Platform  string `gorm:"index"`
	Channel   string `gorm:"index"`
	Active    bool   `gorm:"index"`
	FileKey   string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for ReleaseModel
func (ReleaseModel) TableName() string { return "releases" }

// ToRow converts the model to the normalized admin row
func (m *ReleaseModel) ToRow() admin.ReleaseRow {
	return admin.ReleaseRow{
		ID:        m.ID,
		Region:    region.INTL,
		CreatedAt: admin.ParseFlexibleTime(m.CreatedAt),
		Version:   m.Version,
		Platform:  m.Platform,
		Channel:   m.Channel,
		Active:    m.Active,
		FileKey:   m.FileKey,
		Notes:     m.Notes,
	}
}

// DeviceStatModel is the INTL device analytics row
type DeviceStatModel struct {
	ID         string `gorm:"primaryKey;type:uuid"`
	Platform   string `gorm:"index"`
	OSVersion  string `gorm:"column:os_version"`
	AppVersion string `gorm:"column:app_version"`
	EventType  string `gorm:"index"`
	Count      int64
	CreatedAt  time.Time
}

// TableName returns the table name for DeviceStatModel
func (DeviceStatModel) TableName() string { return "device_stats" }

// ToRow converts the model to the normalized admin row
func (m *DeviceStatModel) ToRow() admin.DeviceStatRow {
	return admin.DeviceStatRow{
		ID:         m.ID,
		Region:     region.INTL,
		CreatedAt:  admin.ParseFlexibleTime(m.CreatedAt),
		Platform:   m.Platform,
		OSVersion:  m.OSVersion,
		AppVersion: m.AppVersion,
		EventType:  m.EventType,
		Count:      m.Count,
	}
}
