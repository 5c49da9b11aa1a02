package device

import "time"

type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"

	defaultKind = "unknown"
)

// Device is a wearable bound to exactly one owning user. ExternalID is the
// provider-supplied serial and is unique across all devices.
type Device struct {
	ID         uint       `json:"id" gorm:"primaryKey;column:id"`
	UserID     uint       `json:"user_id" gorm:"column:user_id;not null;index"`
	Kind       string     `json:"device_type" gorm:"column:device_type;size:50;not null"`
	ExternalID string     `json:"device_id" gorm:"column:device_id;size:100;not null;uniqueIndex"`
	Status     Status     `json:"status" gorm:"column:status;size:20;not null;default:connected"`
	LastSync   *time.Time `json:"last_sync" gorm:"column:last_sync"`
	CreatedAt  time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (Device) TableName() string {
	return "wearable_devices"
}
