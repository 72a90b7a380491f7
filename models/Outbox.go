package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	OutboxPending = "pending"
	OutboxDone    = "done"
	OutboxFailed  = "failed"
)

// SyncOutbox queues mirror-store writes. Rows are drained by the mirror
// worker; failures stay visible here instead of being logged and dropped.
type SyncOutbox struct {
	gorm.Model
	Resource    string         `json:"resource" gorm:"size:32;not null;index"` // reservation, accommodation, availability
	ResourceRef string         `json:"resourceRef" gorm:"size:64;not null;index"`
	Payload     datatypes.JSON `json:"payload" gorm:"not null"`
	Status      string         `json:"status" gorm:"size:16;default:pending;index"`
	Attempts    int            `json:"attempts"`
	LastError   string         `json:"lastError"`
	SyncedAt    *time.Time     `json:"syncedAt"`
}
