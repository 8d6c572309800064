package models

import (
	"time"
)

const (
	KindActive     = "active"
	KindReturnIdle = "return"
)

// ActivityRecord mirrors one emitted log line
type ActivityRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Timestamp     time.Time `gorm:"not null;index" json:"timestamp"`
	Kind          string    `gorm:"not null;index" json:"kind"` // "active" or "return"
	IdleMs        int64     `gorm:"not null;default:0" json:"idle_ms"`
	Load1         float64   `gorm:"not null;default:0" json:"load1"`
	Load5         float64   `gorm:"not null;default:0" json:"load5"`
	Load15        float64   `gorm:"not null;default:0" json:"load15"`
	WindowClasses string    `gorm:"not null;default:''" json:"window_classes"` // Comma-joined, as in the log line
	WindowName    string    `gorm:"not null;default:''" json:"window_name"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}
