// Package audit records one row per TCP client session: who connected,
// when, for how long and how many events they sent.
package audit

import (
	"context"
	"time"
)

type Session struct {
	ID             string     `gorm:"type:uuid;primaryKey" json:"id"`
	Address        string     `gorm:"size:255;not null" json:"address"`
	ConnectedAt    time.Time  `gorm:"not null;index" json:"connected_at"`
	DisconnectedAt *time.Time `json:"disconnected_at,omitempty"`
	EventsSent     int64      `gorm:"not null;default:0" json:"events_sent"`
}

func (Session) TableName() string {
	return "relay_sessions"
}

// Store persists sessions.
type Store interface {
	Open(ctx context.Context, s *Session) error
	Close(ctx context.Context, id string, at time.Time, eventsSent int64) error
	Recent(ctx context.Context, limit int) ([]Session, error)
}
