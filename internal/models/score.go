package models

import "time"

// ScoreEvent is an immutable ledger entry recording a point change and its reason.
type ScoreEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	Points    int       `gorm:"not null" json:"points"`
	Reason    string    `gorm:"size:255" json:"reason"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// ScoreTotal caches the running sum of a user's score events. It must always
// equal the sum of that user's events; the events are the source of truth.
type ScoreTotal struct {
	UserID int64 `gorm:"primaryKey" json:"user_id"`
	Total  int   `gorm:"not null;default:0" json:"total"`
}
