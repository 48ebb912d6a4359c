package models

import "time"

// User represents a cohort member identified by their external chat identity.
type User struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	FullName     string    `gorm:"size:255;not null" json:"full_name"`
	Username     string    `gorm:"size:64" json:"username"`
	RegisteredAt time.Time `gorm:"autoCreateTime" json:"registered_at"`
}
