package models

import "time"

// AdminGrant marks a user as a reviewing admin. The super admin identity is
// configuration, not a stored grant.
type AdminGrant struct {
	UserID    int64     `gorm:"primaryKey" json:"user_id"`
	GrantedBy int64     `json:"granted_by"`
	CreatedAt time.Time `json:"created_at"`
}
