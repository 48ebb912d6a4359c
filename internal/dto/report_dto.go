package dto

import "github.com/noah-isme/darsbot-api/internal/models"

// HistoryResponse summarizes one user's submissions and total score.
type HistoryResponse struct {
	UserID      int64                `json:"user_id"`
	Total       int                  `json:"total"`
	Submissions []SubmissionResponse `json:"submissions"`
}

// NonSubmitter identifies a registered user without a submission for a lesson.
type NonSubmitter struct {
	UserID   int64  `json:"user_id"`
	FullName string `json:"full_name"`
}

// NewNonSubmitters converts user models into report rows.
func NewNonSubmitters(users []models.User) []NonSubmitter {
	rows := make([]NonSubmitter, 0, len(users))
	for _, user := range users {
		rows = append(rows, NonSubmitter{UserID: user.ID, FullName: user.FullName})
	}
	return rows
}
