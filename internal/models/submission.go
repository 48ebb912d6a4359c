package models

import "time"

// SubmissionStatus enumerates possible review states for a submission.
const (
	SubmissionStatusPending       = "pending"
	SubmissionStatusApproved      = "approved"
	SubmissionStatusNeedsRevision = "needs_revision"
)

// Submission represents a user's latest homework file for a lesson number.
// At most one row exists per (user, lesson); a resubmission overwrites the
// file reference and resets the review state.
type Submission struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       int64     `gorm:"not null;uniqueIndex:idx_submissions_user_lesson" json:"user_id"`
	LessonNumber int       `gorm:"not null;uniqueIndex:idx_submissions_user_lesson" json:"lesson_number"`
	FileRef      string    `gorm:"size:512;not null" json:"file_ref"`
	Filename     string    `gorm:"size:255;not null" json:"filename"`
	Status       string    `gorm:"size:32;not null;default:pending" json:"status"`
	Comment      string    `gorm:"type:text" json:"comment"`
	SubmittedAt  time.Time `json:"submitted_at"`
	User         User      `json:"user"`
}

// IsReviewed reports whether an admin has issued a decision for the current content.
func (s Submission) IsReviewed() bool {
	return s.Status != SubmissionStatusPending
}
