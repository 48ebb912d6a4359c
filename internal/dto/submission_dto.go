package dto

import (
	"time"

	"github.com/noah-isme/darsbot-api/internal/models"
)

// Submit outcomes describe which intake branch fired for an inbound document.
const (
	OutcomeIgnored      = "ignored"
	OutcomeRejected     = "rejected"
	OutcomeCreatedFirst = "created_first"
	OutcomeCreated      = "created"
	OutcomeResubmitted  = "resubmitted"
)

// SubmitInput carries an inbound document through the intake pipeline.
type SubmitInput struct {
	UserID     int64  `validate:"required"`
	FullName   string `validate:"required"`
	Username   string
	Caption    string
	Filename   string `validate:"required"`
	FileRef    string `validate:"required"`
	ReplyToBot bool
}

// SubmitResult reports the intake outcome so the transport can notify the user.
type SubmitResult struct {
	Outcome       string             `json:"outcome"`
	LessonNumber  int                `json:"lesson_number"`
	PointsAwarded int                `json:"points_awarded"`
	Submission    SubmissionResponse `json:"submission"`
}

// Accepted reports whether the intake stored (or replaced) a submission.
func (r SubmitResult) Accepted() bool {
	switch r.Outcome {
	case OutcomeCreatedFirst, OutcomeCreated, OutcomeResubmitted:
		return true
	}
	return false
}

// SubmissionResponse is returned when viewing submissions.
type SubmissionResponse struct {
	ID           uint      `json:"id"`
	UserID       int64     `json:"user_id"`
	FullName     string    `json:"full_name"`
	LessonNumber int       `json:"lesson_number"`
	FileRef      string    `json:"file_ref"`
	Filename     string    `json:"filename"`
	Status       string    `json:"status"`
	Comment      string    `json:"comment"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:           model.ID,
		UserID:       model.UserID,
		FullName:     model.User.FullName,
		LessonNumber: model.LessonNumber,
		FileRef:      model.FileRef,
		Filename:     model.Filename,
		Status:       model.Status,
		Comment:      model.Comment,
		SubmittedAt:  model.SubmittedAt,
	}
}

// NewSubmissionResponseSlice converts a slice of models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}
	return responses
}
