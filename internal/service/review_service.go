package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/darsbot-api/internal/dto"
	"github.com/noah-isme/darsbot-api/internal/models"
	"github.com/noah-isme/darsbot-api/internal/observability"
	"github.com/noah-isme/darsbot-api/internal/repository"
)

// ErrReviewSubmissionNotFound indicates the reviewed submission was not located.
var ErrReviewSubmissionNotFound = errors.New("submission not found")

// ErrNoFeedbackSession indicates no open feedback session exists for the sender.
var ErrNoFeedbackSession = errors.New("no feedback session open")

// ErrEmptyFeedback indicates the revision comment was empty after sanitization.
var ErrEmptyFeedback = errors.New("feedback text empty")

// ReviewService drives the per-submission review state machine. All entry
// points authorize the requesting admin before touching any state.
type ReviewService interface {
	Inspect(ctx context.Context, submissionID uint, adminID int64) (dto.FileDelivery, error)
	Approve(ctx context.Context, submissionID uint, adminID int64) (dto.SubmissionResponse, error)
	RequestRevision(ctx context.Context, submissionID uint, adminID, chatID int64) (dto.SubmissionResponse, error)
	SubmitFeedback(ctx context.Context, adminID, chatID int64, text string) (dto.SubmissionResponse, error)
	CancelFeedback(adminID, chatID int64)
	ListForLesson(ctx context.Context, lessonNumber int, adminID int64) ([]dto.ReviewItem, error)
}

type reviewService struct {
	submissions repository.SubmissionRepository
	roster      RosterService
	scores      ScoreService
	notifier    Notifier
	activity    ActivityRecorder
	sessions    *feedbackSessions
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewReviewService constructs the review workflow service.
func NewReviewService(submissions repository.SubmissionRepository, roster RosterService, scores ScoreService, notifier Notifier, activity ActivityRecorder, sessionTTL time.Duration, logger zerolog.Logger) ReviewService {
	return &reviewService{
		submissions: submissions,
		roster:      roster,
		scores:      scores,
		notifier:    notifier,
		activity:    activity,
		sessions:    newFeedbackSessions(sessionTTL),
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "review_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/darsbot-api/internal/service/review"),
	}
}

func (s *reviewService) Inspect(ctx context.Context, submissionID uint, adminID int64) (dto.FileDelivery, error) {
	if err := s.roster.Authorize(ctx, adminID); err != nil {
		return dto.FileDelivery{}, err
	}

	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return dto.FileDelivery{}, err
	}

	delivery := dto.FileDelivery{
		Recipient: adminID,
		FileRef:   submission.FileRef,
		Caption:   fmt.Sprintf("%s - lesson %d (%s)", submission.User.FullName, submission.LessonNumber, submission.Filename),
	}

	if err := s.notifier.DeliverFile(ctx, delivery.Recipient, delivery.FileRef, delivery.Caption); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submissionID).Msg("failed to request file delivery")
	}

	return delivery, nil
}

func (s *reviewService) Approve(ctx context.Context, submissionID uint, adminID int64) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "review.approve", trace.WithAttributes(
		attribute.Int64("review.admin_id", adminID),
		attribute.Int64("review.submission_id", int64(submissionID)),
	))
	defer span.End()

	if err := s.roster.Authorize(ctx, adminID); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	submission.Status = models.SubmissionStatusApproved
	if err := s.submissions.Update(ctx, &submission); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, fmt.Errorf("update submission: %w", err)
	}

	if err := s.scores.Award(ctx, submission.UserID, 1, fmt.Sprintf("lesson %d approved", submission.LessonNumber)); err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submissionID).Msg("failed to award approval bonus")
		span.RecordError(err)
	}

	if s.activity != nil {
		s.activity.Record(ctx, ActivityEntry{
			ActorID:    adminID,
			Action:     "submission.approved",
			EntityType: "submission",
			EntityID:   &submission.ID,
			Metadata: map[string]interface{}{
				"user_id": submission.UserID,
				"lesson":  submission.LessonNumber,
			},
		})
	}

	observability.ReviewDecisions().WithLabelValues(models.SubmissionStatusApproved).Inc()

	// Notifications happen strictly after the store write commits and never
	// roll it back.
	if err := s.notifier.Notify(ctx, submission.UserID, fmt.Sprintf("Lesson %d approved, +1 point", submission.LessonNumber)); err != nil {
		s.logger.Warn().Err(err).Int64("user_id", submission.UserID).Msg("failed to notify submitter of approval")
	}
	if err := s.notifier.Broadcast(ctx, fmt.Sprintf("%s - lesson %d approved", submission.User.FullName, submission.LessonNumber)); err != nil {
		s.logger.Warn().Err(err).Msg("failed to broadcast approval")
	}

	return dto.NewSubmissionResponse(submission), nil
}

// RequestRevision opens a feedback session; the submission itself stays
// untouched until the follow-up text arrives.
func (s *reviewService) RequestRevision(ctx context.Context, submissionID uint, adminID, chatID int64) (dto.SubmissionResponse, error) {
	if err := s.roster.Authorize(ctx, adminID); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.sessions.open(adminID, chatID, submission.ID)
	return dto.NewSubmissionResponse(submission), nil
}

func (s *reviewService) SubmitFeedback(ctx context.Context, adminID, chatID int64, text string) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "review.submit_feedback", trace.WithAttributes(
		attribute.Int64("review.admin_id", adminID),
	))
	defer span.End()

	submissionID, ok := s.sessions.peek(adminID, chatID)
	if !ok {
		return dto.SubmissionResponse{}, ErrNoFeedbackSession
	}

	comment := strings.TrimSpace(s.sanitizer.Sanitize(text))
	if comment == "" {
		// Keep the session open so the admin can retype the comment.
		return dto.SubmissionResponse{}, ErrEmptyFeedback
	}

	submission, err := s.getSubmission(ctx, submissionID)
	if err != nil {
		span.RecordError(err)
		s.sessions.close(adminID, chatID)
		return dto.SubmissionResponse{}, err
	}

	submission.Status = models.SubmissionStatusNeedsRevision
	submission.Comment = comment
	if err := s.submissions.Update(ctx, &submission); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, fmt.Errorf("update submission: %w", err)
	}

	s.sessions.close(adminID, chatID)

	if s.activity != nil {
		s.activity.Record(ctx, ActivityEntry{
			ActorID:    adminID,
			Action:     "submission.revision_requested",
			EntityType: "submission",
			EntityID:   &submission.ID,
			Metadata: map[string]interface{}{
				"user_id": submission.UserID,
				"lesson":  submission.LessonNumber,
			},
		})
	}

	observability.ReviewDecisions().WithLabelValues(models.SubmissionStatusNeedsRevision).Inc()

	if err := s.notifier.Notify(ctx, submission.UserID, fmt.Sprintf("Lesson %d needs revision: %s", submission.LessonNumber, comment)); err != nil {
		s.logger.Warn().Err(err).Int64("user_id", submission.UserID).Msg("failed to notify submitter of revision request")
	}
	// The broadcast omits the comment; it goes to the submitter only.
	if err := s.notifier.Broadcast(ctx, fmt.Sprintf("%s - lesson %d needs revision", submission.User.FullName, submission.LessonNumber)); err != nil {
		s.logger.Warn().Err(err).Msg("failed to broadcast revision request")
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *reviewService) CancelFeedback(adminID, chatID int64) {
	s.sessions.close(adminID, chatID)
}

func (s *reviewService) ListForLesson(ctx context.Context, lessonNumber int, adminID int64) ([]dto.ReviewItem, error) {
	if err := s.roster.Authorize(ctx, adminID); err != nil {
		return nil, err
	}

	submissions, err := s.submissions.ListForLesson(ctx, lessonNumber)
	if err != nil {
		return nil, err
	}

	items := make([]dto.ReviewItem, 0, len(submissions))
	for _, submission := range submissions {
		items = append(items, dto.ReviewItem{
			Submission: dto.NewSubmissionResponse(submission),
			Actions: []string{
				dto.ReviewActionInspect,
				dto.ReviewActionApprove,
				dto.ReviewActionRequestRevision,
			},
		})
	}

	return items, nil
}

func (s *reviewService) getSubmission(ctx context.Context, id uint) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Submission{}, ErrReviewSubmissionNotFound
	}
	if err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}
