package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/darsbot-api/internal/config"
	"github.com/noah-isme/darsbot-api/internal/dto"
	"github.com/noah-isme/darsbot-api/internal/lesson"
	"github.com/noah-isme/darsbot-api/internal/models"
	"github.com/noah-isme/darsbot-api/internal/observability"
	"github.com/noah-isme/darsbot-api/internal/repository"
)

const (
	firstSubmissionPoints = 3
	submissionPoints      = 1
)

// IntakeConfig selects the active acceptance policy and the file allow-list.
type IntakeConfig struct {
	Mode       string
	Hashtags   []string
	Extensions []string
}

// IntakeService validates and records inbound homework documents.
type IntakeService interface {
	Submit(ctx context.Context, input dto.SubmitInput) (dto.SubmitResult, error)
}

type intakeService struct {
	submissions repository.SubmissionRepository
	roster      RosterService
	scores      ScoreService
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
	cfg         IntakeConfig
	lessonLocks keyedMutex
}

// NewIntakeService constructs the submission intake pipeline.
func NewIntakeService(submissions repository.SubmissionRepository, roster RosterService, scores ScoreService, validate *validator.Validate, cfg IntakeConfig, logger zerolog.Logger) IntakeService {
	return &intakeService{
		submissions: submissions,
		roster:      roster,
		scores:      scores,
		validator:   validate,
		logger:      logger.With().Str("component", "intake_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/darsbot-api/internal/service/intake"),
		now:         time.Now,
		cfg:         cfg,
	}
}

func (s *intakeService) Submit(ctx context.Context, input dto.SubmitInput) (dto.SubmitResult, error) {
	ctx, span := s.tracer.Start(ctx, "intake.submit", trace.WithAttributes(
		attribute.Int64("intake.user_id", input.UserID),
	))
	defer span.End()

	if err := s.validator.Struct(input); err != nil {
		span.RecordError(err)
		return dto.SubmitResult{}, err
	}

	// Every interaction records the sender, accepted or not.
	if err := s.roster.RegisterUser(ctx, input.UserID, input.FullName, input.Username); err != nil {
		span.RecordError(err)
		return dto.SubmitResult{}, fmt.Errorf("register user: %w", err)
	}

	if !s.extensionAllowed(input.Filename) || !s.policyAccepts(input) {
		return s.finish(span, dto.SubmitResult{Outcome: dto.OutcomeIgnored}), nil
	}

	number, found := lesson.Extract(input.Caption + " " + input.Filename)
	if !found {
		return s.finish(span, dto.SubmitResult{Outcome: dto.OutcomeRejected}), nil
	}

	// The uniqueness check, the first-submission count and the insert must
	// not interleave for the same lesson number.
	unlock := s.lessonLocks.lock(number)
	defer unlock()

	existing, err := s.submissions.GetByUserAndLesson(ctx, input.UserID, number)
	switch {
	case err == nil:
		return s.resubmit(ctx, span, existing, input, number)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.create(ctx, span, input, number)
	default:
		span.RecordError(err)
		return dto.SubmitResult{}, fmt.Errorf("lookup submission: %w", err)
	}
}

func (s *intakeService) resubmit(ctx context.Context, span trace.Span, existing models.Submission, input dto.SubmitInput, number int) (dto.SubmitResult, error) {
	existing.FileRef = input.FileRef
	existing.Filename = input.Filename
	existing.Status = models.SubmissionStatusPending
	existing.Comment = ""
	existing.SubmittedAt = s.now()

	if err := s.submissions.Update(ctx, &existing); err != nil {
		span.RecordError(err)
		return dto.SubmitResult{}, fmt.Errorf("update submission: %w", err)
	}

	return s.finish(span, dto.SubmitResult{
		Outcome:      dto.OutcomeResubmitted,
		LessonNumber: number,
		Submission:   dto.NewSubmissionResponse(existing),
	}), nil
}

func (s *intakeService) create(ctx context.Context, span trace.Span, input dto.SubmitInput, number int) (dto.SubmitResult, error) {
	count, err := s.submissions.CountForLesson(ctx, number)
	if err != nil {
		span.RecordError(err)
		return dto.SubmitResult{}, fmt.Errorf("count lesson submissions: %w", err)
	}

	submission := models.Submission{
		UserID:       input.UserID,
		LessonNumber: number,
		FileRef:      input.FileRef,
		Filename:     input.Filename,
		Status:       models.SubmissionStatusPending,
		SubmittedAt:  s.now(),
	}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		span.RecordError(err)
		return dto.SubmitResult{}, fmt.Errorf("create submission: %w", err)
	}

	outcome := dto.OutcomeCreated
	points := submissionPoints
	reason := fmt.Sprintf("lesson %d submitted", number)
	if count == 0 {
		outcome = dto.OutcomeCreatedFirst
		points = firstSubmissionPoints
		reason = fmt.Sprintf("lesson %d submitted first", number)
	}

	// The submission stands even if the award fails; the startup
	// reconciliation pass keeps totals consistent with whatever events landed.
	if err := s.scores.Award(ctx, input.UserID, points, reason); err != nil {
		s.logger.Error().Err(err).Int64("user_id", input.UserID).Int("lesson", number).Msg("failed to award submission points")
		span.RecordError(err)
		points = 0
	}

	submission.User = models.User{ID: input.UserID, FullName: input.FullName, Username: input.Username}
	return s.finish(span, dto.SubmitResult{
		Outcome:       outcome,
		LessonNumber:  number,
		PointsAwarded: points,
		Submission:    dto.NewSubmissionResponse(submission),
	}), nil
}

func (s *intakeService) finish(span trace.Span, result dto.SubmitResult) dto.SubmitResult {
	span.SetAttributes(
		attribute.String("intake.outcome", result.Outcome),
		attribute.Int("intake.lesson", result.LessonNumber),
	)
	observability.SubmissionOutcomes().WithLabelValues(result.Outcome).Inc()
	return result
}

func (s *intakeService) extensionAllowed(filename string) bool {
	if len(s.cfg.Extensions) == 0 {
		return true
	}

	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range s.cfg.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (s *intakeService) policyAccepts(input dto.SubmitInput) bool {
	switch s.cfg.Mode {
	case config.AcceptModeReply:
		return input.ReplyToBot
	case config.AcceptModeHashtag:
		caption := strings.ToLower(input.Caption)
		for _, hashtag := range s.cfg.Hashtags {
			if strings.Contains(caption, hashtag) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
