package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/darsbot-api/internal/dto"
	"github.com/noah-isme/darsbot-api/internal/models"
	"github.com/noah-isme/darsbot-api/internal/repository"
)

// ReportService serves the read-only queries. It never mutates state.
type ReportService interface {
	MyHistory(ctx context.Context, userID int64) (dto.HistoryResponse, error)
	NonSubmitters(ctx context.Context, lessonNumber int) ([]dto.NonSubmitter, error)
}

type reportService struct {
	submissions repository.SubmissionRepository
	users       repository.UserRepository
	roster      RosterService
	scores      ScoreService
	logger      zerolog.Logger
}

// NewReportService constructs the reporting service.
func NewReportService(submissions repository.SubmissionRepository, users repository.UserRepository, roster RosterService, scores ScoreService, logger zerolog.Logger) ReportService {
	return &reportService{
		submissions: submissions,
		users:       users,
		roster:      roster,
		scores:      scores,
		logger:      logger.With().Str("component", "report_service").Logger(),
	}
}

func (s *reportService) MyHistory(ctx context.Context, userID int64) (dto.HistoryResponse, error) {
	submissions, err := s.submissions.ListForUser(ctx, userID)
	if err != nil {
		return dto.HistoryResponse{}, err
	}

	total, err := s.scores.TotalFor(ctx, userID)
	if err != nil {
		return dto.HistoryResponse{}, err
	}

	return dto.HistoryResponse{
		UserID:      userID,
		Total:       total,
		Submissions: dto.NewSubmissionResponseSlice(submissions),
	}, nil
}

// NonSubmitters lists registered users without a submission for the lesson,
// excluding every admin and the super admin. Ordered by user id so repeated
// calls against the same data agree.
func (s *reportService) NonSubmitters(ctx context.Context, lessonNumber int) ([]dto.NonSubmitter, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	submitterIDs, err := s.submissions.SubmitterIDsForLesson(ctx, lessonNumber)
	if err != nil {
		return nil, err
	}

	adminIDs, err := s.roster.AdminIDs(ctx)
	if err != nil {
		return nil, err
	}

	excluded := make(map[int64]struct{}, len(submitterIDs)+len(adminIDs))
	for _, id := range submitterIDs {
		excluded[id] = struct{}{}
	}
	for _, id := range adminIDs {
		excluded[id] = struct{}{}
	}

	missing := make([]models.User, 0, len(users))
	for _, user := range users {
		if _, skip := excluded[user.ID]; !skip {
			missing = append(missing, user)
		}
	}

	return dto.NewNonSubmitters(missing), nil
}
