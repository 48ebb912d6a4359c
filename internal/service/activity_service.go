package service

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/darsbot-api/internal/models"
	"github.com/noah-isme/darsbot-api/internal/repository"
)

// ActivityEntry describes an auditable admin action.
type ActivityEntry struct {
	ActorID    int64
	Action     string
	EntityType string
	EntityID   *uint
	Metadata   map[string]interface{}
}

// ActivityRecorder persists audit trail entries. Recording is best-effort;
// failures never abort the action being audited.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry)
}

// ActivityService records audit entries and serves them back to admins.
type ActivityService interface {
	ActivityRecorder
	Recent(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, error)
}

type activityService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewActivityService constructs the audit trail service.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) {
	model := models.ActivityLog{
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   datatypes.JSONMap(entry.Metadata),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Warn().Err(err).Str("action", entry.Action).Msg("failed to persist activity entry")
	}
}

func (s *activityService) Recent(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	return s.repo.List(ctx, filter)
}
