package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/darsbot-api/internal/models"
	"github.com/noah-isme/darsbot-api/internal/repository"
)

// ErrUnauthorized indicates the caller lacks the role required for an operation.
var ErrUnauthorized = errors.New("unauthorized")

// ErrUserNotFound indicates the referenced user has never interacted with the bot.
var ErrUserNotFound = errors.New("user not found")

// RosterService maintains the cohort roster and answers role checks. Every
// privileged operation funnels through Authorize/AuthorizeSuper so role
// branching stays in one place.
type RosterService interface {
	RegisterUser(ctx context.Context, id int64, fullName, username string) error
	GetUser(ctx context.Context, id int64) (models.User, error)
	IsAdmin(ctx context.Context, id int64) (bool, error)
	IsSuperAdmin(id int64) bool
	Authorize(ctx context.Context, id int64) error
	AuthorizeSuper(id int64) error
	GrantAdmin(ctx context.Context, newAdminID, requestingAdminID int64) error
	AdminIDs(ctx context.Context) ([]int64, error)
	Seed(ctx context.Context) error
}

type rosterService struct {
	users        repository.UserRepository
	admins       repository.AdminRepository
	superAdminID int64
	initialIDs   []int64
	activity     ActivityRecorder
	logger       zerolog.Logger
}

// NewRosterService constructs the roster service.
func NewRosterService(users repository.UserRepository, admins repository.AdminRepository, superAdminID int64, initialIDs []int64, activity ActivityRecorder, logger zerolog.Logger) RosterService {
	return &rosterService{
		users:        users,
		admins:       admins,
		superAdminID: superAdminID,
		initialIDs:   initialIDs,
		activity:     activity,
		logger:       logger.With().Str("component", "roster_service").Logger(),
	}
}

func (s *rosterService) RegisterUser(ctx context.Context, id int64, fullName, username string) error {
	user := models.User{ID: id, FullName: fullName, Username: username}
	return s.users.Upsert(ctx, &user)
}

func (s *rosterService) GetUser(ctx context.Context, id int64) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

func (s *rosterService) IsAdmin(ctx context.Context, id int64) (bool, error) {
	if s.IsSuperAdmin(id) {
		return true, nil
	}

	return s.admins.Exists(ctx, id)
}

func (s *rosterService) IsSuperAdmin(id int64) bool {
	return id == s.superAdminID
}

func (s *rosterService) Authorize(ctx context.Context, id int64) error {
	admin, err := s.IsAdmin(ctx, id)
	if err != nil {
		return err
	}
	if !admin {
		return ErrUnauthorized
	}

	return nil
}

func (s *rosterService) AuthorizeSuper(id int64) error {
	if !s.IsSuperAdmin(id) {
		return ErrUnauthorized
	}

	return nil
}

// GrantAdmin lets any existing admin add another, not only the super admin.
func (s *rosterService) GrantAdmin(ctx context.Context, newAdminID, requestingAdminID int64) error {
	if err := s.Authorize(ctx, requestingAdminID); err != nil {
		return err
	}

	if err := s.admins.Grant(ctx, newAdminID, requestingAdminID); err != nil {
		return err
	}

	if s.activity != nil {
		s.activity.Record(ctx, ActivityEntry{
			ActorID:    requestingAdminID,
			Action:     "admin.granted",
			EntityType: "user",
			Metadata:   map[string]interface{}{"new_admin_id": newAdminID},
		})
	}

	return nil
}

// AdminIDs returns the stored grants plus the configured super admin.
func (s *rosterService) AdminIDs(ctx context.Context) ([]int64, error) {
	ids, err := s.admins.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		if id == s.superAdminID {
			return ids, nil
		}
	}

	return append(ids, s.superAdminID), nil
}

// Seed inserts the configured initial admin set. Idempotent across restarts.
func (s *rosterService) Seed(ctx context.Context) error {
	for _, id := range s.initialIDs {
		if err := s.admins.Grant(ctx, id, s.superAdminID); err != nil {
			return err
		}
	}

	return nil
}
