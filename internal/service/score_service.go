package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/darsbot-api/internal/dto"
	"github.com/noah-isme/darsbot-api/internal/repository"
)

// ErrUnknownWindow indicates a leaderboard window outside all/week/month.
var ErrUnknownWindow = errors.New("unknown leaderboard window")

const defaultLeaderboardLimit = 10

// ScoreService owns the append-only point ledger and the derived totals.
type ScoreService interface {
	Award(ctx context.Context, userID int64, points int, reason string) error
	SetTotal(ctx context.Context, userID int64, newTotal int, reason string) (previous int, err error)
	TotalFor(ctx context.Context, userID int64) (int, error)
	Leaderboard(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error)
	WindowedLeaderboard(ctx context.Context, since time.Time, limit int) ([]dto.LeaderboardEntry, error)
	LeaderboardForWindow(ctx context.Context, window string, limit int) ([]dto.LeaderboardEntry, error)
	Reconcile(ctx context.Context) error
}

type scoreService struct {
	repo      repository.ScoreRepository
	cache     *redis.Client
	cacheTTL  time.Duration
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
	userLocks keyedMutex
}

// NewScoreService constructs the scoring ledger service. A nil cache client
// disables leaderboard caching.
func NewScoreService(repo repository.ScoreRepository, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) ScoreService {
	return &scoreService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.With().Str("component", "score_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/darsbot-api/internal/service/score"),
		now:      time.Now,
	}
}

func (s *scoreService) Award(ctx context.Context, userID int64, points int, reason string) error {
	ctx, span := s.tracer.Start(ctx, "score.award", trace.WithAttributes(
		attribute.Int64("score.user_id", userID),
		attribute.Int("score.points", points),
	))
	defer span.End()

	unlock := s.userLocks.lock(userID)
	defer unlock()

	if err := s.repo.Append(ctx, userID, points, reason); err != nil {
		span.RecordError(err)
		return fmt.Errorf("append score event: %w", err)
	}

	s.invalidateLeaderboards(ctx)
	return nil
}

func (s *scoreService) SetTotal(ctx context.Context, userID int64, newTotal int, reason string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "score.set_total", trace.WithAttributes(
		attribute.Int64("score.user_id", userID),
		attribute.Int("score.new_total", newTotal),
	))
	defer span.End()

	unlock := s.userLocks.lock(userID)
	defer unlock()

	previous, err := s.repo.Overwrite(ctx, userID, newTotal, reason)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("overwrite score total: %w", err)
	}

	s.invalidateLeaderboards(ctx)
	return previous, nil
}

func (s *scoreService) TotalFor(ctx context.Context, userID int64) (int, error) {
	return s.repo.TotalFor(ctx, userID)
}

func (s *scoreService) Leaderboard(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}

	cacheKey := fmt.Sprintf("leaderboard:all:%d", limit)
	if cached, ok := s.readCache(ctx, cacheKey); ok {
		return cached, nil
	}

	rows, err := s.repo.TopTotals(ctx, limit)
	if err != nil {
		return nil, err
	}

	entries := dto.NewLeaderboard(rows)
	s.writeCache(ctx, cacheKey, entries)
	return entries, nil
}

func (s *scoreService) WindowedLeaderboard(ctx context.Context, since time.Time, limit int) ([]dto.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}

	rows, err := s.repo.SumSince(ctx, since, limit)
	if err != nil {
		return nil, err
	}

	return dto.NewLeaderboard(rows), nil
}

func (s *scoreService) LeaderboardForWindow(ctx context.Context, window string, limit int) ([]dto.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}

	var since time.Time
	switch window {
	case dto.WindowAll, "":
		return s.Leaderboard(ctx, limit)
	case dto.WindowWeek:
		since = s.now().AddDate(0, 0, -7)
	case dto.WindowMonth:
		since = s.now().AddDate(0, 0, -30)
	default:
		return nil, ErrUnknownWindow
	}

	cacheKey := fmt.Sprintf("leaderboard:%s:%d", window, limit)
	if cached, ok := s.readCache(ctx, cacheKey); ok {
		return cached, nil
	}

	entries, err := s.WindowedLeaderboard(ctx, since, limit)
	if err != nil {
		return nil, err
	}

	s.writeCache(ctx, cacheKey, entries)
	return entries, nil
}

func (s *scoreService) Reconcile(ctx context.Context) error {
	if err := s.repo.Reconcile(ctx); err != nil {
		return fmt.Errorf("reconcile score totals: %w", err)
	}

	s.invalidateLeaderboards(ctx)
	return nil
}

func (s *scoreService) readCache(ctx context.Context, key string) ([]dto.LeaderboardEntry, bool) {
	if s.cache == nil {
		return nil, false
	}

	cached, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to read leaderboard cache")
		}
		return nil, false
	}

	var entries []dto.LeaderboardEntry
	if err := json.Unmarshal([]byte(cached), &entries); err != nil {
		return nil, false
	}

	return entries, true
}

func (s *scoreService) writeCache(ctx context.Context, key string, entries []dto.LeaderboardEntry) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to store leaderboard cache")
	}
}

func (s *scoreService) invalidateLeaderboards(ctx context.Context) {
	if s.cache == nil {
		return
	}

	iter := s.cache.Scan(ctx, 0, "leaderboard:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.cache.Del(ctx, iter.Val()).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to invalidate leaderboard cache")
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn().Err(err).Msg("leaderboard cache scan failed")
	}
}
