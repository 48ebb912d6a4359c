package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/darsbot-api/internal/models"
)

// LeaderboardRow pairs a user with an aggregated point sum.
type LeaderboardRow struct {
	UserID   int64  `json:"user_id"`
	FullName string `json:"full_name"`
	Points   int    `json:"points"`
}

// ScoreRepository defines data operations for the append-only score ledger
// and its cached per-user totals.
type ScoreRepository interface {
	Append(ctx context.Context, userID int64, points int, reason string) error
	Overwrite(ctx context.Context, userID int64, newTotal int, reason string) (previous int, err error)
	TotalFor(ctx context.Context, userID int64) (int, error)
	TopTotals(ctx context.Context, limit int) ([]LeaderboardRow, error)
	SumSince(ctx context.Context, since time.Time, limit int) ([]LeaderboardRow, error)
	Reconcile(ctx context.Context) error
}

type scoreRepository struct {
	db *gorm.DB
}

// NewScoreRepository instantiates the repository.
func NewScoreRepository(db *gorm.DB) ScoreRepository {
	return &scoreRepository{db: db}
}

// Append writes a score event and adjusts the cached total in one
// transaction. The total adjustment is an atomic in-database increment so
// concurrent appends for the same user cannot lose updates.
func (r *scoreRepository) Append(ctx context.Context, userID int64, points int, reason string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event := models.ScoreEvent{UserID: userID, Points: points, Reason: reason}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"total": gorm.Expr("total + ?", points)}),
		}).Create(&models.ScoreTotal{UserID: userID, Total: points}).Error
	})
}

// Overwrite sets the cached total to exactly newTotal and appends a
// compensating event equal to the difference, keeping the total consistent
// with the event sum. It returns the total that was replaced.
func (r *scoreRepository) Overwrite(ctx context.Context, userID int64, newTotal int, reason string) (int, error) {
	var previous int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var total models.ScoreTotal
		err := tx.First(&total, "user_id = ?", userID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			previous = 0
		case err != nil:
			return err
		default:
			previous = total.Total
		}

		event := models.ScoreEvent{UserID: userID, Points: newTotal - previous, Reason: reason}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"total": newTotal}),
		}).Create(&models.ScoreTotal{UserID: userID, Total: newTotal}).Error
	})

	return previous, err
}

func (r *scoreRepository) TotalFor(ctx context.Context, userID int64) (int, error) {
	var total models.ScoreTotal
	err := r.db.WithContext(ctx).First(&total, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return total.Total, nil
}

func (r *scoreRepository) TopTotals(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	if err := r.db.WithContext(ctx).Model(&models.ScoreTotal{}).
		Select("score_totals.user_id AS user_id, users.full_name AS full_name, score_totals.total AS points").
		Joins("JOIN users ON users.id = score_totals.user_id").
		Where("score_totals.total > 0").
		Order("points DESC, user_id ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}

func (r *scoreRepository) SumSince(ctx context.Context, since time.Time, limit int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	if err := r.db.WithContext(ctx).Model(&models.ScoreEvent{}).
		Select("score_events.user_id AS user_id, users.full_name AS full_name, SUM(score_events.points) AS points").
		Joins("JOIN users ON users.id = score_events.user_id").
		Where("score_events.created_at >= ?", since).
		Group("score_events.user_id, users.full_name").
		Order("points DESC, user_id ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}

// Reconcile rebuilds every cached total from the event log. Run at startup so
// a drifted cache never survives a restart.
func (r *scoreRepository) Reconcile(ctx context.Context) error {
	type sumRow struct {
		UserID int64
		Total  int
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sums []sumRow
		if err := tx.Model(&models.ScoreEvent{}).
			Select("user_id, SUM(points) AS total").
			Group("user_id").
			Scan(&sums).Error; err != nil {
			return err
		}

		for _, sum := range sums {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{"total": sum.Total}),
			}).Create(&models.ScoreTotal{UserID: sum.UserID, Total: sum.Total}).Error; err != nil {
				return err
			}
		}

		return nil
	})
}
