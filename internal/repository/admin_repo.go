package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/darsbot-api/internal/models"
)

// AdminRepository defines data operations for the admin role set.
type AdminRepository interface {
	Grant(ctx context.Context, userID, grantedBy int64) error
	Exists(ctx context.Context, userID int64) (bool, error)
	ListIDs(ctx context.Context) ([]int64, error)
}

type adminRepository struct {
	db *gorm.DB
}

// NewAdminRepository instantiates the repository.
func NewAdminRepository(db *gorm.DB) AdminRepository {
	return &adminRepository{db: db}
}

func (r *adminRepository) Grant(ctx context.Context, userID, grantedBy int64) error {
	grant := models.AdminGrant{UserID: userID, GrantedBy: grantedBy}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&grant).Error
}

func (r *adminRepository) Exists(ctx context.Context, userID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.AdminGrant{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *adminRepository) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&models.AdminGrant{}).
		Order("user_id").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}
