package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/darsbot-api/internal/models"
)

// SubmissionRepository defines data operations for homework submissions.
type SubmissionRepository interface {
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetByUserAndLesson(ctx context.Context, userID int64, lesson int) (models.Submission, error)
	ListForLesson(ctx context.Context, lesson int) ([]models.Submission, error)
	ListForUser(ctx context.Context, userID int64) ([]models.Submission, error)
	CountForLesson(ctx context.Context, lesson int) (int64, error)
	SubmitterIDsForLesson(ctx context.Context, lesson int) ([]int64, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).Preload("User")
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetByUserAndLesson(ctx context.Context, userID int64, lesson int) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Where("user_id = ?", userID).
		Where("lesson_number = ?", lesson).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) ListForLesson(ctx context.Context, lesson int) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.baseQuery(ctx).
		Where("lesson_number = ?", lesson).
		Order("submitted_at ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) ListForUser(ctx context.Context, userID int64) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.baseQuery(ctx).
		Where("user_id = ?", userID).
		Order("lesson_number DESC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) CountForLesson(ctx context.Context, lesson int) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("lesson_number = ?", lesson).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

func (r *submissionRepository) SubmitterIDsForLesson(ctx context.Context, lesson int) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("lesson_number = ?", lesson).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}
