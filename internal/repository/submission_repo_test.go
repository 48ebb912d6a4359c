package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/darsbot-api/internal/models"
)

func TestSubmissionRepositoryUniquePerUserAndLesson(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	createTestUser(t, db, 1, "Aziza")

	first := models.Submission{UserID: 1, LessonNumber: 5, FileRef: "file-a", Filename: "hw5.py", Status: models.SubmissionStatusPending, SubmittedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, &first))

	duplicate := models.Submission{UserID: 1, LessonNumber: 5, FileRef: "file-b", Filename: "hw5_v2.py", Status: models.SubmissionStatusPending, SubmittedAt: time.Now()}
	require.Error(t, repo.Create(ctx, &duplicate), "second row for the same user and lesson must be rejected")
}

func TestSubmissionRepositoryGetByUserAndLessonPreloadsUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	createTestUser(t, db, 2, "Bek")
	submission := models.Submission{UserID: 2, LessonNumber: 7, FileRef: "ref", Filename: "hw7.txt", Status: models.SubmissionStatusPending, SubmittedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, &submission))

	found, err := repo.GetByUserAndLesson(ctx, 2, 7)
	require.NoError(t, err)
	require.Equal(t, submission.ID, found.ID)
	require.Equal(t, "Bek", found.User.FullName)
}

func TestSubmissionRepositoryListForLessonOrdersByArrival(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	createTestUser(t, db, 3, "Carla")
	createTestUser(t, db, 4, "Dil")

	now := time.Now()
	later := models.Submission{UserID: 4, LessonNumber: 9, FileRef: "r2", Filename: "b.py", Status: models.SubmissionStatusPending, SubmittedAt: now}
	earlier := models.Submission{UserID: 3, LessonNumber: 9, FileRef: "r1", Filename: "a.py", Status: models.SubmissionStatusPending, SubmittedAt: now.Add(-time.Hour)}
	require.NoError(t, repo.Create(ctx, &later))
	require.NoError(t, repo.Create(ctx, &earlier))

	listed, err := repo.ListForLesson(ctx, 9)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, int64(3), listed[0].UserID)
	require.Equal(t, int64(4), listed[1].UserID)

	count, err := repo.CountForLesson(ctx, 9)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	ids, err := repo.SubmitterIDsForLesson(ctx, 9)
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{3, 4}, ids)
}

func TestSubmissionRepositoryListForUserNewestLessonFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	createTestUser(t, db, 5, "Eli")
	for _, lesson := range []int{3, 12, 7} {
		submission := models.Submission{UserID: 5, LessonNumber: lesson, FileRef: "r", Filename: "f.py", Status: models.SubmissionStatusPending, SubmittedAt: time.Now()}
		require.NoError(t, repo.Create(ctx, &submission))
	}

	listed, err := repo.ListForUser(ctx, 5)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	require.Equal(t, 12, listed[0].LessonNumber)
	require.Equal(t, 7, listed[1].LessonNumber)
	require.Equal(t, 3, listed[2].LessonNumber)
}

func TestUserRepositoryUpsertRefreshesProfile(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.User{ID: 6, FullName: "Old Name", Username: "old"}))
	require.NoError(t, repo.Upsert(ctx, &models.User{ID: 6, FullName: "New Name", Username: "new"}))

	user, err := repo.GetByID(ctx, 6)
	require.NoError(t, err)
	require.Equal(t, "New Name", user.FullName)
	require.Equal(t, "new", user.Username)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestAdminRepositoryGrantIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAdminRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Grant(ctx, 7, 1))
	require.NoError(t, repo.Grant(ctx, 7, 2))

	exists, err := repo.Exists(ctx, 7)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = repo.Exists(ctx, 8)
	require.NoError(t, err)
	require.False(t, exists)

	ids, err := repo.ListIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{7}, ids)
}
