package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/darsbot-api/internal/dto"
	"github.com/noah-isme/darsbot-api/internal/models"
	"github.com/noah-isme/darsbot-api/internal/repository"
)

type recordingNotifier struct {
	notifications []string
	broadcasts    []string
	files         []string
}

func (r *recordingNotifier) Notify(_ context.Context, recipient int64, text string) error {
	r.notifications = append(r.notifications, fmt.Sprintf("%d:%s", recipient, text))
	return nil
}

func (r *recordingNotifier) Broadcast(_ context.Context, text string) error {
	r.broadcasts = append(r.broadcasts, text)
	return nil
}

func (r *recordingNotifier) DeliverFile(_ context.Context, recipient int64, fileRef, _ string) error {
	r.files = append(r.files, fmt.Sprintf("%d:%s", recipient, fileRef))
	return nil
}

type reviewFixture struct {
	db       *gorm.DB
	review   ReviewService
	scores   ScoreService
	subRepo  repository.SubmissionRepository
	notifier *recordingNotifier
	adminID  int64
}

func newReviewFixture(t *testing.T) reviewFixture {
	t.Helper()
	db := setupServiceDB(t)
	logger := zerolog.Nop()

	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubmissionRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	roster := NewRosterService(userRepo, adminRepo, testSuperAdminID, nil, nil, logger)
	scores := NewScoreService(scoreRepo, nil, 0, logger)
	notifier := &recordingNotifier{}
	review := NewReviewService(subRepo, roster, scores, notifier, nil, time.Minute, logger)

	return reviewFixture{
		db:       db,
		review:   review,
		scores:   scores,
		subRepo:  subRepo,
		notifier: notifier,
		adminID:  testSuperAdminID,
	}
}

func (f reviewFixture) seedSubmission(t *testing.T, userID int64, lesson int) models.Submission {
	t.Helper()
	require.NoError(t, f.db.Create(&models.User{ID: userID, FullName: fmt.Sprintf("Student %d", userID)}).Error)
	submission := models.Submission{
		UserID:       userID,
		LessonNumber: lesson,
		FileRef:      "file-ref",
		Filename:     "hw.py",
		Status:       models.SubmissionStatusPending,
		SubmittedAt:  time.Now(),
	}
	require.NoError(t, f.db.Create(&submission).Error)
	return submission
}

func TestReviewApproveAwardsPointAndNotifies(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	submission := f.seedSubmission(t, 1, 12)

	approved, err := f.review.Approve(ctx, submission.ID, f.adminID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusApproved, approved.Status)

	stored, err := f.subRepo.GetByID(ctx, submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusApproved, stored.Status)

	total, err := f.scores.TotalFor(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, total)

	require.Len(t, f.notifier.notifications, 1)
	require.Len(t, f.notifier.broadcasts, 1)
	require.Contains(t, f.notifier.broadcasts[0], "lesson 12 approved")
}

func TestReviewApproveRequiresAdmin(t *testing.T) {
	f := newReviewFixture(t)
	submission := f.seedSubmission(t, 1, 3)

	_, err := f.review.Approve(context.Background(), submission.ID, 555)
	require.ErrorIs(t, err, ErrUnauthorized)

	total, err := f.scores.TotalFor(context.Background(), 1)
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestReviewApproveUnknownSubmission(t *testing.T) {
	f := newReviewFixture(t)

	_, err := f.review.Approve(context.Background(), 12345, f.adminID)
	require.ErrorIs(t, err, ErrReviewSubmissionNotFound)
}

func TestReviewInspectDeliversFile(t *testing.T) {
	f := newReviewFixture(t)
	submission := f.seedSubmission(t, 1, 4)

	delivery, err := f.review.Inspect(context.Background(), submission.ID, f.adminID)
	require.NoError(t, err)
	require.Equal(t, "file-ref", delivery.FileRef)
	require.Equal(t, f.adminID, delivery.Recipient)
	require.Len(t, f.notifier.files, 1)
}

func TestReviewRevisionFlow(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	submission := f.seedSubmission(t, 1, 8)
	const chatID int64 = 7777

	pending, err := f.review.RequestRevision(ctx, submission.ID, f.adminID, chatID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusPending, pending.Status, "requesting a revision must not flip the status yet")

	updated, err := f.review.SubmitFeedback(ctx, f.adminID, chatID, "<b>fix the loop</b>")
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusNeedsRevision, updated.Status)
	require.Equal(t, "fix the loop", updated.Comment, "markup gets stripped")

	require.Len(t, f.notifier.notifications, 1)
	require.Contains(t, f.notifier.notifications[0], "fix the loop")
	require.Len(t, f.notifier.broadcasts, 1)
	require.NotContains(t, f.notifier.broadcasts[0], "fix the loop", "the comment goes to the submitter only")

	// The session is spent; a second text is unrelated chat.
	_, err = f.review.SubmitFeedback(ctx, f.adminID, chatID, "another text")
	require.ErrorIs(t, err, ErrNoFeedbackSession)
}

func TestReviewEmptyFeedbackKeepsSessionOpen(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	submission := f.seedSubmission(t, 1, 9)
	const chatID int64 = 7777

	_, err := f.review.RequestRevision(ctx, submission.ID, f.adminID, chatID)
	require.NoError(t, err)

	_, err = f.review.SubmitFeedback(ctx, f.adminID, chatID, "<i>   </i>")
	require.ErrorIs(t, err, ErrEmptyFeedback)

	updated, err := f.review.SubmitFeedback(ctx, f.adminID, chatID, "add comments")
	require.NoError(t, err)
	require.Equal(t, "add comments", updated.Comment)
}

func TestReviewFeedbackSessionExpires(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	submission := f.seedSubmission(t, 1, 10)
	const chatID int64 = 7777

	_, err := f.review.RequestRevision(ctx, submission.ID, f.adminID, chatID)
	require.NoError(t, err)

	svc := f.review.(*reviewService)
	svc.sessions.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err = f.review.SubmitFeedback(ctx, f.adminID, chatID, "too late")
	require.ErrorIs(t, err, ErrNoFeedbackSession)
}

func TestReviewCancelFeedbackIsIdempotent(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	submission := f.seedSubmission(t, 1, 11)
	const chatID int64 = 7777

	_, err := f.review.RequestRevision(ctx, submission.ID, f.adminID, chatID)
	require.NoError(t, err)

	f.review.CancelFeedback(f.adminID, chatID)
	f.review.CancelFeedback(f.adminID, chatID)

	_, err = f.review.SubmitFeedback(ctx, f.adminID, chatID, "anything")
	require.ErrorIs(t, err, ErrNoFeedbackSession)
}

func TestReviewSessionsAreScopedPerAdminAndChat(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	submission := f.seedSubmission(t, 1, 13)
	const chatID int64 = 7777

	_, err := f.review.RequestRevision(ctx, submission.ID, f.adminID, chatID)
	require.NoError(t, err)

	// Same admin in another chat has no open session.
	_, err = f.review.SubmitFeedback(ctx, f.adminID, chatID+1, "wrong chat")
	require.ErrorIs(t, err, ErrNoFeedbackSession)
}

func TestReviewListForLesson(t *testing.T) {
	f := newReviewFixture(t)
	ctx := context.Background()
	f.seedSubmission(t, 1, 20)
	f.seedSubmission(t, 2, 20)

	items, err := f.review.ListForLesson(ctx, 20, f.adminID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, []string{dto.ReviewActionInspect, dto.ReviewActionApprove, dto.ReviewActionRequestRevision}, items[0].Actions)

	_, err = f.review.ListForLesson(ctx, 20, 555)
	require.ErrorIs(t, err, ErrUnauthorized)
}
