package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/darsbot-api/internal/bot"
	"github.com/noah-isme/darsbot-api/internal/config"
	"github.com/noah-isme/darsbot-api/internal/dto"
	"github.com/noah-isme/darsbot-api/internal/handler"
	"github.com/noah-isme/darsbot-api/internal/middleware"
	"github.com/noah-isme/darsbot-api/internal/models"
	"github.com/noah-isme/darsbot-api/internal/repository"
	"github.com/noah-isme/darsbot-api/internal/router"
	"github.com/noah-isme/darsbot-api/internal/service"
	"github.com/noah-isme/darsbot-api/internal/utils"
	"github.com/noah-isme/darsbot-api/pkg/bus"
)

const superAdminID int64 = 424242

type silentNotifier struct{}

func (silentNotifier) Notify(context.Context, int64, string) error { return nil }

func (silentNotifier) Broadcast(context.Context, string) error { return nil }

func (silentNotifier) DeliverFile(context.Context, int64, string, string) error { return nil }

type workflow struct {
	app        *fiber.App
	db         *gorm.DB
	dispatcher *bot.Dispatcher
	subRepo    repository.SubmissionRepository
	scores     service.ScoreService
}

func setupWorkflow(t *testing.T) workflow {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Submission{},
		&models.ScoreEvent{},
		&models.ScoreTotal{},
		&models.AdminGrant{},
		&models.ActivityLog{},
	))
	for _, table := range []string{"activity_logs", "admin_grants", "score_events", "score_totals", "submissions", "users"} {
		require.NoError(t, db.Exec("DELETE FROM "+table).Error)
	}

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubmissionRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activity := service.NewActivityService(activityRepo, logger)
	roster := service.NewRosterService(userRepo, adminRepo, superAdminID, nil, activity, logger)
	scores := service.NewScoreService(scoreRepo, nil, 0, logger)
	intake := service.NewIntakeService(subRepo, roster, scores, validate, service.IntakeConfig{
		Mode:       config.AcceptModeHashtag,
		Hashtags:   []string{"#homework"},
		Extensions: []string{".py", ".txt"},
	}, logger)
	review := service.NewReviewService(subRepo, roster, scores, silentNotifier{}, activity, time.Minute, logger)
	reports := service.NewReportService(subRepo, userRepo, roster, scores, logger)

	dispatcher := bot.New(intake, review, reports, scores, roster, silentNotifier{}, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		LeaderboardHandler: handler.NewLeaderboardHandler(scores, logger),
		ReportHandler:      handler.NewReportHandler(review, reports, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("user_id", superAdminID)
			return c.Next()
		},
	})

	return workflow{app: app, db: db, dispatcher: dispatcher, subRepo: subRepo, scores: scores}
}

func submitDocument(w workflow, userID int64, name, caption, filename string) {
	w.dispatcher.HandleSubmission(context.Background(), bus.SubmissionEvent{
		UserID:   userID,
		FullName: name,
		Caption:  caption,
		Filename: filename,
		FileRef:  "file-" + filename,
		ChatType: "group",
	})
}

func getJSON(t *testing.T, app *fiber.App, path string) utils.APIResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHomeworkWorkflowEndToEnd(t *testing.T) {
	w := setupWorkflow(t)
	ctx := context.Background()

	// Two students submit lesson 12; the first earns the bonus.
	submitDocument(w, 1, "Aziza", "#homework dars 12", "hw12.py")
	submitDocument(w, 2, "Bek", "#homework dars 12", "hw12.txt")

	total, err := w.scores.TotalFor(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 3, total)

	total, err = w.scores.TotalFor(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 1, total)

	// The admin reviews: approves the first, sends the second back.
	first, err := w.subRepo.GetByUserAndLesson(ctx, 1, 12)
	require.NoError(t, err)
	second, err := w.subRepo.GetByUserAndLesson(ctx, 2, 12)
	require.NoError(t, err)

	const adminChat int64 = 100
	w.dispatcher.HandleButton(ctx, bus.ButtonEvent{Action: dto.ReviewActionApprove, TargetID: first.ID, Sender: superAdminID, ChatID: adminChat})
	w.dispatcher.HandleButton(ctx, bus.ButtonEvent{Action: dto.ReviewActionRequestRevision, TargetID: second.ID, Sender: superAdminID, ChatID: adminChat})
	w.dispatcher.HandleText(ctx, bus.TextEvent{Text: "handle the empty input case", Sender: superAdminID, ChatID: adminChat})

	total, err = w.scores.TotalFor(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 4, total, "approval adds one point")

	reviewed, err := w.subRepo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusNeedsRevision, reviewed.Status)
	require.Equal(t, "handle the empty input case", reviewed.Comment)

	// Bek fixes it and resubmits; the review state resets without new points.
	submitDocument(w, 2, "Bek", "#homework dars 12", "hw12_fixed.txt")

	reviewed, err = w.subRepo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusPending, reviewed.Status)
	require.Empty(t, reviewed.Comment)

	total, err = w.scores.TotalFor(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 1, total)

	// The HTTP surface agrees with the bot's view.
	body := getJSON(t, w.app, "/api/v1/leaderboard")
	payload, err := json.Marshal(body.Data)
	require.NoError(t, err)
	var entries []dto.LeaderboardEntry
	require.NoError(t, json.Unmarshal(payload, &entries))
	require.Len(t, entries, 2)
	require.Equal(t, int64(1), entries[0].UserID)
	require.Equal(t, 4, entries[0].Points)

	body = getJSON(t, w.app, "/api/v1/lessons/12/submissions")
	payload, err = json.Marshal(body.Data)
	require.NoError(t, err)
	var items []dto.ReviewItem
	require.NoError(t, json.Unmarshal(payload, &items))
	require.Len(t, items, 2)

	body = getJSON(t, w.app, "/api/v1/users/1/history")
	payload, err = json.Marshal(body.Data)
	require.NoError(t, err)
	var history dto.HistoryResponse
	require.NoError(t, json.Unmarshal(payload, &history))
	require.Equal(t, 4, history.Total)
	require.Len(t, history.Submissions, 1)
}

func TestNonSubmittersReportOverHTTP(t *testing.T) {
	w := setupWorkflow(t)
	ctx := context.Background()

	submitDocument(w, 1, "Aziza", "#homework dars 3", "hw3.py")
	w.dispatcher.HandleCommand(ctx, bus.CommandEvent{Name: "/start", Sender: 2, FullName: "Bek"})

	body := getJSON(t, w.app, "/api/v1/lessons/3/non-submitters")
	payload, err := json.Marshal(body.Data)
	require.NoError(t, err)
	var missing []dto.NonSubmitter
	require.NoError(t, json.Unmarshal(payload, &missing))
	require.Len(t, missing, 1)
	require.Equal(t, int64(2), missing[0].UserID)
}
