package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/darsbot-api/internal/service"
	"github.com/noah-isme/darsbot-api/internal/utils"
)

// ReportHandler exposes per-lesson and per-user reporting endpoints.
type ReportHandler struct {
	review  service.ReviewService
	reports service.ReportService
	logger  zerolog.Logger
}

// NewReportHandler builds a report handler instance.
func NewReportHandler(review service.ReviewService, reports service.ReportService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		review:  review,
		reports: reports,
		logger:  logger.With().Str("component", "report_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ReportHandler) Register(router fiber.Router) {
	router.Get("/lessons/:lesson/submissions", h.lessonSubmissions)
	router.Get("/lessons/:lesson/non-submitters", h.nonSubmitters)
	router.Get("/users/:id/history", h.userHistory)
}

func (h *ReportHandler) lessonSubmissions(c *fiber.Ctx) error {
	lesson, err := parseIntParam(c, "lesson")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	items, err := h.review.ListForLesson(c.Context(), lesson, callerID(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", items)
}

func (h *ReportHandler) nonSubmitters(c *fiber.Ctx) error {
	lesson, err := parseIntParam(c, "lesson")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	missing, err := h.reports.NonSubmitters(c.Context(), lesson)
	if err != nil {
		h.logger.Error().Err(err).Int("lesson", lesson).Msg("failed to list non-submitters")
		return handleServiceError(c, err)
	}

	return utils.SendSuccess(c, "non-submitters retrieved", missing)
}

func (h *ReportHandler) userHistory(c *fiber.Ctx) error {
	userID, err := parseInt64Param(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	history, err := h.reports.MyHistory(c.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to build history")
		return handleServiceError(c, err)
	}

	return utils.SendSuccess(c, "history retrieved", history)
}
