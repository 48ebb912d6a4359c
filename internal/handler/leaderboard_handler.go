package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/darsbot-api/internal/dto"
	"github.com/noah-isme/darsbot-api/internal/service"
	"github.com/noah-isme/darsbot-api/internal/utils"
)

// LeaderboardHandler exposes the score leaderboards over HTTP.
type LeaderboardHandler struct {
	scores service.ScoreService
	logger zerolog.Logger
}

// NewLeaderboardHandler builds a leaderboard handler instance.
func NewLeaderboardHandler(scores service.ScoreService, logger zerolog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		scores: scores,
		logger: logger.With().Str("component", "leaderboard_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *LeaderboardHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *LeaderboardHandler) list(c *fiber.Ctx) error {
	window := c.Query("window", dto.WindowAll)

	limit, err := parseQueryInt(c, "limit", 10)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	entries, err := h.scores.LeaderboardForWindow(c.Context(), window, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("window", window).Msg("failed to build leaderboard")
		return handleServiceError(c, err)
	}

	return utils.SendSuccess(c, "leaderboard retrieved", entries)
}
