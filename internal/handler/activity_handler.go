package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/darsbot-api/internal/repository"
	"github.com/noah-isme/darsbot-api/internal/service"
	"github.com/noah-isme/darsbot-api/internal/utils"
)

// ActivityHandler exposes the admin audit trail.
type ActivityHandler struct {
	activity service.ActivityService
	logger   zerolog.Logger
}

// NewActivityHandler builds an activity handler instance.
func NewActivityHandler(activity service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		activity: activity,
		logger:   logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	filter := repository.ActivityLogFilter{
		Action:     strings.TrimSpace(c.Query("action")),
		EntityType: strings.TrimSpace(c.Query("entity_type")),
	}

	if raw := strings.TrimSpace(c.Query("actor_id")); raw != "" {
		actorID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid actor_id")
		}
		filter.ActorID = &actorID
	}

	limit, err := parseQueryInt(c, "limit", 50)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	filter.Limit = limit

	entries, err := h.activity.Recent(c.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list activity entries")
		return handleServiceError(c, err)
	}

	return utils.SendSuccess(c, "activity retrieved", entries)
}
