package geolocate

import (
	"strconv"

	"geofuse/core/logger"
	"geofuse/feature/geolocate/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the geolocate feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the geolocate routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/geolocate")
	group.Post("/", h.HandleLocate)
	group.Get("/:entity_type/:entity_id", h.HandleHistory)
}

// HandleLocate fuses the location signals of one record.
// @Summary Geolocate a record
// @Description Resolve and fuse all available location signals for an OSINT record. When entity_type and entity_id are given and a database is configured, the estimate is persisted.
// @Tags geolocate
// @Accept json
// @Produce json
// @Param record body models.Record true "Input record"
// @Param entity_type query string false "Entity type to persist under"
// @Param entity_id query string false "Entity id to persist under"
// @Success 200 {object} models.Estimate "Fused estimate"
// @Success 204 "No signal resolved"
// @Failure 422 {object} map[string]string "Malformed record"
// @Failure 500 {object} map[string]string "Persistence failure"
// @Router /geolocate [post]
func (h *Handler) HandleLocate(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var rec models.Record
	if err := c.BodyParser(&rec); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "malformed record: " + err.Error(),
		})
	}

	entityType := c.Query("entity_type")
	entityID := c.Query("entity_id")

	var (
		est *models.Estimate
		err error
	)
	if entityType != "" && entityID != "" && h.service.Store() != nil {
		est, _, err = h.service.LocateAndStore(c.Context(), entityType, entityID, &rec)
	} else {
		est, err = h.service.Locate(c.Context(), &rec)
	}
	if err != nil {
		l.Error("geolocate failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if est == nil {
		// Absence of signal is an expected outcome, not an error.
		return c.SendStatus(fiber.StatusNoContent)
	}

	return c.JSON(est)
}

// HandleHistory returns the persisted estimates for an entity.
// @Summary Estimate history
// @Description List persisted estimates for an entity, newest first.
// @Tags geolocate
// @Produce json
// @Param entity_type path string true "Entity type"
// @Param entity_id path string true "Entity id"
// @Param limit query int false "Maximum rows (default 20)"
// @Success 200 {array} store.Row "Persisted estimates"
// @Failure 503 {object} map[string]string "No database configured"
// @Router /geolocate/{entity_type}/{entity_id} [get]
func (h *Handler) HandleHistory(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	st := h.service.Store()
	if st == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no database configured",
		})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	rows, err := st.History(c.Context(), c.Params("entity_type"), c.Params("entity_id"), limit)
	if err != nil {
		l.Error("history lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(rows)
}
