package handler

import (
	"ccee-sentinel/internal/domain"
	"ccee-sentinel/internal/dto"

	"github.com/gofiber/fiber/v2"
)

type HealthReporter interface {
	Snapshot() map[string]domain.ProviderHealth
}

type CacheStats interface {
	Stats(moduleID string) map[string]int
}

// StatusHandler reports provider health, cache occupancy and the module catalog.
type StatusHandler struct {
	health  HealthReporter
	cache   CacheStats
	catalog domain.ModuleCatalog
}

func NewStatusHandler(health HealthReporter, cache CacheStats, catalog domain.ModuleCatalog) *StatusHandler {
	return &StatusHandler{health: health, cache: cache, catalog: catalog}
}

// Status godoc
// @Summary Provider health and cache occupancy
// @Description The overall status is "ok" while any provider has worked or none has been tried yet, "degraded" otherwise
// @Tags status
// @Produce json
// @Success 200 {object} dto.StatusResponse
// @Router /status [get]
func (h *StatusHandler) Status(c *fiber.Ctx) error {
	providers := h.health.Snapshot()
	status := "ok"
	if len(providers) > 0 {
		status = "degraded"
		for _, p := range providers {
			if p.Status == domain.StatusWorking || p.Status == domain.StatusUnknown {
				status = "ok"
				break
			}
		}
	}
	return c.JSON(dto.StatusResponse{
		Status:    status,
		Providers: providers,
		Cache:     h.cache.Stats(""),
		Modules:   h.catalog.Modules(),
	})
}
