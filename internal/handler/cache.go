package handler

import (
	"context"

	"ccee-sentinel/internal/dto"
	"ccee-sentinel/internal/logger"
	"ccee-sentinel/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type CacheClearer interface {
	ClearModule(moduleID string) int
	Persist(ctx context.Context) error
}

type CacheHandler struct {
	store CacheClearer
}

func NewCacheHandler(store CacheClearer) *CacheHandler {
	return &CacheHandler{store: store}
}

// Clear godoc
// @Summary Clear a module's cached content
// @Description Drops every cached entry of the module and rewrites the snapshot. A failed snapshot write is logged, not returned.
// @Tags cache
// @Produce json
// @Param moduleId path string true "Module ID"
// @Success 200 {object} dto.CacheClearResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /cache/{moduleId} [delete]
func (h *CacheHandler) Clear(c *fiber.Ctx) error {
	moduleID, _ := c.Locals(middleware.ValidatedModuleIDKey).(string)
	if moduleID == "" {
		moduleID = c.Params("moduleId")
	}
	cleared := h.store.ClearModule(moduleID)
	if err := h.store.Persist(c.UserContext()); err != nil {
		logger.Get().Warn("Failed to persist cache snapshot", zap.String("module_id", moduleID), zap.Error(err))
	}
	return c.JSON(dto.CacheClearResponse{ModuleID: moduleID, Cleared: cleared})
}
