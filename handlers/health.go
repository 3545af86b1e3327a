package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/database"
	"github.com/sahilchouksey/lessionprm-api/utils/cache"
)

// HealthHandler reports liveness of the database and, when configured, Redis
type HealthHandler struct {
	store database.Storage
	cache *cache.RedisCache
}

func NewHealthHandler(store database.Storage, redisCache *cache.RedisCache) *HealthHandler {
	return &HealthHandler{store: store, cache: redisCache}
}

// Check handles GET /health
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	checks := fiber.Map{"database": "ok"}
	status := "ok"
	code := fiber.StatusOK

	if err := h.store.HealthCheck(); err != nil {
		checks["database"] = err.Error()
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}

	if h.cache != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		checks["redis"] = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			// redis only backs optional features
			checks["redis"] = err.Error()
			status = "degraded"
		}
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC(),
	})
}
