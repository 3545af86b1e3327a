package statistics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/handlers"
	"github.com/sahilchouksey/lessionprm-api/services"
	"github.com/sahilchouksey/lessionprm-api/utils/response"
)

// StatisticsHandler serves the admin dashboards. Every endpoint accepts an
// optional start_date/end_date range.
type StatisticsHandler struct {
	service *services.StatisticsService
}

func NewStatisticsHandler(service *services.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{service: service}
}

// Dashboard handles GET /api/v1/statistics/dashboard
func (h *StatisticsHandler) Dashboard(c *fiber.Ctx) error {
	r, err := handlers.ParseDateRange(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	stats, err := h.service.Dashboard(c.UserContext(), r)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, stats)
}

// Revenue handles GET /api/v1/statistics/revenue
func (h *StatisticsHandler) Revenue(c *fiber.Ctx) error {
	r, err := handlers.ParseDateRange(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	stats, err := h.service.Revenue(c.UserContext(), r)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, stats)
}

// Courses handles GET /api/v1/statistics/courses
func (h *StatisticsHandler) Courses(c *fiber.Ctx) error {
	stats, err := h.service.Courses(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, stats)
}

// Users handles GET /api/v1/statistics/users
func (h *StatisticsHandler) Users(c *fiber.Ctx) error {
	r, err := handlers.ParseDateRange(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	stats, err := h.service.Users(c.UserContext(), r)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, stats)
}

// Financial handles GET /api/v1/statistics/financial
func (h *StatisticsHandler) Financial(c *fiber.Ctx) error {
	r, err := handlers.ParseDateRange(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	overview, err := h.service.Financial(c.UserContext(), r)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, overview)
}
