package revenue

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/services"
	"github.com/sahilchouksey/lessionprm-api/utils/response"
	"github.com/sahilchouksey/lessionprm-api/utils/validation"
)

// RevenueHandler exposes the monthly revenue rollups
type RevenueHandler struct {
	service   *services.RevenueService
	validator *validation.Validator
	now       func() time.Time
}

func NewRevenueHandler(service *services.RevenueService) *RevenueHandler {
	return &RevenueHandler{
		service:   service,
		validator: validation.NewValidator(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GenerateRequest selects the month to roll up; zero values mean the current month
type GenerateRequest struct {
	Year  int `json:"year" validate:"omitempty,min=2000,max=9999"`
	Month int `json:"month" validate:"omitempty,min=1,max=12"`
}

// GenerateMonthly handles POST /api/v1/revenues/generate
func (h *RevenueHandler) GenerateMonthly(c *fiber.Ctx) error {
	var req GenerateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	now := h.now()
	if req.Year == 0 {
		req.Year = now.Year()
	}
	if req.Month == 0 {
		req.Month = int(now.Month())
	}

	revenue, err := h.service.GenerateMonthly(c.UserContext(), req.Year, time.Month(req.Month))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Monthly revenue generated", revenue)
}

// RecalculateAll handles POST /api/v1/revenues/recalculate
func (h *RevenueHandler) RecalculateAll(c *fiber.Ctx) error {
	revenues, err := h.service.RecalculateAll(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Revenue recalculated", revenues)
}

// GetMonthly handles GET /api/v1/revenues/:year/:month
func (h *RevenueHandler) GetMonthly(c *fiber.Ctx) error {
	year, err := strconv.Atoi(c.Params("year"))
	if err != nil {
		return response.BadRequest(c, "Invalid year")
	}
	month, err := strconv.Atoi(c.Params("month"))
	if err != nil {
		return response.BadRequest(c, "Invalid month")
	}

	revenue, err := h.service.Get(c.UserContext(), year, time.Month(month))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, revenue)
}

// ListByYear handles GET /api/v1/revenues/:year
func (h *RevenueHandler) ListByYear(c *fiber.Ctx) error {
	year, err := strconv.Atoi(c.Params("year"))
	if err != nil {
		return response.BadRequest(c, "Invalid year")
	}

	revenues, err := h.service.ListByYear(c.UserContext(), year)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, revenues)
}

// GetYearlyTotals handles GET /api/v1/revenues/:year/totals
func (h *RevenueHandler) GetYearlyTotals(c *fiber.Ctx) error {
	year, err := strconv.Atoi(c.Params("year"))
	if err != nil {
		return response.BadRequest(c, "Invalid year")
	}

	totals, err := h.service.YearlyTotals(c.UserContext(), year)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, totals)
}
