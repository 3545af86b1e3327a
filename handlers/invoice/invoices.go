package invoice

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/handlers"
	"github.com/sahilchouksey/lessionprm-api/services"
	"github.com/sahilchouksey/lessionprm-api/utils/middleware"
	"github.com/sahilchouksey/lessionprm-api/utils/response"
	"github.com/sahilchouksey/lessionprm-api/utils/validation"
)

// InvoiceHandler serves buyer invoice history and admin invoice management
type InvoiceHandler struct {
	service   *services.InvoiceService
	validator *validation.Validator
	now       func() time.Time
}

func NewInvoiceHandler(service *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		service:   service,
		validator: validation.NewValidator(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type MarkPaidRequest struct {
	TransactionID string `json:"transaction_id" validate:"max=100"`
}

type ReasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// MyInvoices handles GET /api/v1/invoices/my-invoices
func (h *InvoiceHandler) MyInvoices(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	page, limit := response.NormalizePage(handlers.ParsePage(c))
	invoices, total, err := h.service.ListForUser(c.UserContext(), userID, page, limit)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, invoices, response.CalculatePagination(page, limit, total))
}

// GetInvoice handles GET /api/v1/invoices/:id. Buyers only see their own invoices.
func (h *InvoiceHandler) GetInvoice(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid invoice ID")
	}

	if middleware.IsAdmin(c) {
		inv, err := h.service.GetByID(c.UserContext(), id)
		if err != nil {
			return response.FromError(c, err)
		}
		return response.Success(c, inv)
	}

	inv, err := h.service.GetForUser(c.UserContext(), userID, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, inv)
}

// ListInvoices handles GET /api/v1/invoices
func (h *InvoiceHandler) ListInvoices(c *fiber.Ctx) error {
	r, err := handlers.ParseDateRange(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	page, limit := response.NormalizePage(handlers.ParsePage(c))
	filter := services.InvoiceFilter{
		Page:   page,
		Limit:  limit,
		Status: c.Query("status"),
		UserID: uint(c.QueryInt("user_id", 0)),
		Range:  r,
	}

	invoices, total, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, invoices, response.CalculatePagination(page, limit, total))
}

// GetStatistics handles GET /api/v1/invoices/statistics
func (h *InvoiceHandler) GetStatistics(c *fiber.Ctx) error {
	r, err := handlers.ParseDateRange(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	stats, err := h.service.Statistics(c.UserContext(), r)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, stats)
}

// MarkPaid handles PUT /api/v1/invoices/:id/paid
func (h *InvoiceHandler) MarkPaid(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid invoice ID")
	}

	var req MarkPaidRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	inv, err := h.service.MarkPaid(c.UserContext(), id, validation.SanitizeString(req.TransactionID))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Invoice marked as paid", inv)
}

// MarkFailed handles PUT /api/v1/invoices/:id/failed
func (h *InvoiceHandler) MarkFailed(c *fiber.Ctx) error {
	id, reason, err := h.parseReason(c, "Marked as failed by admin")
	if err != nil || id == 0 {
		return err
	}

	inv, err := h.service.MarkFailed(c.UserContext(), id, reason)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Invoice marked as failed", inv)
}

// MarkCancelled handles PUT /api/v1/invoices/:id/cancelled
func (h *InvoiceHandler) MarkCancelled(c *fiber.Ctx) error {
	id, reason, err := h.parseReason(c, "Cancelled by admin")
	if err != nil || id == 0 {
		return err
	}

	inv, err := h.service.MarkCancelled(c.UserContext(), id, reason)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Invoice cancelled", inv)
}

// parseReason returns a zero id once it has already written an error response
func (h *InvoiceHandler) parseReason(c *fiber.Ctx, fallback string) (uint, string, error) {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return 0, "", response.BadRequest(c, "Invalid invoice ID")
	}

	var req ReasonRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return 0, "", response.BadRequest(c, "Invalid request body")
		}
	}
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return 0, "", response.ValidationError(c, errs)
	}

	reason := validation.SanitizeString(req.Reason)
	if reason == "" {
		reason = fallback
	}
	return id, reason, nil
}

// ProcessExpired handles POST /api/v1/invoices/process-expired
func (h *InvoiceHandler) ProcessExpired(c *fiber.Ctx) error {
	count, err := h.service.ExpirePending(c.UserContext(), h.now())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Expired invoices processed", fiber.Map{
		"cancelled": count,
	})
}
