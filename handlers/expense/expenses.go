package expense

import (
	"io"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/handlers"
	"github.com/sahilchouksey/lessionprm-api/services"
	"github.com/sahilchouksey/lessionprm-api/utils/middleware"
	"github.com/sahilchouksey/lessionprm-api/utils/pdfvalidation"
	"github.com/sahilchouksey/lessionprm-api/utils/response"
	"github.com/sahilchouksey/lessionprm-api/utils/validation"
)

// ExpenseHandler handles operating expense bookkeeping
type ExpenseHandler struct {
	service   *services.ExpenseService
	validator *validation.Validator
	now       func() time.Time
}

func NewExpenseHandler(service *services.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{
		service:   service,
		validator: validation.NewValidator(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// ListExpenses handles GET /api/v1/expenses
func (h *ExpenseHandler) ListExpenses(c *fiber.Ctx) error {
	r, err := handlers.ParseDateRange(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	page, limit := response.NormalizePage(handlers.ParsePage(c))
	filter := services.ExpenseFilter{
		Page:     page,
		Limit:    limit,
		Category: c.Query("category"),
		Range:    r,
	}
	if raw := c.Query("approved"); raw != "" {
		approved, err := strconv.ParseBool(raw)
		if err != nil {
			return response.BadRequest(c, "Invalid approved flag")
		}
		filter.Approved = &approved
	}

	expenses, total, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, expenses, response.CalculatePagination(page, limit, total))
}

// GetExpense handles GET /api/v1/expenses/:id
func (h *ExpenseHandler) GetExpense(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid expense ID")
	}

	expense, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, expense)
}

// CreateExpense handles POST /api/v1/expenses
func (h *ExpenseHandler) CreateExpense(c *fiber.Ctx) error {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req services.ExpenseInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Description = validation.SanitizeString(req.Description)
	req.Category = validation.SanitizeString(req.Category)
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	expense, err := h.service.Create(c.UserContext(), adminID, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, expense)
}

// UpdateExpense handles PUT /api/v1/expenses/:id
func (h *ExpenseHandler) UpdateExpense(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid expense ID")
	}

	var req services.ExpenseInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Description = validation.SanitizeString(req.Description)
	req.Category = validation.SanitizeString(req.Category)
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	expense, err := h.service.Update(c.UserContext(), id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Expense updated successfully", expense)
}

// DeleteExpense handles DELETE /api/v1/expenses/:id
func (h *ExpenseHandler) DeleteExpense(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid expense ID")
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Expense deleted successfully", nil)
}

// ApproveExpense handles POST /api/v1/expenses/:id/approve
func (h *ExpenseHandler) ApproveExpense(c *fiber.Ctx) error {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid expense ID")
	}

	expense, err := h.service.Approve(c.UserContext(), id, adminID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Expense approved", expense)
}

// RejectExpense handles POST /api/v1/expenses/:id/reject
func (h *ExpenseHandler) RejectExpense(c *fiber.Ctx) error {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid expense ID")
	}

	var req RejectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Reason = validation.SanitizeString(req.Reason)
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	expense, err := h.service.Reject(c.UserContext(), id, adminID, req.Reason)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Expense rejected", expense)
}

// UploadReceipt handles POST /api/v1/expenses/:id/receipt (multipart field "file")
func (h *ExpenseHandler) UploadReceipt(c *fiber.Ctx) error {
	id, err := handlers.ParseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid expense ID")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "File is required")
	}
	maxBytes := int64(pdfvalidation.ReceiptLimits.MaxFileSizeMB) * 1024 * 1024
	if file.Size > maxBytes {
		return response.BadRequest(c, "File size exceeds maximum allowed size")
	}

	f, err := file.Open()
	if err != nil {
		return response.InternalServerError(c, "Failed to open file")
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return response.InternalServerError(c, "Failed to read file")
	}

	expense, err := h.service.AttachReceipt(c.UserContext(), id, file.Filename, content)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Receipt uploaded", expense)
}

// GetCategories handles GET /api/v1/expenses/categories
func (h *ExpenseHandler) GetCategories(c *fiber.Ctx) error {
	categories, err := h.service.Categories(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, categories)
}

// GetTotals handles GET /api/v1/expenses/totals
func (h *ExpenseHandler) GetTotals(c *fiber.Ctx) error {
	r, err := handlers.ParseDateRange(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	total, err := h.service.TotalApproved(c.UserContext(), r)
	if err != nil {
		return response.FromError(c, err)
	}
	byCategory, err := h.service.TotalsByCategory(c.UserContext(), r)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, fiber.Map{
		"total_approved": total,
		"by_category":    byCategory,
	})
}

// GetMonthlySummary handles GET /api/v1/expenses/monthly?year=&month=
func (h *ExpenseHandler) GetMonthlySummary(c *fiber.Ctx) error {
	now := h.now()
	year := c.QueryInt("year", now.Year())
	month := c.QueryInt("month", int(now.Month()))
	if month < 1 || month > 12 {
		return response.BadRequest(c, "Month must be between 1 and 12")
	}

	summary, err := h.service.MonthlySummary(c.UserContext(), year, time.Month(month))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, summary)
}
