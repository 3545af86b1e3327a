package payment

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/handlers"
	"github.com/sahilchouksey/lessionprm-api/services"
	"github.com/sahilchouksey/lessionprm-api/services/momo"
	"github.com/sahilchouksey/lessionprm-api/utils/logger"
	"github.com/sahilchouksey/lessionprm-api/utils/middleware"
	"github.com/sahilchouksey/lessionprm-api/utils/response"
	"github.com/sahilchouksey/lessionprm-api/utils/validation"
)

// PaymentHandler exposes the MoMo checkout flow
type PaymentHandler struct {
	service   *services.PaymentService
	validator *validation.Validator
}

func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service, validator: validation.NewValidator()}
}

type RefundRequest struct {
	Reason string `json:"reason" validate:"max=255"`
}

// CreateMoMoPayment handles POST /api/v1/payments/momo/create
func (h *PaymentHandler) CreateMoMoPayment(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req services.CreatePaymentInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}
	req.OrderInfo = validation.SanitizeString(req.OrderInfo)

	result, err := h.service.CreatePayment(c.UserContext(), userID, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, result)
}

// HandleMoMoCallback handles POST /api/v1/payments/momo/callback.
// The request is authenticated by its signature only.
func (h *PaymentHandler) HandleMoMoCallback(c *fiber.Ctx) error {
	var cb momo.Callback
	if err := c.BodyParser(&cb); err != nil {
		logger.FromFiber(c).Warn().Err(err).Msg("unreadable momo callback")
		return response.BadRequest(c, "Invalid callback body")
	}
	if cb.OrderID == "" || cb.Signature == "" {
		return response.BadRequest(c, "Missing orderId or signature")
	}

	result, err := h.service.HandleCallback(c.UserContext(), &cb)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, result)
}

// GetPaymentStatus handles GET /api/v1/payments/momo/status/:orderId
func (h *PaymentHandler) GetPaymentStatus(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	orderID := c.Params("orderId")
	if orderID == "" {
		return response.BadRequest(c, "Order ID is required")
	}

	status, err := h.service.GetStatus(c.UserContext(), userID, orderID, middleware.IsAdmin(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, status)
}

// RefundPayment handles POST /api/v1/payments/momo/refund/:invoiceId
func (h *PaymentHandler) RefundPayment(c *fiber.Ctx) error {
	invoiceID, err := handlers.ParseID(c, "invoiceId")
	if err != nil {
		return response.BadRequest(c, "Invalid invoice ID")
	}

	var req RefundRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}
	if errs := h.validator.ValidateStruct(req); errs != nil {
		return response.ValidationError(c, errs)
	}

	invoice, err := h.service.Refund(c.UserContext(), invoiceID, validation.SanitizeString(req.Reason))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Payment refunded", invoice)
}
