package handlers

import (
	"errors"
	"strconv"
	"strings"

	"tapcash/internal/middleware"
	"tapcash/internal/models"
	"tapcash/internal/services/gateway"
	"tapcash/internal/services/ledger"
	"tapcash/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type BillPayHandler struct {
	gatewayService gateway.Service
}

func NewBillPayHandler(gatewayService gateway.Service) *BillPayHandler {
	return &BillPayHandler{gatewayService: gatewayService}
}

// Initiate starts a bill payment: it holds the funds and hands the request
// to an external provider.
func (h *BillPayHandler) Initiate(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		ServiceType   string          `json:"service_type"`
		CustomerPhone string          `json:"customer_phone"`
		Amount        decimal.Decimal `json:"amount"`
		Provider      string          `json:"provider"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.ServiceType == "" || input.CustomerPhone == "" {
		return utils.BadRequest(c, "service_type and customer_phone are required")
	}

	req := gateway.InitiateRequest{
		UserID:        claims.UserID,
		ServiceType:   input.ServiceType,
		CustomerPhone: input.CustomerPhone,
		Amount:        input.Amount,
		Provider:      input.Provider,
	}
	if receiverID, ok := middleware.EffectiveReceiverID(claims); ok && claims.Role == models.RoleReceiver {
		req.ReceiverID = &receiverID
	}

	gtx, err := h.gatewayService.Initiate(c.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrInvalidRequest):
			return utils.BadRequest(c, "invalid bill payment request")
		case errors.Is(err, ledger.ErrInsufficientBalance):
			return utils.BadRequest(c, "insufficient balance")
		case errors.Is(err, gateway.ErrUnknownProvider):
			return utils.BadRequest(c, "unknown provider")
		case errors.Is(err, gateway.ErrGatewayUnavailable):
			return utils.ServiceUnavailable(c, "payment provider unavailable")
		default:
			return utils.InternalError(c, "failed to initiate bill payment")
		}
	}

	return utils.Created(c, fiber.Map{"gateway_transaction": gtx})
}

// Webhook receives a provider-signed status token. The body is the raw
// token string. Replayed deliveries are acknowledged with 200 so providers
// stop retrying.
func (h *BillPayHandler) Webhook(c *fiber.Ctx) error {
	token := strings.TrimSpace(string(c.Body()))
	if token == "" {
		return utils.BadRequest(c, "empty webhook body")
	}

	outcome, err := h.gatewayService.HandleWebhook(c.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrInvalidWebhookToken):
			return utils.Unauthorized(c, "invalid webhook token")
		case errors.Is(err, gateway.ErrUnknownTransaction):
			return utils.NotFound(c, "unknown transaction")
		case errors.Is(err, gateway.ErrConflictingTerminalState):
			return utils.Conflict(c, "conflicting terminal state")
		default:
			return utils.InternalError(c, "failed to process webhook")
		}
	}

	return utils.Success(c, fiber.Map{
		"result": outcome.Kind,
		"status": outcome.Transaction.GatewayStatus,
	})
}

// Poll actively asks the provider for the current status of one transaction.
func (h *BillPayHandler) Poll(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	transactionID := c.Params("id")
	gtx, err := h.gatewayService.Get(c.Context(), transactionID)
	if err != nil {
		if errors.Is(err, gateway.ErrUnknownTransaction) {
			return utils.NotFound(c, "unknown transaction")
		}
		return utils.InternalError(c, "failed to load transaction")
	}
	if claims.Role != models.RoleAdmin && gtx.UserID != claims.UserID {
		return utils.Forbidden(c, "not your transaction")
	}

	outcome, err := h.gatewayService.PollStatus(c.Context(), transactionID)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrNoPollEndpoint):
			return utils.Conflict(c, "transaction cannot be polled")
		case errors.Is(err, gateway.ErrGatewayUnavailable):
			return utils.ServiceUnavailable(c, "payment provider unavailable")
		default:
			return utils.InternalError(c, "failed to poll status")
		}
	}

	return utils.Success(c, fiber.Map{
		"result":              outcome.Kind,
		"gateway_transaction": outcome.Transaction,
	})
}

func (h *BillPayHandler) Get(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	gtx, err := h.gatewayService.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, gateway.ErrUnknownTransaction) {
			return utils.NotFound(c, "unknown transaction")
		}
		return utils.InternalError(c, "failed to load transaction")
	}
	if claims.Role != models.RoleAdmin && gtx.UserID != claims.UserID {
		return utils.Forbidden(c, "not your transaction")
	}

	return utils.Success(c, fiber.Map{"gateway_transaction": gtx})
}

// List pages through the caller's bill payments.
func (h *BillPayHandler) List(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	rows, err := h.gatewayService.ListByUser(c.Context(), claims.UserID, limit, offset)
	if err != nil {
		return utils.InternalError(c, "failed to list bill payments")
	}

	return utils.Success(c, fiber.Map{"gateway_transactions": rows})
}
