package handlers

import (
	"errors"

	"tapcash/internal/services/refund"
	"tapcash/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type RefundHandler struct {
	refundService refund.Service
}

func NewRefundHandler(refundService refund.Service) *RefundHandler {
	return &RefundHandler{refundService: refundService}
}

// Refund issues a refund against a successful bill payment. Admin only.
func (h *RefundHandler) Refund(c *fiber.Ctx) error {
	var input struct {
		TransactionID string `json:"transaction_id"`
		Reason        string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.TransactionID == "" {
		return utils.BadRequest(c, "transaction_id is required")
	}

	record, err := h.refundService.Refund(c.Context(), input.TransactionID, input.Reason)
	if err != nil {
		switch {
		case errors.Is(err, refund.ErrOriginalNotFound):
			return utils.NotFound(c, "original transaction not found")
		case errors.Is(err, refund.ErrNotRefundable):
			return utils.BadRequest(c, "transaction is not refundable")
		case errors.Is(err, refund.ErrAlreadyRefunded):
			return utils.Conflict(c, "transaction already refunded")
		case errors.Is(err, refund.ErrProviderTransferFailed):
			return utils.ServiceUnavailable(c, "provider refund transfer failed")
		default:
			return utils.InternalError(c, "refund failed")
		}
	}

	return utils.Created(c, fiber.Map{"refund": record})
}

// List returns all refund attempts recorded against one transaction.
func (h *RefundHandler) List(c *fiber.Ctx) error {
	records, err := h.refundService.ListByOriginal(c.Context(), c.Params("id"))
	if err != nil {
		return utils.InternalError(c, "failed to list refunds")
	}
	return utils.Success(c, fiber.Map{"refunds": records})
}
