package handlers

import (
	"strconv"
	"time"

	"tapcash/internal/middleware"
	"tapcash/internal/models"
	"tapcash/internal/services/history"
	"tapcash/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type HistoryHandler struct {
	historyService *history.Service
}

func NewHistoryHandler(historyService *history.Service) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

// Transactions returns the caller's ledger history, paged.
func (h *HistoryHandler) Transactions(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	q := history.Query{
		Type:     c.Query("type"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 0),
	}
	if from, ok := queryTime(c, "from"); ok {
		q.From = &from
	}
	if to, ok := queryTime(c, "to"); ok {
		q.To = &to
	}

	if receiverID, ok := middleware.EffectiveReceiverID(claims); ok && claims.Role == models.RoleReceiver {
		q.ReceiverID = &receiverID
	} else {
		userID := claims.UserID
		q.UserID = &userID
	}

	page, err := h.historyService.Transactions(c.Context(), q)
	if err != nil {
		return utils.InternalError(c, "failed to load history")
	}

	return utils.Success(c, page)
}

// BillPayments returns the caller's bill-payment history, paged.
func (h *HistoryHandler) BillPayments(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	rows, err := h.historyService.BillPayments(c.Context(), claims.UserID,
		queryInt(c, "page", 1), queryInt(c, "page_size", 0))
	if err != nil {
		return utils.InternalError(c, "failed to load bill payments")
	}

	return utils.Success(c, fiber.Map{"gateway_transactions": rows})
}

func queryInt(c *fiber.Ctx, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func queryTime(c *fiber.Ctx, key string) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
