package handlers

import (
	"errors"
	"strconv"

	"tapcash/internal/middleware"
	"tapcash/internal/models"
	"tapcash/internal/services/ledger"
	"tapcash/internal/services/loan"
	"tapcash/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type LoanHandler struct {
	loanService   loan.Service
	ledgerService ledger.Service
}

func NewLoanHandler(loanService loan.Service, ledgerService ledger.Service) *LoanHandler {
	return &LoanHandler{
		loanService:   loanService,
		ledgerService: ledgerService,
	}
}

// List returns the caller's loans: a user sees loans they owe, a merchant
// sees loans it extended.
func (h *LoanHandler) List(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var loans []models.Loan
	if receiverID, ok := middleware.EffectiveReceiverID(claims); ok && claims.Role == models.RoleReceiver {
		loans, err = h.loanService.ListByReceiver(c.Context(), receiverID)
	} else {
		loans, err = h.loanService.ListByUser(c.Context(), claims.UserID)
	}
	if err != nil {
		return utils.InternalError(c, "failed to list loans")
	}

	return utils.Success(c, fiber.Map{"loans": loans})
}

func (h *LoanHandler) Get(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.BadRequest(c, "invalid loan id")
	}

	l, err := h.loanService.Get(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, loan.ErrLoanNotFound) {
			return utils.NotFound(c, "loan not found")
		}
		return utils.InternalError(c, "failed to get loan")
	}

	if claims.Role != models.RoleAdmin && l.UserID != claims.UserID {
		if receiverID, ok := middleware.EffectiveReceiverID(claims); !ok || l.ReceiverID != receiverID {
			return utils.Forbidden(c, "not your loan")
		}
	}

	return utils.Success(c, fiber.Map{"loan": l})
}

// Repay applies a repayment against one loan, moving money from the user
// wallet back to the lending merchant.
func (h *LoanHandler) Repay(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return utils.BadRequest(c, "invalid loan id")
	}

	var input struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	l, err := h.loanService.Get(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, loan.ErrLoanNotFound) {
			return utils.NotFound(c, "loan not found")
		}
		return utils.InternalError(c, "failed to get loan")
	}
	if claims.Role != models.RoleAdmin && l.UserID != claims.UserID {
		return utils.Forbidden(c, "not your loan")
	}

	txn, err := h.ledgerService.RecordLoanRepayment(c.Context(), uint(id), input.Amount)
	if err != nil {
		switch {
		case errors.Is(err, loan.ErrInvalidAmount), errors.Is(err, ledger.ErrInvalidAmount):
			return utils.BadRequest(c, "amount must be greater than zero")
		case errors.Is(err, loan.ErrOverpayment):
			return utils.BadRequest(c, "amount exceeds remaining balance")
		case errors.Is(err, loan.ErrLoanAlreadySettled):
			return utils.Conflict(c, "loan already settled")
		case errors.Is(err, ledger.ErrInsufficientBalance):
			return utils.BadRequest(c, "insufficient balance")
		default:
			return utils.InternalError(c, "repayment failed")
		}
	}

	return utils.Success(c, fiber.Map{"transaction": txn})
}
