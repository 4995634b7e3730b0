package handlers

import (
	"errors"

	"tapcash/internal/middleware"
	"tapcash/internal/models"
	"tapcash/internal/services/funding"
	"tapcash/internal/services/ledger"
	"tapcash/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type WalletHandler struct {
	ledgerService  ledger.Service
	fundingService *funding.Service
}

func NewWalletHandler(ledgerService ledger.Service, fundingService *funding.Service) *WalletHandler {
	return &WalletHandler{
		ledgerService:  ledgerService,
		fundingService: fundingService,
	}
}

func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	ref := ledger.UserAccount(claims.UserID)
	if claims.Role == models.RoleReceiver {
		receiverID, ok := middleware.EffectiveReceiverID(claims)
		if !ok {
			return utils.Forbidden(c, "merchant access required")
		}
		ref = ledger.ReceiverAccount(receiverID)
	}

	balance, err := h.ledgerService.GetBalance(c.Context(), ref)
	if err != nil {
		return utils.InternalError(c, "failed to get balance")
	}

	return utils.Success(c, fiber.Map{
		"kind":    ref.Kind,
		"id":      ref.ID,
		"balance": balance,
	})
}

// TopUp is the merchant-assisted NFC top-up: the merchant operator credits a
// customer wallet out of the merchant float.
func (h *WalletHandler) TopUp(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	receiverID, ok := middleware.EffectiveReceiverID(claims)
	if !ok {
		return utils.Forbidden(c, "merchant access required")
	}

	var input struct {
		UserID      uint            `json:"user_id"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.UserID == 0 {
		return utils.BadRequest(c, "user_id is required")
	}

	result, err := h.ledgerService.TopUp(c.Context(), ledger.TopUpRequest{
		UserID:        input.UserID,
		ReceiverID:    receiverID,
		Amount:        input.Amount,
		FundingSource: ledger.FundingMerchantFloat,
		Description:   input.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount):
			return utils.BadRequest(c, "amount must be greater than zero")
		case errors.Is(err, ledger.ErrAccountNotFound):
			return utils.NotFound(c, "account not found")
		default:
			return utils.InternalError(c, "top-up failed")
		}
	}

	resp := fiber.Map{
		"transaction": result.Transaction,
		"discount":    result.Discount,
		"user_bonus":  result.UserBonus,
	}
	if result.Loan != nil {
		resp["loan"] = result.Loan
	}
	return utils.Success(c, resp)
}

// CardTopUp funds the caller's own wallet from a card charge.
func (h *WalletHandler) CardTopUp(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Amount      decimal.Decimal `json:"amount"`
		CardNumber  string          `json:"card_number"`
		ExpiryMonth string          `json:"expiry_month"`
		ExpiryYear  string          `json:"expiry_year"`
		CVV         string          `json:"cvv"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	txn, err := h.fundingService.TopUp(c.Context(), funding.TopUpRequest{
		UserID: claims.UserID,
		Amount: input.Amount,
		Card: funding.CardDetails{
			CardNumber:  input.CardNumber,
			ExpiryMonth: input.ExpiryMonth,
			ExpiryYear:  input.ExpiryYear,
			CVV:         input.CVV,
		},
	})
	if err != nil {
		switch {
		case errors.Is(err, funding.ErrInvalidAmount):
			return utils.BadRequest(c, "amount must be greater than zero")
		case errors.Is(err, funding.ErrInvalidCard):
			return utils.BadRequest(c, "invalid card details")
		case errors.Is(err, funding.ErrCardDeclined):
			return utils.UnprocessableEntity(c, "card charge declined")
		default:
			return utils.InternalError(c, "card top-up failed")
		}
	}

	return utils.Success(c, fiber.Map{"transaction": txn})
}

// Pay charges the caller's wallet for an in-store merchant payment.
func (h *WalletHandler) Pay(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		ReceiverID  uint            `json:"receiver_id"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.ReceiverID == 0 {
		return utils.BadRequest(c, "receiver_id is required")
	}

	txn, err := h.ledgerService.Pay(c.Context(), ledger.PayRequest{
		UserID:      claims.UserID,
		ReceiverID:  input.ReceiverID,
		Amount:      input.Amount,
		Description: input.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount):
			return utils.BadRequest(c, "amount must be greater than zero")
		case errors.Is(err, ledger.ErrInsufficientBalance):
			return utils.BadRequest(c, "insufficient balance")
		case errors.Is(err, ledger.ErrAccountNotFound):
			return utils.NotFound(c, "account not found")
		default:
			return utils.InternalError(c, "payment failed")
		}
	}

	return utils.Success(c, fiber.Map{"transaction": txn})
}
