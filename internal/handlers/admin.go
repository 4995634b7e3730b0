package handlers

import (
	"errors"
	"strconv"

	"tapcash/internal/models"
	"tapcash/internal/repositories"
	"tapcash/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// AdminHandler exposes the settings surface the engine resolves against.
// All routes behind it require admin claims.
type AdminHandler struct {
	settings repositories.SettingsRepository
}

func NewAdminHandler(settings repositories.SettingsRepository) *AdminHandler {
	return &AdminHandler{settings: settings}
}

func (h *AdminHandler) ListRangeSettings(c *fiber.Ctx) error {
	ranges, err := h.settings.ActiveRangeSettings()
	if err != nil {
		return utils.InternalError(c, "failed to list range settings")
	}
	return utils.Success(c, fiber.Map{"range_settings": ranges})
}

func (h *AdminHandler) UpsertRangeSetting(c *fiber.Ctx) error {
	var input struct {
		ID         uint             `json:"id"`
		MinAmount  decimal.Decimal  `json:"min_amount"`
		MaxAmount  *decimal.Decimal `json:"max_amount"`
		Percentage decimal.Decimal  `json:"percentage"`
		Priority   int              `json:"priority"`
		IsActive   *bool            `json:"is_active"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.MinAmount.IsNegative() {
		return utils.BadRequest(c, "min_amount must not be negative")
	}
	if input.MaxAmount != nil && input.MaxAmount.LessThanOrEqual(input.MinAmount) {
		return utils.BadRequest(c, "max_amount must be greater than min_amount")
	}
	if input.Percentage.IsNegative() {
		return utils.BadRequest(c, "percentage must not be negative")
	}

	setting := models.RangeSetting{
		MinAmount:  input.MinAmount,
		MaxAmount:  input.MaxAmount,
		Percentage: input.Percentage,
		Priority:   input.Priority,
		IsActive:   input.IsActive == nil || *input.IsActive,
	}
	setting.ID = input.ID
	if err := h.settings.UpsertRangeSetting(&setting); err != nil {
		return utils.InternalError(c, "failed to save range setting")
	}
	return utils.Success(c, fiber.Map{"range_setting": setting})
}

func (h *AdminHandler) GetGatewaySetting(c *fiber.Ctx) error {
	setting, err := h.settings.GatewaySetting(c.Params("serviceType"))
	if err != nil {
		if errors.Is(err, repositories.ErrSettingNotFound) {
			return utils.NotFound(c, "gateway setting not found")
		}
		return utils.InternalError(c, "failed to get gateway setting")
	}
	return utils.Success(c, fiber.Map{"gateway_setting": setting})
}

func (h *AdminHandler) UpsertGatewaySetting(c *fiber.Ctx) error {
	var input struct {
		ServiceType                string          `json:"service_type"`
		CustomerCashbackPercentage decimal.Decimal `json:"customer_cashback_percentage"`
		PlatformSharePercentage    decimal.Decimal `json:"platform_share_percentage"`
		ProviderSharePercentage    decimal.Decimal `json:"provider_share_percentage"`
		IsActive                   *bool           `json:"is_active"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.ServiceType == "" {
		return utils.BadRequest(c, "service_type is required")
	}
	for _, pct := range []decimal.Decimal{
		input.CustomerCashbackPercentage,
		input.PlatformSharePercentage,
		input.ProviderSharePercentage,
	} {
		if pct.IsNegative() {
			return utils.BadRequest(c, "percentages must not be negative")
		}
	}

	setting := models.GatewaySetting{
		ServiceType:                input.ServiceType,
		CustomerCashbackPercentage: input.CustomerCashbackPercentage,
		PlatformSharePercentage:    input.PlatformSharePercentage,
		ProviderSharePercentage:    input.ProviderSharePercentage,
		IsActive:                   input.IsActive == nil || *input.IsActive,
	}
	if err := h.settings.UpsertGatewaySetting(&setting); err != nil {
		return utils.InternalError(c, "failed to save gateway setting")
	}
	return utils.Success(c, fiber.Map{"gateway_setting": setting})
}

func (h *AdminHandler) ListCommissionSettings(c *fiber.Ctx) error {
	receiverID, err := strconv.ParseUint(c.Params("receiverID"), 10, 32)
	if err != nil {
		return utils.BadRequest(c, "invalid receiver id")
	}
	settings, err := h.settings.CommissionSettings(uint(receiverID))
	if err != nil {
		return utils.InternalError(c, "failed to list commission settings")
	}
	return utils.Success(c, fiber.Map{"commission_settings": settings})
}

func (h *AdminHandler) UpsertCommissionSetting(c *fiber.Ctx) error {
	var input struct {
		ReceiverID uint            `json:"receiver_id"`
		Phone      string          `json:"phone"`
		Percentage decimal.Decimal `json:"percentage"`
		IsActive   *bool           `json:"is_active"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.ReceiverID == 0 || input.Phone == "" {
		return utils.BadRequest(c, "receiver_id and phone are required")
	}
	if input.Percentage.IsNegative() {
		return utils.BadRequest(c, "percentage must not be negative")
	}

	setting := models.CommissionSetting{
		ReceiverID: input.ReceiverID,
		Phone:      input.Phone,
		Percentage: input.Percentage,
		IsActive:   input.IsActive == nil || *input.IsActive,
	}
	if err := h.settings.UpsertCommissionSetting(&setting); err != nil {
		return utils.InternalError(c, "failed to save commission setting")
	}
	return utils.Success(c, fiber.Map{"commission_setting": setting})
}

func (h *AdminHandler) GetGlobalSettings(c *fiber.Ctx) error {
	settings, err := h.settings.GlobalSettings()
	if err != nil {
		return utils.InternalError(c, "failed to get global settings")
	}
	return utils.Success(c, fiber.Map{"global_settings": settings})
}

func (h *AdminHandler) UpdateGlobalSettings(c *fiber.Ctx) error {
	var input struct {
		AdminDiscountPercentage *decimal.Decimal `json:"admin_discount_percentage"`
		UserBonusPercentage     *decimal.Decimal `json:"user_bonus_percentage"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	settings, err := h.settings.GlobalSettings()
	if err != nil {
		return utils.InternalError(c, "failed to get global settings")
	}

	if input.AdminDiscountPercentage != nil {
		if input.AdminDiscountPercentage.IsNegative() {
			return utils.BadRequest(c, "admin_discount_percentage must not be negative")
		}
		settings.AdminDiscountPercentage = *input.AdminDiscountPercentage
	}
	if input.UserBonusPercentage != nil {
		if input.UserBonusPercentage.IsNegative() {
			return utils.BadRequest(c, "user_bonus_percentage must not be negative")
		}
		settings.UserBonusPercentage = *input.UserBonusPercentage
	}

	if err := h.settings.SaveGlobalSettings(settings); err != nil {
		return utils.InternalError(c, "failed to save global settings")
	}
	return utils.Success(c, fiber.Map{"global_settings": settings})
}
