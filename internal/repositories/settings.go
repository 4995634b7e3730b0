package repositories

import (
	"errors"
	"fmt"

	"tapcash/internal/models"

	"gorm.io/gorm"
)

var ErrSettingNotFound = errors.New("setting not found")

// SettingsRepository loads the admin-mutated configuration the engine
// resolves against. Reads return snapshots; the engine never writes here
// except through the admin surface.
type SettingsRepository interface {
	// ActiveRangeSettings returns active ranges ordered by priority then
	// creation time, the order resolution depends on.
	ActiveRangeSettings() ([]models.RangeSetting, error)
	UpsertRangeSetting(setting *models.RangeSetting) error

	GatewaySetting(serviceType string) (*models.GatewaySetting, error)
	UpsertGatewaySetting(setting *models.GatewaySetting) error

	CommissionSettings(receiverID uint) ([]models.CommissionSetting, error)
	UpsertCommissionSetting(setting *models.CommissionSetting) error

	GlobalSettings() (*models.GlobalSettings, error)
	SaveGlobalSettings(settings *models.GlobalSettings) error
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) ActiveRangeSettings() ([]models.RangeSetting, error) {
	var settings []models.RangeSetting
	err := r.db.Where("is_active = ?", true).
		Order("priority ASC, created_at ASC, id ASC").Find(&settings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load range settings: %w", err)
	}
	return settings, nil
}

func (r *settingsRepository) UpsertRangeSetting(setting *models.RangeSetting) error {
	if err := r.db.Save(setting).Error; err != nil {
		return fmt.Errorf("failed to save range setting: %w", err)
	}
	return nil
}

func (r *settingsRepository) GatewaySetting(serviceType string) (*models.GatewaySetting, error) {
	var setting models.GatewaySetting
	err := r.db.Where("service_type = ? AND is_active = ?", serviceType, true).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettingNotFound
		}
		return nil, fmt.Errorf("failed to load gateway setting: %w", err)
	}
	return &setting, nil
}

func (r *settingsRepository) UpsertGatewaySetting(setting *models.GatewaySetting) error {
	if err := r.db.Save(setting).Error; err != nil {
		return fmt.Errorf("failed to save gateway setting: %w", err)
	}
	return nil
}

func (r *settingsRepository) CommissionSettings(receiverID uint) ([]models.CommissionSetting, error) {
	var settings []models.CommissionSetting
	err := r.db.Where("receiver_id = ? AND is_active = ?", receiverID, true).Find(&settings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load commission settings: %w", err)
	}
	return settings, nil
}

func (r *settingsRepository) UpsertCommissionSetting(setting *models.CommissionSetting) error {
	if err := r.db.Save(setting).Error; err != nil {
		return fmt.Errorf("failed to save commission setting: %w", err)
	}
	return nil
}

func (r *settingsRepository) GlobalSettings() (*models.GlobalSettings, error) {
	var settings models.GlobalSettings
	err := r.db.First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettingNotFound
		}
		return nil, fmt.Errorf("failed to load global settings: %w", err)
	}
	return &settings, nil
}

func (r *settingsRepository) SaveGlobalSettings(settings *models.GlobalSettings) error {
	if err := r.db.Save(settings).Error; err != nil {
		return fmt.Errorf("failed to save global settings: %w", err)
	}
	return nil
}
