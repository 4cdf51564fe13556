package service

import (
	"errors"
	"strconv"
	"strings"

	"github.com/kiplystart/kiplystart-backend/internal/app/model"
	"github.com/kiplystart/kiplystart-backend/internal/app/repository"
	"github.com/kiplystart/kiplystart-backend/pkg/logger"
	"github.com/kiplystart/kiplystart-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrUnknownSetting = errors.New("unknown setting")
	ErrInvalidSetting = errors.New("invalid setting value")
)

// SettingDefaults are used for keys that have never been saved.
type SettingDefaults map[string]string

type SettingService interface {
	GetAll() (map[string]string, error)
	Get(key string) string
	Update(values map[string]string) (map[string]string, error)
	CheckoutEnabled() bool
}

type settingService struct {
	settingRepo repository.SettingRepository
	defaults    SettingDefaults
}

func NewSettingService(settingRepo repository.SettingRepository, defaults SettingDefaults) SettingService {
	return &settingService{
		settingRepo: settingRepo,
		defaults:    defaults,
	}
}

// GetAll returns every known setting, stored values taking precedence over
// defaults.
func (s *settingService) GetAll() (map[string]string, error) {
	settings, err := s.settingRepo.FindAll()
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(s.defaults)+len(settings))
	for k, v := range s.defaults {
		out[k] = v
	}
	for _, setting := range settings {
		out[setting.Key] = setting.Value
	}
	return out, nil
}

// Get returns the stored value of key, or its default when the key was never
// saved or cannot be read.
func (s *settingService) Get(key string) string {
	setting, err := s.settingRepo.Get(key)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Failed to read setting, using default", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return s.defaults[key]
	}
	return setting.Value
}

// Update validates and saves values. Only keys with a default are accepted.
func (s *settingService) Update(values map[string]string) (map[string]string, error) {
	normalized := make(map[string]string, len(values))
	for key, value := range values {
		if _, ok := s.defaults[key]; !ok {
			return nil, ErrUnknownSetting
		}
		v, err := normalizeSetting(key, value)
		if err != nil {
			logger.Warn("Rejected setting value", map[string]interface{}{
				"key": key,
			})
			return nil, err
		}
		normalized[key] = v
	}

	for key, value := range normalized {
		if err := s.settingRepo.Upsert(&model.Setting{Key: key, Value: value}); err != nil {
			return nil, err
		}
	}

	logger.Info("Settings updated", map[string]interface{}{
		"count": len(normalized),
	})
	return s.GetAll()
}

func (s *settingService) CheckoutEnabled() bool {
	enabled, err := strconv.ParseBool(s.Get(model.SettingCheckoutEnabled))
	return err != nil || enabled
}

func normalizeSetting(key, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch key {
	case model.SettingWhatsAppNumber:
		if len(util.Digits(value)) < 10 {
			return "", ErrInvalidSetting
		}
		return util.NormalizePhone(value), nil
	case model.SettingCheckoutEnabled:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", ErrInvalidSetting
		}
		return strconv.FormatBool(b), nil
	case model.SettingStoreName:
		if value == "" {
			return "", ErrInvalidSetting
		}
	}
	return value, nil
}
