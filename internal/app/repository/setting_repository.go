package repository

import (
	"github.com/kiplystart/kiplystart-backend/internal/app/model"
	"github.com/kiplystart/kiplystart-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepository interface {
	FindAll() ([]model.Setting, error)
	Get(key string) (*model.Setting, error)
	Upsert(setting *model.Setting) error
}

type settingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) FindAll() ([]model.Setting, error) {
	var settings []model.Setting
	if err := r.db.Order("key ASC").Find(&settings).Error; err != nil {
		logger.Error("Failed to find settings", err, nil)
		return nil, err
	}
	return settings, nil
}

func (r *settingRepository) Get(key string) (*model.Setting, error) {
	var setting model.Setting
	if err := r.db.Where("key = ?", key).First(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *settingRepository) Upsert(setting *model.Setting) error {
	logger.Debug("Upserting setting", map[string]interface{}{
		"key": setting.Key,
	})

	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(setting).Error
	if err != nil {
		logger.Error("Failed to upsert setting", err, map[string]interface{}{
			"key": setting.Key,
		})
		return err
	}
	return nil
}
