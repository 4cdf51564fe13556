package db

import (
	"errors"

	"github.com/kiplystart/kiplystart-backend/internal/app/model"
	"github.com/kiplystart/kiplystart-backend/pkg/logger"
	"github.com/kiplystart/kiplystart-backend/pkg/util"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Models lists every table the service owns, in migration order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Product{},
		&model.Order{},
		&model.Customer{},
		&model.Setting{},
	}
}

// Migrate creates or updates the schema on DB.
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// SeedOptions holds the values written on first start.
type SeedOptions struct {
	AdminEmail     string
	AdminPassword  string
	WhatsAppNumber string
	StoreName      string
}

// Seed creates the first admin account when none exists and fills in missing
// default settings. Existing rows are never overwritten.
func Seed(gdb *gorm.DB, opts SeedOptions) error {
	logger.Info("Seeding initial data...")

	if err := seedAdmin(gdb, opts); err != nil {
		logger.Error("Failed to seed admin user", err)
		return err
	}

	defaults := []model.Setting{
		{Key: model.SettingWhatsAppNumber, Value: opts.WhatsAppNumber},
		{Key: model.SettingStoreName, Value: opts.StoreName},
		{Key: model.SettingCheckoutEnabled, Value: "true"},
	}
	if err := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error; err != nil {
		logger.Error("Failed to seed settings", err)
		return err
	}

	logger.Info("Initial data seeded successfully")
	return nil
}

func seedAdmin(gdb *gorm.DB, opts SeedOptions) error {
	if opts.AdminEmail == "" || opts.AdminPassword == "" {
		logger.Warn("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	var existing model.User
	err := gdb.Where("role = ?", model.RoleAdmin).First(&existing).Error
	if err == nil {
		logger.Info("Admin user already exists, skipping...", map[string]interface{}{
			"user_id": existing.ID,
		})
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := util.HashPassword(opts.AdminPassword)
	if err != nil {
		return err
	}
	admin := &model.User{
		Email:        opts.AdminEmail,
		PasswordHash: hash,
		Name:         "Administrador",
		Role:         model.RoleAdmin,
	}
	if err := gdb.Create(admin).Error; err != nil {
		return err
	}

	logger.Info("Admin user created", map[string]interface{}{
		"user_id": admin.ID,
		"email":   admin.Email,
	})
	return nil
}
