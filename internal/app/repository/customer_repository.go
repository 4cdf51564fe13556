package repository

import (
	"errors"
	"time"

	"github.com/kiplystart/kiplystart-backend/internal/app/model"
	"github.com/kiplystart/kiplystart-backend/pkg/logger"
	"gorm.io/gorm"
)

type CustomerRepository interface {
	// RecordOrder creates the customer identified by Phone or refreshes its
	// contact and delivery details, and bumps its order count.
	RecordOrder(customer *model.Customer, at time.Time) error
	FindByPhone(phone string) (*model.Customer, error)
	FindAll(limit, offset int) ([]model.Customer, int64, error)
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) RecordOrder(customer *model.Customer, at time.Time) error {
	logger.Debug("Recording customer order", map[string]interface{}{
		"phone": customer.Phone,
	})

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing model.Customer
		err := tx.Where("phone = ?", customer.Phone).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			customer.OrderCount = 1
			customer.LastOrderAt = &at
			return tx.Create(customer).Error
		}
		if err != nil {
			return err
		}

		existing.Name = customer.Name
		existing.IDNumber = customer.IDNumber
		if customer.Email != "" {
			existing.Email = customer.Email
		}
		existing.State = customer.State
		existing.City = customer.City
		existing.Address = customer.Address
		existing.OrderCount++
		existing.LastOrderAt = &at
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		*customer = existing
		return nil
	})
	if err != nil {
		logger.Error("Failed to record customer order", err, map[string]interface{}{
			"phone": customer.Phone,
		})
		return err
	}

	logger.Debug("Customer order recorded", map[string]interface{}{
		"customer_id": customer.ID,
		"order_count": customer.OrderCount,
	})
	return nil
}

func (r *customerRepository) FindByPhone(phone string) (*model.Customer, error) {
	var customer model.Customer
	if err := r.db.Where("phone = ?", phone).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) FindAll(limit, offset int) ([]model.Customer, int64, error) {
	logger.Debug("Finding customers", map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	})

	var total int64
	if err := r.db.Model(&model.Customer{}).Count(&total).Error; err != nil {
		logger.Error("Failed to count customers", err, nil)
		return nil, 0, err
	}

	query := r.db.Order("last_order_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var customers []model.Customer
	if err := query.Find(&customers).Error; err != nil {
		logger.Error("Failed to find customers", err, nil)
		return nil, 0, err
	}
	return customers, total, nil
}
