package repository

import (
	"time"

	"github.com/kiplystart/kiplystart-backend/internal/app/model"
	"github.com/kiplystart/kiplystart-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderFilter struct {
	Status    *model.OrderStatus
	OrderCode string
	Phone     string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// OrderStats summarises orders by checkout, not by row: one order code
// counts once however many lines it has.
type OrderStats struct {
	ByStatus    map[model.OrderStatus]int64 `json:"by_status"`
	TotalOrders int64                       `json:"total_orders"`
	OrdersToday int64                       `json:"orders_today"`
	Revenue     decimal.Decimal             `json:"revenue"` // line totals of non-cancelled orders
}

type OrderRepository interface {
	Create(order *model.Order) error
	FindWithFilter(filter OrderFilter) ([]model.Order, int64, error)
	FindByCode(code string) ([]model.Order, error)
	UpdateStatusByCode(code string, status model.OrderStatus) (int64, error)
	GetStats(since time.Time) (*OrderStats, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"order_code": order.OrderCode,
		"product_id": order.ProductID,
		"quantity":   order.Quantity,
	})

	if err := r.db.Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"order_code": order.OrderCode,
			"product_id": order.ProductID,
		})
		return err
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id":   order.ID,
		"order_code": order.OrderCode,
		"line_total": order.LineTotal.String(),
	})
	return nil
}

func (r *orderRepository) FindWithFilter(filter OrderFilter) ([]model.Order, int64, error) {
	logger.Debug("Finding orders with filter", map[string]interface{}{
		"status":     filter.Status,
		"order_code": filter.OrderCode,
		"phone":      filter.Phone,
		"limit":      filter.Limit,
		"offset":     filter.Offset,
	})

	query := r.db.Model(&model.Order{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.OrderCode != "" {
		query = query.Where("order_code = ?", filter.OrderCode)
	}
	if filter.Phone != "" {
		query = query.Where("phone = ?", filter.Phone)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count orders", err, nil)
		return nil, 0, err
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var orders []model.Order
	if err := query.Order("created_at DESC").Order("id ASC").Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders with filter", err, nil)
		return nil, 0, err
	}

	logger.Debug("Orders found with filter", map[string]interface{}{
		"count": len(orders),
		"total": total,
	})
	return orders, total, nil
}

func (r *orderRepository) FindByCode(code string) ([]model.Order, error) {
	logger.Debug("Finding order lines by code", map[string]interface{}{
		"order_code": code,
	})

	var orders []model.Order
	if err := r.db.Where("order_code = ?", code).Order("id ASC").Find(&orders).Error; err != nil {
		logger.Error("Failed to find order lines by code", err, map[string]interface{}{
			"order_code": code,
		})
		return nil, err
	}
	if len(orders) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return orders, nil
}

func (r *orderRepository) UpdateStatusByCode(code string, status model.OrderStatus) (int64, error) {
	logger.Debug("Updating order status", map[string]interface{}{
		"order_code": code,
		"status":     status,
	})

	result := r.db.Model(&model.Order{}).Where("order_code = ?", code).Update("status", status)
	if result.Error != nil {
		logger.Error("Failed to update order status", result.Error, map[string]interface{}{
			"order_code": code,
			"status":     status,
		})
		return 0, result.Error
	}

	logger.Debug("Order status updated", map[string]interface{}{
		"order_code": code,
		"rows":       result.RowsAffected,
	})
	return result.RowsAffected, nil
}

func (r *orderRepository) GetStats(since time.Time) (*OrderStats, error) {
	logger.Debug("Computing order stats", map[string]interface{}{
		"since": since,
	})

	stats := &OrderStats{ByStatus: make(map[model.OrderStatus]int64)}

	var rows []struct {
		Status model.OrderStatus
		Count  int64
	}
	if err := r.db.Model(&model.Order{}).
		Select("status, COUNT(DISTINCT order_code) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		logger.Error("Failed to count orders by status", err, nil)
		return nil, err
	}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
	}

	if err := r.db.Model(&model.Order{}).Distinct("order_code").Count(&stats.TotalOrders).Error; err != nil {
		logger.Error("Failed to count orders", err, nil)
		return nil, err
	}
	if err := r.db.Model(&model.Order{}).Where("created_at >= ?", since).
		Distinct("order_code").Count(&stats.OrdersToday).Error; err != nil {
		logger.Error("Failed to count recent orders", err, nil)
		return nil, err
	}

	var revenue decimal.NullDecimal
	if err := r.db.Model(&model.Order{}).
		Select("SUM(line_total)").
		Where("status <> ?", model.OrderStatusCancelled).
		Row().Scan(&revenue); err != nil {
		logger.Error("Failed to sum revenue", err, nil)
		return nil, err
	}
	stats.Revenue = decimal.Zero
	if revenue.Valid {
		stats.Revenue = revenue.Decimal
	}

	logger.Debug("Order stats computed", map[string]interface{}{
		"total_orders": stats.TotalOrders,
		"orders_today": stats.OrdersToday,
		"revenue":      stats.Revenue.String(),
	})
	return stats, nil
}
