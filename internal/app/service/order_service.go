package service

import (
	"errors"
	"strings"
	"time"

	"github.com/kiplystart/kiplystart-backend/internal/app/model"
	"github.com/kiplystart/kiplystart-backend/internal/app/repository"
	"github.com/kiplystart/kiplystart-backend/internal/websocket"
	"github.com/kiplystart/kiplystart-backend/pkg/logger"
	"github.com/kiplystart/kiplystart-backend/pkg/util"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidOrderStatus      = errors.New("invalid order status")
	ErrInvalidStatusTransition = errors.New("order status cannot change")
)

const (
	defaultOrderPageSize = 50
	maxOrderPageSize     = 200
)

// OrderDetail groups every line of one checkout.
type OrderDetail struct {
	OrderCode    string            `json:"order_code"`
	Status       model.OrderStatus `json:"status"`
	CustomerName string            `json:"customer_name"`
	IDNumber     string            `json:"id_number"`
	Phone        string            `json:"phone"`
	Email        string            `json:"email,omitempty"`
	State        string            `json:"state"`
	City         string            `json:"city"`
	Address      string            `json:"address"`
	Reference    string            `json:"reference,omitempty"`
	Lines        []model.Order     `json:"lines"`
	Total        decimal.Decimal   `json:"total"`
	Units        int               `json:"units"`
	CreatedAt    time.Time         `json:"created_at"`
}

type OrderListOptions struct {
	Status    string
	OrderCode string
	Phone     string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

type OrderService interface {
	ListOrders(opts OrderListOptions) ([]model.Order, int64, error)
	GetOrder(code string) (*OrderDetail, error)
	UpdateStatus(code string, status model.OrderStatus) (*OrderDetail, error)
	GetStats(now time.Time) (*repository.OrderStats, error)
	ListCustomers(page, pageSize int) ([]model.Customer, int64, error)
}

type orderService struct {
	orderRepo    repository.OrderRepository
	customerRepo repository.CustomerRepository
	events       EventPublisher
}

func NewOrderService(orderRepo repository.OrderRepository, customerRepo repository.CustomerRepository, events EventPublisher) OrderService {
	return &orderService{
		orderRepo:    orderRepo,
		customerRepo: customerRepo,
		events:       events,
	}
}

func (s *orderService) ListOrders(opts OrderListOptions) ([]model.Order, int64, error) {
	filter := repository.OrderFilter{
		OrderCode: strings.ToUpper(strings.TrimSpace(opts.OrderCode)),
		Phone:     normalizePhoneFilter(opts.Phone),
		From:      opts.From,
		To:        opts.To,
	}
	if opts.Status != "" {
		status := model.OrderStatus(opts.Status)
		if !status.Valid() {
			return nil, 0, ErrInvalidOrderStatus
		}
		filter.Status = &status
	}
	filter.Limit, filter.Offset = paginate(opts.Page, opts.PageSize, defaultOrderPageSize, maxOrderPageSize)

	orders, total, err := s.orderRepo.FindWithFilter(filter)
	if err != nil {
		logger.Error("Failed to list orders", err, map[string]interface{}{
			"status": opts.Status,
		})
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *orderService) GetOrder(code string) (*OrderDetail, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	lines, err := s.orderRepo.FindByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Order not found", map[string]interface{}{
				"order_code": code,
			})
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return newOrderDetail(lines), nil
}

// UpdateStatus moves every line of the order to status. Delivered and
// cancelled orders are final.
func (s *orderService) UpdateStatus(code string, status model.OrderStatus) (*OrderDetail, error) {
	if !status.Valid() {
		return nil, ErrInvalidOrderStatus
	}

	order, err := s.GetOrder(code)
	if err != nil {
		return nil, err
	}
	if order.Status == status {
		return order, nil
	}
	if order.Status == model.OrderStatusDelivered || order.Status == model.OrderStatusCancelled {
		logger.Warn("Rejected status change of a closed order", map[string]interface{}{
			"order_code": order.OrderCode,
			"from":       order.Status,
			"to":         status,
		})
		return nil, ErrInvalidStatusTransition
	}

	if _, err := s.orderRepo.UpdateStatusByCode(order.OrderCode, status); err != nil {
		return nil, err
	}

	logger.Info("Order status updated", map[string]interface{}{
		"order_code": order.OrderCode,
		"from":       order.Status,
		"to":         status,
	})
	if s.events != nil {
		_ = s.events.Publish(websocket.EventOrderStatusChanged, map[string]interface{}{
			"order_code": order.OrderCode,
			"from":       order.Status,
			"to":         status,
		})
	}
	return s.GetOrder(order.OrderCode)
}

// GetStats reports dashboard counters; "today" starts at local midnight of now.
func (s *orderService) GetStats(now time.Time) (*repository.OrderStats, error) {
	y, m, d := now.Date()
	return s.orderRepo.GetStats(time.Date(y, m, d, 0, 0, 0, 0, now.Location()))
}

func (s *orderService) ListCustomers(page, pageSize int) ([]model.Customer, int64, error) {
	limit, offset := paginate(page, pageSize, defaultOrderPageSize, maxOrderPageSize)
	return s.customerRepo.FindAll(limit, offset)
}

func newOrderDetail(lines []model.Order) *OrderDetail {
	first := lines[0]
	detail := &OrderDetail{
		OrderCode:    first.OrderCode,
		Status:       first.Status,
		CustomerName: first.CustomerName,
		IDNumber:     first.IDNumber,
		Phone:        first.Phone,
		Email:        first.Email,
		State:        first.State,
		City:         first.City,
		Address:      first.Address,
		Reference:    first.Reference,
		Lines:        lines,
		Total:        decimal.Zero,
		CreatedAt:    first.CreatedAt,
	}
	for _, l := range lines {
		detail.Total = detail.Total.Add(l.LineTotal)
		detail.Units += l.Quantity
	}
	return detail
}

func normalizePhoneFilter(phone string) string {
	if strings.TrimSpace(phone) == "" {
		return ""
	}
	return util.NormalizePhone(phone)
}

func paginate(page, pageSize, defaultSize, maxSize int) (limit, offset int) {
	if pageSize <= 0 {
		pageSize = defaultSize
	}
	if pageSize > maxSize {
		pageSize = maxSize
	}
	if page < 1 {
		page = 1
	}
	return pageSize, (page - 1) * pageSize
}
