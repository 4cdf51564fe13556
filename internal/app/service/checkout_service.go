package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kiplystart/kiplystart-backend/internal/app/model"
	"github.com/kiplystart/kiplystart-backend/internal/app/repository"
	"github.com/kiplystart/kiplystart-backend/internal/cart"
	"github.com/kiplystart/kiplystart-backend/internal/checkout"
	"github.com/kiplystart/kiplystart-backend/internal/metrics"
	"github.com/kiplystart/kiplystart-backend/internal/websocket"
	"github.com/kiplystart/kiplystart-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

var ErrCheckoutDisabled = errors.New("checkout is disabled")

// EventPublisher delivers back-office events; the websocket hub implements it.
type EventPublisher interface {
	Publish(eventType string, data interface{}) error
}

type CheckoutInput struct {
	Personal checkout.PersonalInfo `json:"personal"`
	Delivery checkout.DeliveryInfo `json:"delivery"`
}

type CheckoutResult struct {
	OrderCode   string          `json:"order_code"`
	Total       decimal.Decimal `json:"total"`
	Units       int             `json:"units"`
	Message     string          `json:"message"`
	WhatsAppURL string          `json:"whatsapp_url"`
}

// OrderCreatedEvent is pushed to connected dashboards for every checkout.
type OrderCreatedEvent struct {
	OrderCode    string          `json:"order_code"`
	CustomerName string          `json:"customer_name"`
	Phone        string          `json:"phone"`
	City         string          `json:"city"`
	State        string          `json:"state"`
	Lines        int             `json:"lines"`
	Units        int             `json:"units"`
	Total        decimal.Decimal `json:"total"`
}

type CheckoutService interface {
	ValidatePersonal(info checkout.PersonalInfo) error
	ValidateDelivery(info checkout.DeliveryInfo) error
	Submit(ctx context.Context, sessionID string, input CheckoutInput) (*CheckoutResult, error)
}

type checkoutService struct {
	carts        CartService
	orderRepo    repository.OrderRepository
	customerRepo repository.CustomerRepository
	settings     SettingService
	events       EventPublisher
	metrics      *metrics.Metrics
	codePrefix   string
	now          func() time.Time
}

func NewCheckoutService(
	carts CartService,
	orderRepo repository.OrderRepository,
	customerRepo repository.CustomerRepository,
	settings SettingService,
	events EventPublisher,
	m *metrics.Metrics,
	codePrefix string,
) CheckoutService {
	return &checkoutService{
		carts:        carts,
		orderRepo:    orderRepo,
		customerRepo: customerRepo,
		settings:     settings,
		events:       events,
		metrics:      m,
		codePrefix:   codePrefix,
		now:          time.Now,
	}
}

func (s *checkoutService) ValidatePersonal(info checkout.PersonalInfo) error {
	return checkout.ValidatePersonal(info)
}

func (s *checkoutService) ValidateDelivery(info checkout.DeliveryInfo) error {
	return checkout.ValidateDelivery(info)
}

// Submit walks the checkout flow with the shopper's data and writes one order
// row per cart line. On success the cart is cleared and the WhatsApp message
// and link are returned; on failure the cart is left as it was.
func (s *checkoutService) Submit(ctx context.Context, sessionID string, input CheckoutInput) (*CheckoutResult, error) {
	if !s.settings.CheckoutEnabled() {
		return nil, ErrCheckoutDisabled
	}

	flow := checkout.NewFlow(s.codePrefix)
	if err := flow.Next(); err != nil {
		return nil, err
	}
	flow.Personal = input.Personal
	if err := flow.Next(); err != nil {
		s.metrics.CheckoutFailed("validation")
		return nil, err
	}
	flow.Delivery = input.Delivery

	var summary *checkout.Summary
	err := s.carts.Consume(ctx, sessionID, func(lines []cart.Line) error {
		logger.Info("Submitting checkout", map[string]interface{}{
			"session_id": sessionID,
			"lines":      len(lines),
		})
		var err error
		summary, err = flow.Submit(ctx, lines, &orderWriter{repo: s.orderRepo})
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrSubmitFailed):
			s.metrics.CheckoutFailed("persistence")
			logger.Error("Checkout submission failed", err, map[string]interface{}{
				"session_id": sessionID,
			})
		case errors.Is(err, checkout.ErrEmptyCart):
			s.metrics.CheckoutFailed("empty_cart")
		default:
			s.metrics.CheckoutFailed("validation")
		}
		return nil, err
	}

	s.recordCustomer(summary)

	message := checkout.Compose(s.settings.Get(model.SettingStoreName), summary)
	result := &CheckoutResult{
		OrderCode:   summary.OrderCode,
		Total:       summary.Total,
		Units:       summary.Units,
		Message:     message,
		WhatsAppURL: checkout.DeepLink(s.settings.Get(model.SettingWhatsAppNumber), message),
	}

	s.publish(summary)
	s.metrics.CheckoutSubmitted(summary.Total)

	logger.Info("Checkout submitted successfully", map[string]interface{}{
		"session_id": sessionID,
		"order_code": summary.OrderCode,
		"total":      summary.Total.String(),
		"units":      summary.Units,
	})
	return result, nil
}

// recordCustomer is best effort: the order rows are already written.
func (s *checkoutService) recordCustomer(summary *checkout.Summary) {
	customer := &model.Customer{
		Name:     strings.TrimSpace(summary.Personal.FullName),
		IDNumber: strings.TrimSpace(summary.Personal.IDNumber),
		Phone:    normalizePhoneFilter(summary.Personal.Phone),
		Email:    strings.TrimSpace(summary.Personal.Email),
		State:    strings.TrimSpace(summary.Delivery.State),
		City:     strings.TrimSpace(summary.Delivery.City),
		Address:  strings.TrimSpace(summary.Delivery.Address),
	}
	if err := s.customerRepo.RecordOrder(customer, s.now()); err != nil {
		logger.Warn("Failed to record customer", map[string]interface{}{
			"order_code": summary.OrderCode,
			"error":      err.Error(),
		})
	}
}

func (s *checkoutService) publish(summary *checkout.Summary) {
	if s.events == nil {
		return
	}
	event := OrderCreatedEvent{
		OrderCode:    summary.OrderCode,
		CustomerName: strings.TrimSpace(summary.Personal.FullName),
		Phone:        normalizePhoneFilter(summary.Personal.Phone),
		City:         strings.TrimSpace(summary.Delivery.City),
		State:        strings.TrimSpace(summary.Delivery.State),
		Lines:        len(summary.Lines),
		Units:        summary.Units,
		Total:        summary.Total,
	}
	if err := s.events.Publish(websocket.EventOrderCreated, event); err != nil {
		logger.Warn("Failed to publish order event", map[string]interface{}{
			"order_code": summary.OrderCode,
			"error":      err.Error(),
		})
	}
}

// orderWriter stores checkout records as order rows.
type orderWriter struct {
	repo repository.OrderRepository
}

func (w *orderWriter) InsertOrder(_ context.Context, r checkout.OrderRecord) error {
	return w.repo.Create(&model.Order{
		OrderCode:    r.OrderCode,
		CustomerName: r.FullName,
		IDNumber:     r.IDNumber,
		Phone:        r.Phone,
		Email:        r.Email,
		ProductID:    r.ProductID,
		ProductName:  r.ProductName,
		Quantity:     r.Quantity,
		BundleLabel:  r.BundleLabel,
		DiscountPct:  r.DiscountPct,
		UnitPrice:    r.UnitPrice,
		LineTotal:    r.LineTotal,
		State:        r.State,
		City:         r.City,
		Address:      r.Address,
		Reference:    r.Reference,
		Status:       model.OrderStatus(r.Status),
	})
}
