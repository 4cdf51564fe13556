package service

import (
	"testing"
	"time"

	"github.com/kiplystart/kiplystart-backend/internal/app/model"
	"github.com/kiplystart/kiplystart-backend/internal/app/repository"
	"github.com/kiplystart/kiplystart-backend/internal/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderServiceFixture struct {
	orders    OrderService
	repo      repository.OrderRepository
	customers repository.CustomerRepository
	events    *fakePublisher
}

func setupOrderServiceTest(t *testing.T) *orderServiceFixture {
	testDB := setupServiceDB(t)
	repo := repository.NewOrderRepository(testDB)
	customers := repository.NewCustomerRepository(testDB)
	events := &fakePublisher{}
	return &orderServiceFixture{
		orders:    NewOrderService(repo, customers, events),
		repo:      repo,
		customers: customers,
		events:    events,
	}
}

func (f *orderServiceFixture) seedOrder(t *testing.T, code string, totals ...int64) {
	for i, total := range totals {
		require.NoError(t, f.repo.Create(&model.Order{
			OrderCode:    code,
			CustomerName: "María Pérez",
			Phone:        "584141234567",
			ProductID:    idString(uint(i + 1)),
			ProductName:  "Producto",
			Quantity:     i + 1,
			UnitPrice:    decimal.NewFromInt(total),
			LineTotal:    decimal.NewFromInt(total),
			State:        "Zulia",
			City:         "Maracaibo",
			Address:      "Av. 5 de Julio",
			Status:       model.OrderStatusPending,
		}))
	}
}

func TestOrderService_GetOrder(t *testing.T) {
	f := setupOrderServiceTest(t)
	f.seedOrder(t, "KS-AAA111", 24, 25)

	detail, err := f.orders.GetOrder(" ks-aaa111 ")
	require.NoError(t, err)
	assert.Equal(t, "KS-AAA111", detail.OrderCode)
	assert.Len(t, detail.Lines, 2)
	assert.Equal(t, "49", detail.Total.String())
	assert.Equal(t, 3, detail.Units)
	assert.Equal(t, model.OrderStatusPending, detail.Status)

	_, err = f.orders.GetOrder("KS-NOPE00")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_UpdateStatus(t *testing.T) {
	f := setupOrderServiceTest(t)
	f.seedOrder(t, "KS-AAA111", 24, 25)

	tests := []struct {
		name    string
		status  model.OrderStatus
		wantErr error
	}{
		{"confirm", model.OrderStatusConfirmed, nil},
		{"same status", model.OrderStatusConfirmed, nil},
		{"unknown status", "lost", ErrInvalidOrderStatus},
		{"deliver", model.OrderStatusDelivered, nil},
		{"reopen delivered", model.OrderStatusPending, ErrInvalidStatusTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail, err := f.orders.UpdateStatus("KS-AAA111", tt.status)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			for _, line := range detail.Lines {
				assert.Equal(t, tt.status, line.Status)
			}
		})
	}

	_, err := f.orders.UpdateStatus("KS-NOPE00", model.OrderStatusShipped)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	require.Len(t, f.events.events, 2)
	assert.Equal(t, websocket.EventOrderStatusChanged, f.events.events[0].Type)
}

func TestOrderService_ListOrders(t *testing.T) {
	f := setupOrderServiceTest(t)
	f.seedOrder(t, "KS-AAA111", 24, 25)
	f.seedOrder(t, "KS-BBB222", 10)
	_, err := f.orders.UpdateStatus("KS-BBB222", model.OrderStatusCancelled)
	require.NoError(t, err)

	tests := []struct {
		name      string
		opts      OrderListOptions
		wantTotal int64
		wantErr   error
	}{
		{"all", OrderListOptions{}, 3, nil},
		{"by status", OrderListOptions{Status: "cancelled"}, 1, nil},
		{"by code", OrderListOptions{OrderCode: "ks-aaa111"}, 2, nil},
		{"by local phone", OrderListOptions{Phone: "0414-1234567"}, 3, nil},
		{"bad status", OrderListOptions{Status: "lost"}, 0, ErrInvalidOrderStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total, err := f.orders.ListOrders(tt.opts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}

func TestOrderService_GetStats(t *testing.T) {
	f := setupOrderServiceTest(t)
	f.seedOrder(t, "KS-AAA111", 24, 25)
	f.seedOrder(t, "KS-BBB222", 10)
	_, err := f.orders.UpdateStatus("KS-BBB222", model.OrderStatusCancelled)
	require.NoError(t, err)

	stats, err := f.orders.GetStats(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalOrders)
	assert.Equal(t, int64(2), stats.OrdersToday)
	assert.Equal(t, int64(1), stats.ByStatus[model.OrderStatusPending])
	assert.Equal(t, int64(1), stats.ByStatus[model.OrderStatusCancelled])
	assert.True(t, stats.Revenue.Equal(decimal.NewFromInt(49)))
}

func TestOrderService_ListCustomers(t *testing.T) {
	f := setupOrderServiceTest(t)
	now := time.Now()
	require.NoError(t, f.customers.RecordOrder(&model.Customer{Name: "Ana", Phone: "584140000001"}, now))
	require.NoError(t, f.customers.RecordOrder(&model.Customer{Name: "Luis", Phone: "584140000002"}, now))
	require.NoError(t, f.customers.RecordOrder(&model.Customer{Name: "Ana", Phone: "584140000001"}, now))

	customers, total, err := f.orders.ListCustomers(1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, customers, 2)
}
