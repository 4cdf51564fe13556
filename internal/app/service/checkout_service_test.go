package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kiplystart/kiplystart-backend/internal/app/model"
	"github.com/kiplystart/kiplystart-backend/internal/app/repository"
	"github.com/kiplystart/kiplystart-backend/internal/cart"
	"github.com/kiplystart/kiplystart-backend/internal/checkout"
	"github.com/kiplystart/kiplystart-backend/internal/metrics"
	"github.com/kiplystart/kiplystart-backend/internal/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	Type string
	Data interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *fakePublisher) Publish(eventType string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, Data: data})
	return nil
}

// flakyOrderRepo fails the nth Create call and runs onCreate before each one.
type flakyOrderRepo struct {
	repository.OrderRepository
	failOn   int
	calls    int
	onCreate func()
}

func (r *flakyOrderRepo) Create(order *model.Order) error {
	r.calls++
	if r.onCreate != nil {
		r.onCreate()
	}
	if r.calls == r.failOn {
		return errors.New("connection reset by peer")
	}
	return r.OrderRepository.Create(order)
}

type checkoutFixture struct {
	checkout  CheckoutService
	carts     CartService
	orders    repository.OrderRepository
	customers repository.CustomerRepository
	settings  SettingService
	events    *fakePublisher
	flaky     *flakyOrderRepo
	serum     string
	brush     string
}

func setupCheckoutServiceTest(t *testing.T) *checkoutFixture {
	testDB := setupServiceDB(t)
	products := NewProductService(repository.NewProductRepository(testDB), cart.DefaultTiers())

	serum, err := products.CreateProduct(ProductInput{Name: "Sérum facial", Price: decimal.NewFromInt(10)})
	require.NoError(t, err)
	brush, err := products.CreateProduct(ProductInput{Name: "Cepillo alisador", Price: decimal.NewFromInt(25)})
	require.NoError(t, err)

	m := metrics.New()
	carts := NewCartService(cart.NewManager(cart.NewMemoryStore(), cart.DefaultTiers()), products, m)
	orders := repository.NewOrderRepository(testDB)
	customers := repository.NewCustomerRepository(testDB)
	settings := NewSettingService(repository.NewSettingRepository(testDB), testSettingDefaults())
	flaky := &flakyOrderRepo{OrderRepository: orders}
	events := &fakePublisher{}

	return &checkoutFixture{
		checkout:  NewCheckoutService(carts, flaky, customers, settings, events, m, "KS"),
		carts:     carts,
		orders:    orders,
		customers: customers,
		settings:  settings,
		events:    events,
		flaky:     flaky,
		serum:     idString(serum.ID),
		brush:     idString(brush.ID),
	}
}

func validCheckoutInput() CheckoutInput {
	return CheckoutInput{
		Personal: checkout.PersonalInfo{
			FullName: " María Pérez ",
			IDNumber: "V-12345678",
			Phone:    "0414-123.45.67",
			Email:    "maria@example.com",
		},
		Delivery: checkout.DeliveryInfo{
			State:     "Zulia",
			City:      "Maracaibo",
			Address:   "Av. 5 de Julio, casa 12",
			Reference: "Frente a la plaza",
		},
	}
}

func (f *checkoutFixture) fillCart(t *testing.T, sessionID string) {
	ctx := context.Background()
	_, err := f.carts.AddItem(ctx, sessionID, AddItemInput{ProductID: f.serum, Units: 3})
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, sessionID, AddItemInput{ProductID: f.brush, Units: 1})
	require.NoError(t, err)
}

func TestCheckoutService_Submit(t *testing.T) {
	f := setupCheckoutServiceTest(t)
	ctx := context.Background()
	f.fillCart(t, "s1")

	result, err := f.checkout.Submit(ctx, "s1", validCheckoutInput())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.OrderCode, "KS-"))
	assert.Equal(t, "49", result.Total.String())
	assert.Equal(t, 4, result.Units)
	assert.Contains(t, result.Message, "*Total: $49.00* (4 unidades)")
	assert.Contains(t, result.Message, "Tienda: KiplyStart")

	link, err := url.Parse(result.WhatsAppURL)
	require.NoError(t, err)
	assert.Equal(t, "wa.me", link.Host)
	assert.Equal(t, "/584140000000", link.Path)
	assert.Equal(t, result.Message, link.Query().Get("text"))

	rows, err := f.orders.FindByCode(result.OrderCode)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "María Pérez", rows[0].CustomerName)
	assert.Equal(t, "584141234567", rows[0].Phone)
	assert.Equal(t, f.serum, rows[0].ProductID)
	assert.Equal(t, 3, rows[0].Quantity)
	assert.Equal(t, 20, rows[0].DiscountPct)
	assert.True(t, rows[0].LineTotal.Equal(decimal.NewFromInt(24)))
	assert.Equal(t, model.OrderStatusPending, rows[1].Status)

	customer, err := f.customers.FindByPhone("584141234567")
	require.NoError(t, err)
	assert.Equal(t, 1, customer.OrderCount)
	assert.Equal(t, "Maracaibo", customer.City)

	assert.Empty(t, f.carts.GetCart(ctx, "s1").Lines)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, websocket.EventOrderCreated, f.events.events[0].Type)
	event := f.events.events[0].Data.(OrderCreatedEvent)
	assert.Equal(t, result.OrderCode, event.OrderCode)
	assert.Equal(t, 2, event.Lines)
}

func TestCheckoutService_UsesStoredSettings(t *testing.T) {
	f := setupCheckoutServiceTest(t)
	f.fillCart(t, "s1")

	_, err := f.settings.Update(map[string]string{
		model.SettingWhatsAppNumber: "0424-765.43.21",
		model.SettingStoreName:      "Kiply Zulia",
	})
	require.NoError(t, err)

	result, err := f.checkout.Submit(context.Background(), "s1", validCheckoutInput())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.WhatsAppURL, "https://wa.me/584247654321?text="))
	assert.Contains(t, result.Message, "Tienda: Kiply Zulia")
}

func TestCheckoutService_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		fill    bool
		mutate  func(in *CheckoutInput)
		wantErr error
		field   string
	}{
		{name: "empty cart", fill: false, mutate: func(*CheckoutInput) {}, wantErr: checkout.ErrEmptyCart},
		{name: "short phone", fill: true, mutate: func(in *CheckoutInput) { in.Personal.Phone = "0414-12" }, field: "phone"},
		{name: "missing ID number", fill: true, mutate: func(in *CheckoutInput) { in.Personal.IDNumber = "" }, field: "idNumber"},
		{name: "missing address", fill: true, mutate: func(in *CheckoutInput) { in.Delivery.Address = " " }, field: "address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupCheckoutServiceTest(t)
			if tt.fill {
				f.fillCart(t, "s1")
			}
			in := validCheckoutInput()
			tt.mutate(&in)

			_, err := f.checkout.Submit(context.Background(), "s1", in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				var verr *checkout.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Contains(t, verr.Fields, tt.field)
			}
			assert.Zero(t, f.flaky.calls)
			assert.Empty(t, f.events.events)
		})
	}
}

func TestCheckoutService_Disabled(t *testing.T) {
	f := setupCheckoutServiceTest(t)
	f.fillCart(t, "s1")
	_, err := f.settings.Update(map[string]string{model.SettingCheckoutEnabled: "false"})
	require.NoError(t, err)

	_, err = f.checkout.Submit(context.Background(), "s1", validCheckoutInput())
	assert.ErrorIs(t, err, ErrCheckoutDisabled)
	assert.Len(t, f.carts.GetCart(context.Background(), "s1").Lines, 2)
}

func TestCheckoutService_AddDuringSubmitSurvives(t *testing.T) {
	f := setupCheckoutServiceTest(t)
	ctx := context.Background()
	f.fillCart(t, "s1")

	added := make(chan struct{})
	var once sync.Once
	f.flaky.onCreate = func() {
		once.Do(func() {
			go func() {
				_, err := f.carts.AddItem(ctx, "s1", AddItemInput{ProductID: f.brush, Units: 2})
				assert.NoError(t, err)
				close(added)
			}()
			select {
			case <-added:
				t.Error("add completed while the order was being written")
			case <-time.After(50 * time.Millisecond):
			}
		})
	}

	result, err := f.checkout.Submit(ctx, "s1", validCheckoutInput())
	require.NoError(t, err)
	assert.Equal(t, 4, result.Units)

	<-added
	lines := f.carts.GetCart(ctx, "s1").Lines
	require.Len(t, lines, 1)
	assert.Equal(t, f.brush, lines[0].ProductID)
	assert.Equal(t, 2, lines[0].TotalUnits)
}

func TestCheckoutService_PersistenceFailureKeepsCart(t *testing.T) {
	f := setupCheckoutServiceTest(t)
	ctx := context.Background()
	f.fillCart(t, "s1")
	f.flaky.failOn = 2

	_, err := f.checkout.Submit(ctx, "s1", validCheckoutInput())
	assert.ErrorIs(t, err, checkout.ErrSubmitFailed)

	assert.Len(t, f.carts.GetCart(ctx, "s1").Lines, 2)
	assert.Empty(t, f.events.events)

	// The first line was written before the failure and stays behind.
	rows, total, err := f.orders.FindWithFilter(repository.OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, rows, 1)

	_, err = f.customers.FindByPhone("584141234567")
	assert.Error(t, err)
}

func TestCheckoutService_ValidateSteps(t *testing.T) {
	f := setupCheckoutServiceTest(t)
	in := validCheckoutInput()

	assert.NoError(t, f.checkout.ValidatePersonal(in.Personal))
	assert.NoError(t, f.checkout.ValidateDelivery(in.Delivery))

	in.Personal.Email = "no-es-correo"
	var verr *checkout.ValidationError
	require.ErrorAs(t, f.checkout.ValidatePersonal(in.Personal), &verr)
	assert.Equal(t, "Correo electrónico inválido", verr.Fields["email"])
}
