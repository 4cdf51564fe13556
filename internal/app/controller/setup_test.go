package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kiplystart/kiplystart-backend/internal/app/model"
	"github.com/kiplystart/kiplystart-backend/internal/app/repository"
	"github.com/kiplystart/kiplystart-backend/internal/app/service"
	"github.com/kiplystart/kiplystart-backend/internal/cart"
	"github.com/kiplystart/kiplystart-backend/internal/db"
	"github.com/kiplystart/kiplystart-backend/internal/metrics"
	"github.com/kiplystart/kiplystart-backend/internal/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSession = "6f1c1b2e-4c1a-4a57-9b1e-2a9c0e6f7d11"

type testServices struct {
	db       *gorm.DB
	products service.ProductService
	carts    service.CartService
	settings service.SettingService
	orders   service.OrderService
	checkout service.CheckoutService
}

func setupTestServices(t *testing.T) *testServices {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	m := metrics.New()
	products := service.NewProductService(repository.NewProductRepository(testDB), cart.DefaultTiers())
	carts := service.NewCartService(cart.NewManager(cart.NewMemoryStore(), cart.DefaultTiers()), products, m)
	settings := service.NewSettingService(repository.NewSettingRepository(testDB), service.SettingDefaults{
		model.SettingWhatsAppNumber:  "584140000000",
		model.SettingStoreName:       "KiplyStart",
		model.SettingCheckoutEnabled: "true",
	})
	orderRepo := repository.NewOrderRepository(testDB)
	customerRepo := repository.NewCustomerRepository(testDB)

	return &testServices{
		db:       testDB,
		products: products,
		carts:    carts,
		settings: settings,
		orders:   service.NewOrderService(orderRepo, customerRepo, nil),
		checkout: service.NewCheckoutService(carts, orderRepo, customerRepo, settings, nil, m, "KS"),
	}
}

func (s *testServices) createProduct(t *testing.T, name string, price int64) string {
	p, err := s.products.CreateProduct(service.ProductInput{Name: name, Price: decimal.NewFromInt(price)})
	require.NoError(t, err)
	return strconv.FormatUint(uint64(p.ID), 10)
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.LoggingMiddleware())
	return router
}

// setUserInContext stands in for AuthMiddleware in handler tests.
func setUserInContext(userID uint, role model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Set(middleware.UserRoleKey, role)
		c.Next()
	}
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, doJSONRequest(method, path, body))
	return w
}

func doJSONRequest(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.CartSessionHeader, testSession)
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return response
}

// doRaw sends a request without a cart session.
func doRaw(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func serviceInputHidden() service.ProductInput {
	hidden := false
	return service.ProductInput{Name: "Borrador", Price: decimal.NewFromInt(5), IsActive: &hidden}
}

func idOf(id uint) string { return strconv.FormatUint(uint64(id), 10) }
