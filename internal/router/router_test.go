package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiplystart/kiplystart-backend/config"
	"github.com/kiplystart/kiplystart-backend/internal/app/controller"
	"github.com/kiplystart/kiplystart-backend/internal/app/model"
	"github.com/kiplystart/kiplystart-backend/internal/app/repository"
	"github.com/kiplystart/kiplystart-backend/internal/app/service"
	"github.com/kiplystart/kiplystart-backend/internal/cart"
	"github.com/kiplystart/kiplystart-backend/internal/db"
	"github.com/kiplystart/kiplystart-backend/internal/metrics"
	"github.com/kiplystart/kiplystart-backend/internal/middleware"
	"github.com/kiplystart/kiplystart-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouterTest(t *testing.T) *gin.Engine {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode, Environment: "test"},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"https://kiplystart.com"}},
		Cart:   config.CartConfig{TTL: 72 * time.Hour},
	}

	m := metrics.New()
	hub := websocket.NewHub()
	products := service.NewProductService(repository.NewProductRepository(testDB), cart.DefaultTiers())
	carts := service.NewCartService(cart.NewManager(cart.NewMemoryStore(), cart.DefaultTiers()), products, m)
	settings := service.NewSettingService(repository.NewSettingRepository(testDB), service.SettingDefaults{
		model.SettingWhatsAppNumber:  "584140000000",
		model.SettingStoreName:       "KiplyStart",
		model.SettingCheckoutEnabled: "true",
	})
	orderRepo := repository.NewOrderRepository(testDB)
	customerRepo := repository.NewCustomerRepository(testDB)
	authService := service.NewAuthService(repository.NewUserRepository(testDB), "router-secret", time.Minute, time.Hour)

	r := NewRouter(Controllers{
		Auth:     controller.NewAuthController(authService),
		Product:  controller.NewProductController(products),
		Cart:     controller.NewCartController(carts),
		Checkout: controller.NewCheckoutController(service.NewCheckoutService(carts, orderRepo, customerRepo, settings, hub, m, "KS")),
		Order:    controller.NewOrderController(service.NewOrderService(orderRepo, customerRepo, hub)),
		Setting:  controller.NewSettingController(settings),
		Upload:   controller.NewUploadController(nil),
		Events:   controller.NewEventsController(hub, cfg.CORS.AllowedOrigins),
	}, middleware.NewAuthMiddleware("router-secret"), m, cfg)
	return r.Setup()
}

func TestRouter_PublicRoutes(t *testing.T) {
	router := setupRouterTest(t)

	tests := []struct {
		method   string
		path     string
		wantCode int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/v1/store", http.StatusOK},
		{http.MethodGet, "/api/v1/products", http.StatusOK},
		{http.MethodGet, "/api/v1/products/no-existe", http.StatusNotFound},
		{http.MethodGet, "/api/v1/cart", http.StatusOK},
		{http.MethodDelete, "/api/v1/cart", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestRouter_CartIssuesSession(t *testing.T) {
	router := setupRouterTest(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	assert.NotEmpty(t, w.Header().Get(middleware.CartSessionHeader))
	assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.CartSessionCookie+"=")
}

func TestRouter_AdminRoutesRequireAuth(t *testing.T) {
	router := setupRouterTest(t)

	for _, path := range []string{"/api/v1/admin/orders", "/api/v1/admin/settings", "/api/v1/admin/me", "/api/v1/admin/ws"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestRouter_CORS(t *testing.T) {
	router := setupRouterTest(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/cart/items", nil)
	req.Header.Set("Origin", "https://kiplystart.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://kiplystart.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), middleware.CartSessionHeader)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_MetricsCountRequests(t *testing.T) {
	router := setupRouterTest(t)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `route="/api/v1/cart"`), "cart route missing from metrics")
}
