package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kiplystart/kiplystart-backend/config"
	"github.com/kiplystart/kiplystart-backend/internal/app/controller"
	"github.com/kiplystart/kiplystart-backend/internal/app/model"
	"github.com/kiplystart/kiplystart-backend/internal/metrics"
	"github.com/kiplystart/kiplystart-backend/internal/middleware"
)

// Controllers groups the HTTP handlers mounted by the router.
type Controllers struct {
	Auth     *controller.AuthController
	Product  *controller.ProductController
	Cart     *controller.CartController
	Checkout *controller.CheckoutController
	Order    *controller.OrderController
	Setting  *controller.SettingController
	Upload   *controller.UploadController
	Events   *controller.EventsController
}

type Router struct {
	controllers    Controllers
	authMiddleware *middleware.AuthMiddleware
	metrics        *metrics.Metrics
	config         *config.Config
}

func NewRouter(
	controllers Controllers,
	authMiddleware *middleware.AuthMiddleware,
	m *metrics.Metrics,
	cfg *config.Config,
) *Router {
	return &Router{
		controllers:    controllers,
		authMiddleware: authMiddleware,
		metrics:        m,
		config:         cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))
	if r.metrics != nil {
		router.Use(r.metrics.Middleware())
		router.GET("/metrics", gin.WrapH(r.metrics.Handler()))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "KiplyStart API is running",
		})
	})

	ctl := r.controllers
	auth := r.authMiddleware
	cartSession := middleware.CartSession(
		int(r.config.Cart.TTL.Seconds()),
		r.config.Server.Environment == "production",
	)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/store", ctl.Setting.GetStoreInfo)

		products := v1.Group("/products")
		{
			products.GET("", ctl.Product.ListProducts)
			products.GET("/:slug", ctl.Product.GetProductBySlug)
		}

		cart := v1.Group("/cart", cartSession)
		{
			cart.GET("", ctl.Cart.GetCart)
			cart.DELETE("", ctl.Cart.ClearCart)
			cart.POST("/items", ctl.Cart.AddItem)
			cart.PUT("/items/:key", ctl.Cart.UpdateItem)
			cart.DELETE("/items/:key", ctl.Cart.RemoveItem)
		}

		checkout := v1.Group("/checkout", cartSession)
		{
			checkout.POST("", ctl.Checkout.Submit)
			checkout.POST("/personal", ctl.Checkout.ValidatePersonal)
			checkout.POST("/delivery", ctl.Checkout.ValidateDelivery)
		}

		admin := v1.Group("/admin")
		{
			admin.POST("/login", ctl.Auth.Login)
			admin.POST("/refresh", ctl.Auth.RefreshToken)
		}

		staff := admin.Group("", auth.Authenticate(), auth.RequireRole(model.RoleAdmin, model.RoleStaff))
		{
			staff.POST("/logout", ctl.Auth.Logout)
			staff.GET("/me", ctl.Auth.GetMe)
			staff.GET("/ws", ctl.Events.Stream)

			staff.GET("/orders", ctl.Order.ListOrders)
			staff.GET("/orders/stats", ctl.Order.GetStats)
			staff.GET("/orders/:code", ctl.Order.GetOrder)
			staff.PATCH("/orders/:code/status", ctl.Order.UpdateOrderStatus)
			staff.GET("/customers", ctl.Order.ListCustomers)

			staff.GET("/products", ctl.Product.ListAllProducts)
			staff.GET("/products/:id", ctl.Product.GetProductByID)
		}

		owner := admin.Group("", auth.Authenticate(), auth.RequireRole(model.RoleAdmin))
		{
			owner.POST("/users", ctl.Auth.CreateUser)

			owner.POST("/products", ctl.Product.CreateProduct)
			owner.PUT("/products/:id", ctl.Product.UpdateProduct)
			owner.DELETE("/products/:id", ctl.Product.DeleteProduct)

			owner.GET("/settings", ctl.Setting.GetSettings)
			owner.PUT("/settings", ctl.Setting.UpdateSettings)

			owner.POST("/uploads/presigned-url", ctl.Upload.GeneratePresignedURL)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, "+middleware.CartSessionHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", middleware.CartSessionHeader+", "+middleware.RequestIDHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
