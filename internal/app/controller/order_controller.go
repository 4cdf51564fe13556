package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiplystart/kiplystart-backend/internal/app/model"
	"github.com/kiplystart/kiplystart-backend/internal/app/service"
	apperrors "github.com/kiplystart/kiplystart-backend/internal/errors"
	"github.com/kiplystart/kiplystart-backend/internal/middleware"
)

const dateLayout = "2006-01-02"

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required"`
}

// ListOrders returns order lines, newest first
// GET /api/v1/admin/orders?status=&code=&phone=&from=&to=&page=&page_size=
func (ctrl *OrderController) ListOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	from, ok := parseDateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := parseDateQuery(c, "to")
	if !ok {
		return
	}
	if to != nil {
		// inclusive end date
		end := to.AddDate(0, 0, 1)
		to = &end
	}

	page, pageSize := pageParams(c)
	orders, total, err := ctrl.orderService.ListOrders(service.OrderListOptions{
		Status:    c.Query("status"),
		OrderCode: c.Query("code"),
		Phone:     c.Query("phone"),
		From:      from,
		To:        to,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidOrderStatus) {
			apperrors.BadRequest(c, apperrors.OrderInvalidStatus, "Estado de pedido inválido")
			return
		}
		log.Error("Failed to fetch orders", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "pedido")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"page":   page,
	})
}

// GetOrder returns every line of an order
// GET /api/v1/admin/orders/:code
func (ctrl *OrderController) GetOrder(c *gin.Context) {
	order, err := ctrl.orderService.GetOrder(c.Param("code"))
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// UpdateOrderStatus moves all lines of an order to a new status
// PATCH /api/v1/admin/orders/:code/status
func (ctrl *OrderController) UpdateOrderStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	code := c.Param("code")

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid order status request", map[string]interface{}{
			"order_code": code,
			"error":      err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Estado de pedido inválido")
		return
	}

	order, err := ctrl.orderService.UpdateStatus(code, req.Status)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	userID, _ := middleware.GetUserID(c)
	log.Info("Order status changed", map[string]interface{}{
		"order_code": order.OrderCode,
		"status":     order.Status,
		"user_id":    userID,
	})

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// GetStats returns dashboard counters
// GET /api/v1/admin/orders/stats
func (ctrl *OrderController) GetStats(c *gin.Context) {
	stats, err := ctrl.orderService.GetStats(time.Now())
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to compute order stats", err, nil)
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats": stats,
	})
}

// ListCustomers returns the customer book, most recent buyers first
// GET /api/v1/admin/customers
func (ctrl *OrderController) ListCustomers(c *gin.Context) {
	page, pageSize := pageParams(c)
	customers, total, err := ctrl.orderService.ListCustomers(page, pageSize)
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to fetch customers", err, nil)
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"customers": customers,
		"total":     total,
		"page":      page,
	})
}

func respondOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		apperrors.NotFound(c, apperrors.OrderNotFound, "Pedido no encontrado")
	case errors.Is(err, service.ErrInvalidOrderStatus):
		apperrors.BadRequest(c, apperrors.OrderInvalidStatus, "Estado de pedido inválido")
	case errors.Is(err, service.ErrInvalidStatusTransition):
		apperrors.Conflict(c, apperrors.OrderInvalidStatus, "El pedido ya está cerrado")
	default:
		middleware.GetLoggerFromContext(c).Error("Order operation failed", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "pedido")
	}
}

func parseDateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.Local)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Fecha inválida, usa AAAA-MM-DD")
		return nil, false
	}
	return &t, true
}
