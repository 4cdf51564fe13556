package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kiplystart/kiplystart-backend/internal/app/service"
	apperrors "github.com/kiplystart/kiplystart-backend/internal/errors"
	"github.com/kiplystart/kiplystart-backend/internal/middleware"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

type UpdateCartItemRequest struct {
	Units *int `json:"units" binding:"required,max=999"`
}

// GetCart returns the shopper's cart
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	sessionID, ok := cartSession(c)
	if !ok {
		return
	}

	view := ctrl.cartService.GetCart(c.Request.Context(), sessionID)
	c.JSON(http.StatusOK, gin.H{
		"cart": view,
	})
}

// AddItem adds a bundle of a product to the cart
// POST /api/v1/cart/items
func (ctrl *CartController) AddItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	sessionID, ok := cartSession(c)
	if !ok {
		return
	}

	var req service.AddItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Datos del producto inválidos")
		return
	}

	view, err := ctrl.cartService.AddItem(c.Request.Context(), sessionID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			apperrors.NotFound(c, apperrors.ProductNotFound, "Producto no encontrado")
		case errors.Is(err, service.ErrProductInactive):
			apperrors.Conflict(c, apperrors.ProductInactive, "Este producto ya no está disponible")
		default:
			log.Error("Failed to add item to cart", err, map[string]interface{}{
				"product_id": req.ProductID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "producto")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cart": view,
	})
}

// UpdateItem sets the total units of a cart line. Counts below one and
// unknown lines leave the cart unchanged.
// PUT /api/v1/cart/items/:key
func (ctrl *CartController) UpdateItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	sessionID, ok := cartSession(c)
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid cart update request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Cantidad inválida")
		return
	}

	view, err := ctrl.cartService.UpdateUnits(c.Request.Context(), sessionID, c.Param("key"), *req.Units)
	if err != nil {
		respondCartKeyError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cart": view,
	})
}

// RemoveItem deletes a cart line
// DELETE /api/v1/cart/items/:key
func (ctrl *CartController) RemoveItem(c *gin.Context) {
	sessionID, ok := cartSession(c)
	if !ok {
		return
	}

	view, err := ctrl.cartService.RemoveItem(c.Request.Context(), sessionID, c.Param("key"))
	if err != nil {
		respondCartKeyError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cart": view,
	})
}

// ClearCart empties the cart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	sessionID, ok := cartSession(c)
	if !ok {
		return
	}

	view := ctrl.cartService.Clear(c.Request.Context(), sessionID)
	c.JSON(http.StatusOK, gin.H{
		"cart": view,
	})
}

func respondCartKeyError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidLineKey) {
		apperrors.BadRequest(c, apperrors.CartInvalidLineKey, "Línea del carrito inválida")
		return
	}
	apperrors.InternalError(c, "")
}

// cartSession fetches the session ID set by middleware.CartSession.
func cartSession(c *gin.Context) (string, bool) {
	sessionID := middleware.GetCartSession(c)
	if sessionID == "" {
		middleware.GetLoggerFromContext(c).Warn("Cart request without session", map[string]interface{}{
			"path": c.Request.URL.Path,
		})
		apperrors.BadRequest(c, apperrors.CartSessionMissing, "No se encontró la sesión del carrito")
		return "", false
	}
	return sessionID, true
}
