package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	CartSessionHeader = "X-Cart-Session"
	CartSessionCookie = "kiply_cart"
	cartSessionKey    = "cart_session"
)

// CartSession identifies the shopper's cart. The ID comes from the
// X-Cart-Session header or the kiply_cart cookie; a new one is issued when
// neither carries a valid UUID. The ID is echoed in both so that SPA and
// cookie clients stay in sync.
func CartSession(maxAge int, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CartSessionHeader)
		if id == "" {
			id, _ = c.Cookie(CartSessionCookie)
		}
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			GetLoggerFromContext(c).Debug("Issued new cart session", map[string]interface{}{
				"cart_session": id,
			})
		}

		c.Set(cartSessionKey, id)
		c.Header(CartSessionHeader, id)
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(CartSessionCookie, id, maxAge, "/", "", secure, true)
		c.Next()
	}
}

// GetCartSession returns the cart session ID set by CartSession.
func GetCartSession(c *gin.Context) string {
	return c.GetString(cartSessionKey)
}
