package checkout

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kiplystart/kiplystart-backend/pkg/util"
	"github.com/shopspring/decimal"
)

const whatsAppBaseURL = "https://wa.me/"

// FormatMoney renders an amount as "$24.00".
func FormatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// Compose builds the WhatsApp text the shopper sends to confirm an order.
func Compose(storeName string, s *Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*Nuevo pedido %s*\n", s.OrderCode)
	if storeName != "" {
		fmt.Fprintf(&b, "Tienda: %s\n", storeName)
	}

	b.WriteString("\n*Productos:*\n")
	for _, l := range s.Lines {
		fmt.Fprintf(&b, "• %s - %s: %s\n", l.Name, l.Label(), FormatMoney(l.LineTotal()))
	}
	fmt.Fprintf(&b, "\n*Total: %s* (%d unidades)\n", FormatMoney(s.Total), s.Units)
	b.WriteString("Pago contra entrega\n")

	b.WriteString("\n*Cliente:*\n")
	fmt.Fprintf(&b, "Nombre: %s\n", strings.TrimSpace(s.Personal.FullName))
	fmt.Fprintf(&b, "Cédula: %s\n", strings.TrimSpace(s.Personal.IDNumber))
	fmt.Fprintf(&b, "Teléfono: %s\n", strings.TrimSpace(s.Personal.Phone))
	if email := strings.TrimSpace(s.Personal.Email); email != "" {
		fmt.Fprintf(&b, "Correo: %s\n", email)
	}

	b.WriteString("\n*Entrega:*\n")
	fmt.Fprintf(&b, "%s, %s\n", strings.TrimSpace(s.Delivery.City), strings.TrimSpace(s.Delivery.State))
	fmt.Fprintf(&b, "%s\n", strings.TrimSpace(s.Delivery.Address))
	if ref := strings.TrimSpace(s.Delivery.Reference); ref != "" {
		fmt.Fprintf(&b, "Referencia: %s\n", ref)
	}

	return b.String()
}

// DeepLink returns the wa.me URL that opens a chat with number prefilled with
// text. Spaces are encoded as %20 since WhatsApp does not decode "+".
func DeepLink(number, text string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return whatsAppBaseURL + util.NormalizePhone(number) + "?text=" + escaped
}
