package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError turns a persistence error into a code and a message that is safe
// to show. context names the resource involved ("producto", "pedido", ...).
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "Ocurrió un error en el servidor"}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: ResourceNotFound, Message: notFoundMessage(context)}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "El registro ya existe"}
	}

	lower := strings.ToLower(err.Error())

	// postgres: "duplicate key value violates unique constraint"
	// sqlite:   "UNIQUE constraint failed: products.slug"
	if strings.Contains(lower, "duplicate key") || strings.Contains(lower, "unique constraint") {
		return parseDuplicateKeyError(lower)
	}
	if strings.Contains(lower, "foreign key constraint") {
		return ErrorInfo{Code: ResourceConflict, Message: "El registro está relacionado con otros datos"}
	}
	if strings.Contains(lower, "not-null constraint") || strings.Contains(lower, "not null constraint") {
		return ErrorInfo{Code: ValidationRequired, Message: "Faltan campos obligatorios"}
	}
	if strings.Contains(lower, "connection refused") || strings.Contains(lower, "timeout") {
		return ErrorInfo{Code: InternalDatabaseError, Message: "No pudimos conectar con la base de datos. Inténtalo de nuevo"}
	}

	return ErrorInfo{Code: InternalServerError, Message: "Ocurrió un error al procesar " + withArticle(context)}
}

func parseDuplicateKeyError(lower string) ErrorInfo {
	switch {
	case strings.Contains(lower, "slug"):
		return ErrorInfo{Code: ProductSlugExists, Message: "Ya existe un producto con esa URL"}
	case strings.Contains(lower, "email"):
		return ErrorInfo{Code: AuthEmailAlreadyExists, Message: "El correo ya está registrado"}
	default:
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "El registro ya existe"}
	}
}

func notFoundMessage(context string) string {
	switch context {
	case "producto":
		return "Producto no encontrado"
	case "pedido":
		return "Pedido no encontrado"
	case "usuario":
		return "Usuario no encontrado"
	default:
		return "Recurso no encontrado"
	}
}

func withArticle(context string) string {
	switch context {
	case "":
		return "la solicitud"
	case "producto", "pedido", "usuario":
		return "el " + context
	default:
		return context
	}
}

// ParseAndRespond parses err and writes it as an error response.
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	info := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{Error: info.Code, Message: info.Message})
}
