package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestParseError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		context  string
		wantCode string
		wantMsg  string
	}{
		{name: "nil", err: nil, wantCode: InternalServerError},
		{name: "not found", err: fmt.Errorf("find: %w", gorm.ErrRecordNotFound), context: "producto", wantCode: ResourceNotFound, wantMsg: "Producto no encontrado"},
		{name: "sqlite slug", err: fmt.Errorf("UNIQUE constraint failed: products.slug"), context: "producto", wantCode: ProductSlugExists},
		{name: "postgres email", err: fmt.Errorf(`ERROR: duplicate key value violates unique constraint "idx_users_email"`), wantCode: AuthEmailAlreadyExists},
		{name: "other duplicate", err: fmt.Errorf("UNIQUE constraint failed: settings.key"), wantCode: ResourceAlreadyExists},
		{name: "fallback", err: fmt.Errorf("boom"), context: "pedido", wantCode: InternalServerError, wantMsg: "Ocurrió un error al procesar el pedido"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseError(tt.err, tt.context)
			assert.Equal(t, tt.wantCode, info.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, info.Message)
			}
		})
	}
}
