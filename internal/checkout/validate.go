package checkout

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kiplystart/kiplystart-backend/pkg/util"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return len(util.Digits(fl.Field().String())) >= minPhoneDigits
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

var fieldMessages = map[string]string{
	"required": "Este campo es obligatorio",
	"notblank": "Este campo es obligatorio",
	"phone":    "El teléfono debe tener al menos 10 dígitos",
	"email":    "Correo electrónico inválido",
}

// ValidatePersonal checks the personal info step.
func ValidatePersonal(p PersonalInfo) error {
	return structError(validate.Struct(p))
}

// ValidateDelivery checks the delivery info step.
func ValidateDelivery(d DeliveryInfo) error {
	return structError(validate.Struct(d))
}

func structError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Tag()]
		if !ok {
			msg = "Valor inválido"
		}
		out.Fields[fe.Field()] = msg
	}
	return out
}
