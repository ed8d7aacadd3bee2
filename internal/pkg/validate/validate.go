package validate

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/currency-exchange-api/internal/domain"
	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. Custom tags are registered in
// init() before the first call to Struct.
var v = validator.New()

func init() {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		_, ok := domain.NormalizeCode(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("fee_mode", func(fl validator.FieldLevel) bool {
		switch domain.FeeMode(strings.ToLower(fl.Field().String())) {
		case domain.FeeStandard, domain.FeeExpress, domain.FeeEconomy:
			return true
		}
		return false
	})
}

// Struct validates the given struct using its validate tags.
// Failures come back as a *domain.ValidationError naming the first bad field
// by its JSON name.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return domain.NewValidationError(ve[0].Field(), strings.Join(msgs, "; "))
	}
	return nil
}
