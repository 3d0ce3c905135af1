package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"property_manager/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names, not Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateInput runs struct-tag validation and converts the first failure
// into a domain.ValidationError.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		fe := ves[0]
		msg := fmt.Sprintf("failed %q check", fe.Tag())
		if fe.Tag() == "required" {
			msg = "is required"
		}
		return domain.ValidationError{Field: fe.Field(), Msg: msg, Err: err}
	}
	return domain.ValidationError{Msg: err.Error(), Err: err}
}
