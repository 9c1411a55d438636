package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their json name, the way clients sent them
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the request struct through the validator and renders
// the first failure as a client-facing message.
func validateStruct(s interface{}) (string, bool) {
	err := validate.Struct(s)
	if err == nil {
		return "", true
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		if fe.Tag() == "required" {
			return fmt.Sprintf("body should have required property '%s'", fe.Field()), false
		}
		return fmt.Sprintf("body.%s is invalid", fe.Field()), false
	}
	return "invalid request body", false
}
