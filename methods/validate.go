package methods

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance for call parameters.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Use json tags in error messages so failures name wire fields.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
}

// validateCall checks a call value against its validate tags and wraps any
// failure as a *RequestError for the given method path.
func validateCall(path string, call any) error {
	if err := validate.Struct(call); err != nil {
		return &RequestError{Path: path, Err: err}
	}
	return nil
}
