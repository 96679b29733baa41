package middleware

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var joinCodePattern = regexp.MustCompile(`^PIM-\d{6}$`)

// RegisterValidators installs custom binding rules on gin's validator.
// Call once during bootstrap.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("joincode", func(fl validator.FieldLevel) bool {
		return joinCodePattern.MatchString(fl.Field().String())
	})
}

// FormatValidationError creates a human-readable validation error message
func FormatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "email":
		return e.Field() + " must be a valid email address"
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "joincode":
		return e.Field() + " must look like PIM-123456"
	default:
		return e.Field() + " validation failed: " + e.Tag()
	}
}
