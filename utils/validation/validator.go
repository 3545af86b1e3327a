package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(),
	}
}

// ValidateStruct validates a struct using struct tags and returns
// a field -> message map, or nil when s is valid.
func (v *Validator) ValidateStruct(s interface{}) map[string]string {
	if err := v.validate.Struct(s); err != nil {
		return FormatValidationErrors(err)
	}
	return nil
}

// FormatValidationErrors converts validation errors to a user-friendly format
func FormatValidationErrors(err error) map[string]string {
	errs := make(map[string]string)

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["request"] = err.Error()
		return errs
	}

	for _, e := range validationErrs {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			errs[field] = fmt.Sprintf("%s is required", e.Field())
		case "email":
			errs[field] = "Invalid email format"
		case "min":
			errs[field] = fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
		case "max":
			errs[field] = fmt.Sprintf("%s must be at most %s", e.Field(), e.Param())
		case "gte", "gt":
			errs[field] = fmt.Sprintf("%s must be greater than %s", e.Field(), e.Param())
		case "oneof":
			errs[field] = fmt.Sprintf("%s must be one of [%s]", e.Field(), e.Param())
		default:
			errs[field] = fmt.Sprintf("%s is invalid", e.Field())
		}
	}

	return errs
}

// SanitizeString strips null bytes and surrounding whitespace
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}
