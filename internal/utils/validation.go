package contextutils

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validator returns the shared go-playground validator instance.
func Validator() *validator.Validate {
	return validate
}

// IsValidHTTPURL reports whether raw is an absolute http or https URL.
func IsValidHTTPURL(raw string) bool {
	return raw != "" && validate.Var(raw, "http_url") == nil
}
