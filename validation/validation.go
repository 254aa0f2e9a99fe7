package validation

import (
	"strings"

	"gopkg.in/go-playground/validator.v9"
)

// validateRPCPath is a custom validation which ensures a string is an absolute
// request path without a query or fragment.
// Only works with fields which are strings.
func validateRPCPath(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return strings.HasPrefix(s, "/") && !strings.ContainsAny(s, "?# \t")
}

// New creates a validator with this project's custom validations registered:
//
//	rpc_path    absolute request path, ex., /rpc
func New() *validator.Validate {
	validate := validator.New()
	validate.RegisterValidation("rpc_path", validateRPCPath)

	return validate
}
