package service

import (
	"github.com/go-playground/validator/v10"

	"github.com/vindel10/vindel-api/internal/catalog"
)

// NewValidator returns a validator with the marketplace-specific tags
// registered. The "category" tag accepts only catalog category names.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return catalog.IsCategory(fl.Field().String())
	})
	return v
}
