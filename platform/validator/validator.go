// Package validator provides request validation for the HTTP layer.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// TagStageName validates a pipeline stage identifier: lower case letters,
// digits and underscores, starting with a letter.
const TagStageName = "stage_name"

var stageNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Validator wraps the go-playground validator with the application's tags.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator with the custom tags registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation(TagStageName, func(fl validator.FieldLevel) bool {
		return stageNamePattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}
