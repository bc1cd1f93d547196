package common

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the `validate` struct tags of s and reports the first
// failing field as a ValidationError.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return Invalid(field, "must be provided")
	case "email":
		return Invalid(field, "must be a valid email address")
	case "min":
		return Invalid(field, "must be at least "+fe.Param()+" characters long")
	case "max":
		return Invalid(field, "must be at most "+fe.Param()+" characters long")
	default:
		return Invalid(field, "is invalid")
	}
}
