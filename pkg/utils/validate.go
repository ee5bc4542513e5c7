// Package utils holds request binding and validation helpers for the HTTP routes
package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func Validate[T any](value T) (T, error) {
	if err := validate.Struct(value); err != nil {
		return value, ValidationErrorToString(value, err)
	}

	return value, nil
}

func ValidateValue(value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		return ValidationErrorToString(value, err)
	}
	return nil
}

func ValidationErrorToString(input any, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	lines := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() == "" {
			lines = append(lines, fmt.Sprintf("field '%s' failed rule '%s'", fe.Field(), fe.Tag()))
			continue
		}
		lines = append(lines, fmt.Sprintf("field '%s' failed rule '%s' (expected '%s', got '%v')", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return fmt.Errorf("invalid %T: %s", input, strings.Join(lines, "; "))
}
