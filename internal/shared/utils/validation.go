package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	apperrors "github.com/orris-inc/offramp/internal/shared/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names for validation errors
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("positive_decimal", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
		return err == nil && d.IsPositive()
	})
}

// RegisterValidation adds a string tag checked by parse. Call from init.
func RegisterValidation(tag string, parse func(string) error) {
	if err := validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return parse(fl.Field().String()) == nil
	}); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// ValidateStruct validates a struct and returns a user-friendly error
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return apperrors.NewValidationError("Validation failed", err.Error())
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		messages = append(messages, fieldErrorMessage(fieldError))
	}

	return apperrors.NewValidationError("Validation failed", strings.Join(messages, "; "))
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := fe.Field()
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, param)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, param)
	case "numeric":
		return fmt.Sprintf("%s must contain only digits", field)
	case "positive_decimal":
		return fmt.Sprintf("%s must be a positive decimal number", field)
	case "crypto_asset":
		return fmt.Sprintf("%s is not a supported asset", field)
	case "network":
		return fmt.Sprintf("%s is not a supported network", field)
	case "receive_currency":
		return fmt.Sprintf("%s is not a supported payout currency", field)
	default:
		return fmt.Sprintf("%s failed validation for '%s'", field, fe.Tag())
	}
}
