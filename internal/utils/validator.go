// internal/utils/validator.go
package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("pricing_model", validatePricingModel)
	validate.RegisterValidation("transaction_type", validateTransactionType)
	validate.RegisterValidation("refund_reason", validateRefundReason)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validatePricingModel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "FREE", "PAY_PER_DOWNLOAD", "SUBSCRIPTION", "API_BASED":
		return true
	}
	return false
}

func validateTransactionType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "PURCHASE", "SUBSCRIPTION", "API_ACCESS":
		return true
	}
	return false
}

func validateRefundReason(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "DUPLICATE", "DATA_QUALITY", "NOT_AS_DESCRIBED", "SERVICE_ISSUE", "OTHER":
		return true
	}
	return false
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "pricing_model":
		return "Pricing model must be one of FREE, PAY_PER_DOWNLOAD, SUBSCRIPTION, API_BASED"
	case "transaction_type":
		return "Transaction type must be one of PURCHASE, SUBSCRIPTION, API_ACCESS"
	case "refund_reason":
		return "Refund reason must be one of DUPLICATE, DATA_QUALITY, NOT_AS_DESCRIBED, SERVICE_ISSUE, OTHER"
	default:
		return e.Field() + " is invalid"
	}
}
