package auth

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Global validator instance (reused across all forms)
var validate = validator.New()

// LoginForm carries the credential inputs for a login attempt. Only presence
// and shape are checked client-side; credential correctness is the server's.
type LoginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`

	// Typing-cadence biometrics, zero when the caller cannot measure them.
	TypingSpeed float64 `validate:"gte=0"`
	KeyInterval float64 `validate:"gte=0"`
	KeyHold     float64 `validate:"gte=0"`
}

// RegisterForm carries the registration inputs.
type RegisterForm struct {
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=8,max=128"`
	PasswordConfirm string `validate:"required,eqfield=Password"`
}

// validateForm validates a form struct and returns a user-friendly error
// message if validation fails.
func validateForm(form interface{}) error {
	if err := validate.Struct(form); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			fe := ve[0]
			return fmt.Errorf("validation failed: %s: %s", fe.Field(), formatValidationError(fe))
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must have a minimum of %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have a maximum of %s characters", fe.Param())
	case "eqfield":
		return "must match the password"
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
