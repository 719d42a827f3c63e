// Package validation checks form input on the client before it is sent
// to the backend. The backend validates again; these rules only exist
// to give immediate, per-field feedback in the UI.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/stock-deck/stockdeck/internal/domain/session"
)

// LoginForm is the sign-in form.
type LoginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

// ProductForm is the product create/edit form.
type ProductForm struct {
	Name     string  `validate:"required"`
	Category string  `validate:"required"`
	Price    float64 `validate:"gte=0"`
	Stock    int     `validate:"gte=0"`
}

// UserForm is the user create form.
type UserForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
	Role     string `validate:"required,role"`
}

// FieldError is one failed rule on one form field.
type FieldError struct {
	Field   string
	Message string
}

// FormErrors collects every failed field of one validation pass.
type FormErrors []FieldError

func (e FormErrors) Error() string {
	messages := make([]string, len(e))
	for i, fe := range e {
		messages[i] = fe.Message
	}
	return strings.Join(messages, "; ")
}

// ByField indexes the errors by field name for per-input display.
func (e FormErrors) ByField() map[string]string {
	m := make(map[string]string, len(e))
	for _, fe := range e {
		if _, ok := m[fe.Field]; !ok {
			m[fe.Field] = fe.Message
		}
	}
	return m
}

// Validator validates form structs.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator with the application's custom rules
// registered.
func New() (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("role", validateRole); err != nil {
		return nil, fmt.Errorf("failed to register role validator: %w", err)
	}
	return &Validator{v: v}, nil
}

// validateRole accepts the known account roles.
func validateRole(fl validator.FieldLevel) bool {
	return session.Role(fl.Field().String()).IsValid()
}

// Validate runs the struct tag rules on form. Returns FormErrors on
// failure, nil when the form is clean.
func (va *Validator) Validate(form any) error {
	err := va.v.Struct(form)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	formErrors := make(FormErrors, 0, len(validationErrors))
	for _, e := range validationErrors {
		formErrors = append(formErrors, FieldError{
			Field:   strings.ToLower(e.Field()),
			Message: formatFieldError(e),
		})
	}
	return formErrors
}

// formatFieldError creates a user-friendly message for a single failed
// rule.
func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", field, e.Param())
	case "role":
		return fmt.Sprintf("%s must be one of: admin, operator, viewer", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}
