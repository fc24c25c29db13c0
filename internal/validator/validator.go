package validator

import (
	"fmt"
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/metinatakli/cinex-booking/api"
)

const maxSessionIDLength = 128

var sessionIDRgx = regexp.MustCompile(`^[A-Za-z0-9_.:\-]+$`)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterValidation("session_id", validateSessionID)
	validator.RegisterValidation("seat_row", validateSeatRow)

	return validator
}

func validateSessionID(fl validator.FieldLevel) bool {
	return ValidSessionID(fl.Field().String())
}

// ValidSessionID reports whether id may be used as a session identifier.
func ValidSessionID(id string) bool {
	return len(id) > 0 && len(id) <= maxSessionIDLength && sessionIDRgx.MatchString(id)
}

func validateSeatRow(fl validator.FieldLevel) bool {
	row, ok := fl.Field().Interface().(api.SeatRow)
	if !ok {
		return false
	}

	return row >= 1
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if err.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", err.Param())
		}
		return fmt.Sprintf("must be at least %s characters long", err.Param())
	case "max":
		if err.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", err.Param())
		}
		return fmt.Sprintf("must be at most %s characters long", err.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", err.Param())
	case "seat_row":
		return "must be a row letter or a positive row number"
	case "session_id":
		return fmt.Sprintf("must be 1-%d characters of letters, digits, '.', ':', '_' or '-'", maxSessionIDLength)
	default:
		return "is invalid"
	}
}
