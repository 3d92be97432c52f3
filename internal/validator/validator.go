// Package validator provides input validation and sanitization functions
// for the ICD messaging backend.
package validator

import (
	"errors"
	"fmt"
	"net/mail"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/welldanyogia/icd-messaging-backend/internal/errors"
)

// Validation errors
var (
	ErrInvalidEmail = errors.New("invalid email format")
	ErrInputTooLong = errors.New("input exceeds maximum length")
	ErrEmptyInput   = errors.New("input cannot be empty")
)

// Validator validates tagged structs
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator that reports JSON field names
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return &Validator{validate: v}
}

// Validate runs struct validation and returns the first violation as a *errors.ValidationError
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return apperrors.NewValidationError(fe.Field(), fe.Tag(), "%s", describe(fe))
	}
	return apperrors.Wrap(apperrors.ErrValidation, err.Error())
}

// Var validates a single value against a tag expression
func (v *Validator) Var(field string, value interface{}, tag string) error {
	if err := v.validate.Var(value, tag); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return apperrors.NewValidationError(field, fieldErrs[0].Tag(), "%s", describeAs(field, fieldErrs[0]))
		}
		return apperrors.Wrap(apperrors.ErrValidation, err.Error())
	}
	return nil
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

func describe(fe validator.FieldError) string {
	return describeAs(fe.Field(), fe)
}

func describeAs(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed the %q rule", field, fe.Tag())
	}
}

// ValidateEmail validates email address format according to RFC 5322.
// Returns nil if valid, or an appropriate error.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	if email == "" {
		return ErrEmptyInput
	}

	// RFC 5321 specifies max email length of 254 characters
	if utf8.RuneCountInString(email) > 254 {
		return ErrInputTooLong
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}

	return nil
}

// NormalizeEmail lower-cases and trims an address so identity comparisons are stable
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// NormalizeDepartments trims names and drops empties and duplicates, keeping first-seen order
func NormalizeDepartments(departments []string) []string {
	if len(departments) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(departments))
	out := make([]string, 0, len(departments))
	for _, d := range departments {
		d = SanitizeString(d, 255)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SanitizeFilename removes dangerous characters from filename.
// Prevents path traversal and removes control characters.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "..", "_")
	filename = strings.ReplaceAll(filename, "\x00", "")

	filename = stripControl(filename)
	filename = strings.TrimSpace(filename)

	// Limit length to 255 characters (common filesystem limit)
	if utf8.RuneCountInString(filename) > 255 {
		runes := []rune(filename)
		filename = string(runes[:255])
	}

	if filename == "" {
		return "unnamed"
	}

	return filename
}

// SanitizeString removes control characters and enforces length limits.
func SanitizeString(input string, maxLength int) string {
	input = strings.TrimSpace(stripControl(input))

	if maxLength > 0 && utf8.RuneCountInString(input) > maxLength {
		runes := []rune(input)
		input = string(runes[:maxLength])
	}

	return input
}

// stripControl removes ASCII control characters (0-31 and 127)
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}
