package repository

import (
	"strings"

	apperrors "github.com/welldanyogia/icd-messaging-backend/internal/errors"
)

// Common repository errors
var (
	ErrNotFound       = apperrors.ErrMessageNotFound
	ErrDuplicateEntry = apperrors.NewAppError(apperrors.ErrValidation, "duplicate entry", apperrors.CodeValidation)
	ErrInvalidInput   = apperrors.NewAppError(apperrors.ErrValidation, "invalid input", apperrors.CodeValidation)
)

// isDuplicateKeyError checks if the error is a duplicate key violation
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "23505") // PostgreSQL unique violation code
}
