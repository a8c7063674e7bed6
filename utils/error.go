package utils

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrorRecordNotFound        = errors.New("record not found")
	ErrorChecklistItemNotFound = errors.New("checklist item not found")
	ErrorDuplicateDisplayId    = errors.New("could not allocate a unique display id")
	ErrorIdempotencyInProgress = errors.New("a request with this idempotency key is still in progress")
	ErrorIdempotencyKeyReused  = errors.New("idempotency key was already used with a different request body")
)

// ValidationError carries per-field failures, keyed by json field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed (" + strings.Join(parts, ", ") + ")"
}

func NewValidationError(field string, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsDuplicateKeyErr matches unique-constraint violations. gorm translates
// them for mysql and postgres; sqlite's message is matched as a fallback.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}
