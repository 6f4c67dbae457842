// Package services defines the business logic for shipments, tracking
// updates, the public tracking view, and the contact form. This file
// centralizes service-level error values so that they can be consistently
// returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrShipmentNotFound indicates that no shipment matches the given
	// tracking id or internal id.
	ErrShipmentNotFound = errors.New("shipment not found")

	// ErrDuplicateTrackingID is returned when a create request reuses a
	// tracking id that already exists. Nothing is written.
	ErrDuplicateTrackingID = errors.New("tracking id already exists")

	// ErrConcurrentUpdate is returned when a tracking update kept losing the
	// compare-and-swap on the shipment version. Callers may retry.
	ErrConcurrentUpdate = errors.New("shipment was modified concurrently")

	// ErrUnauthorized means no authenticated principal was supplied.
	ErrUnauthorized = errors.New("authentication required")

	// ErrForbidden means the principal lacks the admin role.
	ErrForbidden = errors.New("admin role required")

	// ErrEmailFailed wraps transactional email failures on the contact form.
	ErrEmailFailed = errors.New("failed to send email")
)

// ValidationError reports user-correctable input problems, keyed by the
// JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// invalid builds a ValidationError for a single field.
func invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// fromValidator converts validator errors to a ValidationError. Field names
// come from the json tag (see newValidator).
func fromValidator(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(ves))}
	for _, fe := range ves {
		out.Fields[fe.Field()] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}
