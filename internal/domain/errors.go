package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrNotDraft            = errors.New("invoice is not a draft")
	ErrPaymentNotAllowed   = errors.New("payment not allowed")
	ErrOverpayment         = errors.New("payment exceeds remaining balance")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrIdempotencyConflict = errors.New("request with this idempotency key is already in progress")
)

// ValidationError collects per-field input problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; exists {
		return
	}
	e.Fields[field] = message
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Err returns nil when no field was flagged.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// IsRuleViolation reports whether err is a lifecycle or balance rule violation
// the caller can fix by changing the request.
func IsRuleViolation(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrNotDraft) ||
		errors.Is(err, ErrPaymentNotAllowed) ||
		errors.Is(err, ErrOverpayment) ||
		errors.Is(err, ErrInvalidAmount)
}

// IsNotFound reports whether err refers to a missing customer or invoice.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound) || errors.Is(err, ErrInvoiceNotFound)
}

// Detail returns the human-readable part of a rule violation, without the
// sentinel prefix.
func Detail(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{
		ErrInvalidTransition, ErrNotDraft, ErrPaymentNotAllowed,
		ErrOverpayment, ErrInvalidAmount,
	} {
		if errors.Is(err, sentinel) {
			prefix := sentinel.Error() + ": "
			if i := strings.Index(msg, prefix); i >= 0 {
				return msg[i+len(prefix):]
			}
		}
	}
	return msg
}
