package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/set-night/invoicedesk/internal/config"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "DRAFT"
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusVoid    InvoiceStatus = "VOID"
)

// invoiceTransitions lists the statuses reachable from each status.
// PAID and VOID are terminal.
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:   {InvoiceStatusPending},
	InvoiceStatusPending: {InvoiceStatusPaid, InvoiceStatusVoid},
}

// Allowed reports whether an invoice may move from one status to another.
func Allowed(from, to InvoiceStatus) bool {
	for _, next := range invoiceTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusVoid:
		return true
	}
	return false
}

func (s InvoiceStatus) Terminal() bool {
	return len(invoiceTransitions[s]) == 0
}

// ParseInvoiceStatus accepts a status name in any letter case.
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	st := InvoiceStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown invoice status %q", s)
	}
	return st, nil
}

// AllInvoiceStatuses in lifecycle order.
func AllInvoiceStatuses() []InvoiceStatus {
	return []InvoiceStatus{InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusVoid}
}

type Invoice struct {
	ID         int64
	CustomerID int64
	Amount     decimal.Decimal
	Currency   string
	IssuedAt   time.Time
	DueAt      time.Time
	Status     InvoiceStatus
	Payments   []Payment
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AmountPaid sums the payments loaded on the invoice.
func (i *Invoice) AmountPaid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range i.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

func (i *Invoice) BalanceDue() decimal.Decimal {
	balance := i.Amount.Sub(i.AmountPaid())
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// IsOverdue reports whether a PENDING invoice is past its due date.
func (i *Invoice) IsOverdue(now time.Time) bool {
	return i.Status == InvoiceStatusPending && i.DueAt.Before(now)
}

func (i *Invoice) CanTransition(to InvoiceStatus) bool {
	return Allowed(i.Status, to)
}

// InvoiceParams is the input for creating an invoice.
type InvoiceParams struct {
	CustomerID int64
	Amount     decimal.Decimal
	Currency   string
	IssuedAt   time.Time
	DueAt      time.Time
	Status     InvoiceStatus
}

// Normalize upper-cases the currency, converts times to UTC and defaults the
// status to DRAFT.
func (p *InvoiceParams) Normalize() {
	p.Currency = NormalizeCurrency(p.Currency)
	p.IssuedAt = p.IssuedAt.UTC()
	p.DueAt = p.DueAt.UTC()
	if p.Status == "" {
		p.Status = InvoiceStatusDraft
	}
}

func (p InvoiceParams) Validate() error {
	verr := &ValidationError{}
	validateInvoiceFields(verr, p.CustomerID, p.Amount, p.Currency, p.IssuedAt, p.DueAt)
	switch p.Status {
	case InvoiceStatusDraft, InvoiceStatusPending:
	case InvoiceStatusPaid, InvoiceStatusVoid:
		verr.Add("status", "new invoices must be DRAFT or PENDING")
	default:
		verr.Add("status", fmt.Sprintf("unknown status %q", p.Status))
	}
	return verr.Err()
}

// InvoicePatch carries a partial update of a draft. Nil fields are left as is.
type InvoicePatch struct {
	CustomerID *int64
	Amount     *decimal.Decimal
	Currency   *string
	IssuedAt   *time.Time
	DueAt      *time.Time
}

func (p InvoicePatch) Empty() bool {
	return p.CustomerID == nil && p.Amount == nil && p.Currency == nil && p.IssuedAt == nil && p.DueAt == nil
}

// Apply writes the patch onto inv and validates the result.
func (p InvoicePatch) Apply(inv *Invoice) error {
	if p.CustomerID != nil {
		inv.CustomerID = *p.CustomerID
	}
	if p.Amount != nil {
		inv.Amount = *p.Amount
	}
	if p.Currency != nil {
		inv.Currency = NormalizeCurrency(*p.Currency)
	}
	if p.IssuedAt != nil {
		inv.IssuedAt = p.IssuedAt.UTC()
	}
	if p.DueAt != nil {
		inv.DueAt = p.DueAt.UTC()
	}

	verr := &ValidationError{}
	validateInvoiceFields(verr, inv.CustomerID, inv.Amount, inv.Currency, inv.IssuedAt, inv.DueAt)
	return verr.Err()
}

// InvoiceFilter narrows invoice listings. Nil fields do not filter.
// From and To bound issued_at inclusively; DueBefore bounds due_at exclusively.
type InvoiceFilter struct {
	Status     *InvoiceStatus
	CustomerID *int64
	From       *time.Time
	To         *time.Time
	DueBefore  *time.Time
}

// Match applies the filter to a single invoice.
func (f InvoiceFilter) Match(inv *Invoice) bool {
	if f.Status != nil && inv.Status != *f.Status {
		return false
	}
	if f.CustomerID != nil && inv.CustomerID != *f.CustomerID {
		return false
	}
	if f.From != nil && inv.IssuedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && inv.IssuedAt.After(*f.To) {
		return false
	}
	if f.DueBefore != nil && !inv.DueAt.Before(*f.DueBefore) {
		return false
	}
	return true
}

func NormalizeCurrency(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}

var maxAmount = decimal.RequireFromString(config.MaxAmount)

// NUMERIC(12,2) leaves 10 digits before the point.
const maxIntegerDigits = 10

// ValidateAmount returns a message describing why amount cannot be stored as
// a NUMERIC(12,2) money value, or "" when it can.
func ValidateAmount(amount decimal.Decimal) string {
	// Integer digits and excess fractional digits are checked on the
	// coefficient and exponent, before Round rescales huge exponents.
	digits, exp := amount.NumDigits(), int(amount.Exponent())
	switch {
	case !amount.IsPositive():
		return "must be greater than zero"
	case digits+exp > maxIntegerDigits:
		return "must not exceed " + config.MaxAmount
	case -exp-config.AmountScale >= digits:
		return "must have at most 2 decimal places"
	case !amount.Equal(amount.Round(config.AmountScale)):
		return "must have at most 2 decimal places"
	case amount.GreaterThan(maxAmount):
		return "must not exceed " + config.MaxAmount
	}
	return ""
}

func validateInvoiceFields(verr *ValidationError, customerID int64, amount decimal.Decimal, currency string, issuedAt, dueAt time.Time) {
	if customerID <= 0 {
		verr.Add("customer_id", "must be a positive id")
	}
	if msg := ValidateAmount(amount); msg != "" {
		verr.Add("amount", msg)
	}
	if !validCurrency(currency) {
		verr.Add("currency", "must be a 3-letter currency code")
	}
	if issuedAt.IsZero() {
		verr.Add("issued_at", "is required")
	}
	if dueAt.IsZero() {
		verr.Add("due_at", "is required")
	}
	if !issuedAt.IsZero() && !dueAt.IsZero() && dueAt.Before(issuedAt) {
		verr.Add("due_at", "must not be before issued_at")
	}
}

func validCurrency(c string) bool {
	if len(c) != config.CurrencyCodeLen {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
