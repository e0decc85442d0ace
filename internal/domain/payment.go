package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Payment struct {
	ID        int64
	InvoiceID int64
	Amount    decimal.Decimal
	PaidAt    time.Time
	CreatedAt time.Time
}

// PaymentParams is the input for recording a payment. A nil PaidAt means now.
type PaymentParams struct {
	Amount decimal.Decimal
	PaidAt *time.Time
}

func (p PaymentParams) Validate() error {
	verr := &ValidationError{}
	if msg := ValidateAmount(p.Amount); msg != "" {
		verr.Add("amount", msg)
	}
	return verr.Err()
}
