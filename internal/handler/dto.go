package handler

import (
	"time"

	"github.com/set-night/invoicedesk/internal/domain"
)

type customerResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type paymentResponse struct {
	ID        int64     `json:"id"`
	InvoiceID int64     `json:"invoice_id"`
	Amount    string    `json:"amount"`
	PaidAt    time.Time `json:"paid_at"`
	CreatedAt time.Time `json:"created_at"`
}

type invoiceResponse struct {
	ID         int64                `json:"id"`
	CustomerID int64                `json:"customer_id"`
	Amount     string               `json:"amount"`
	Currency   string               `json:"currency"`
	IssuedAt   time.Time            `json:"issued_at"`
	DueAt      time.Time            `json:"due_at"`
	Status     domain.InvoiceStatus `json:"status"`
	Payments   []paymentResponse    `json:"payments"`
	AmountPaid string               `json:"amount_paid"`
	BalanceDue string               `json:"balance_due"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

func toCustomerResponse(c *domain.Customer) customerResponse {
	return customerResponse{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt.UTC()}
}

func toPaymentResponse(p *domain.Payment) paymentResponse {
	return paymentResponse{
		ID:        p.ID,
		InvoiceID: p.InvoiceID,
		Amount:    p.Amount.StringFixed(2),
		PaidAt:    p.PaidAt.UTC(),
		CreatedAt: p.CreatedAt.UTC(),
	}
}

func toInvoiceResponse(inv *domain.Invoice) invoiceResponse {
	payments := make([]paymentResponse, len(inv.Payments))
	for i := range inv.Payments {
		payments[i] = toPaymentResponse(&inv.Payments[i])
	}
	return invoiceResponse{
		ID:         inv.ID,
		CustomerID: inv.CustomerID,
		Amount:     inv.Amount.StringFixed(2),
		Currency:   inv.Currency,
		IssuedAt:   inv.IssuedAt.UTC(),
		DueAt:      inv.DueAt.UTC(),
		Status:     inv.Status,
		Payments:   payments,
		AmountPaid: inv.AmountPaid().StringFixed(2),
		BalanceDue: inv.BalanceDue().StringFixed(2),
		CreatedAt:  inv.CreatedAt.UTC(),
		UpdatedAt:  inv.UpdatedAt.UTC(),
	}
}

func toInvoiceList(invoices []domain.Invoice) []invoiceResponse {
	out := make([]invoiceResponse, len(invoices))
	for i := range invoices {
		out[i] = toInvoiceResponse(&invoices[i])
	}
	return out
}
