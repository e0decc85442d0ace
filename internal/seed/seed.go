// Package seed loads fixture customers, invoices and payments with fixed ids.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/set-night/invoicedesk/internal/domain"
	"github.com/set-night/invoicedesk/internal/repository"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type File struct {
	Customers []Customer `json:"customers" yaml:"customers"`
	Invoices  []Invoice  `json:"invoices" yaml:"invoices"`
	Payments  []Payment  `json:"payments" yaml:"payments"`
}

type Customer struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type Invoice struct {
	ID         int64     `json:"id" yaml:"id"`
	CustomerID int64     `json:"customer_id" yaml:"customer_id"`
	Amount     Amount    `json:"amount" yaml:"amount"`
	Currency   string    `json:"currency" yaml:"currency"`
	IssuedAt   Timestamp `json:"issued_at" yaml:"issued_at"`
	DueAt      Timestamp `json:"due_at" yaml:"due_at"`
	Status     string    `json:"status" yaml:"status"`
}

type Payment struct {
	ID        int64     `json:"id" yaml:"id"`
	InvoiceID int64     `json:"invoice_id" yaml:"invoice_id"`
	Amount    Amount    `json:"amount" yaml:"amount"`
	PaidAt    Timestamp `json:"paid_at" yaml:"paid_at"`
}

// Amount accepts numbers or strings.
type Amount struct {
	decimal.Decimal
}

func (a *Amount) parse(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid amount %q", s)
	}
	a.Decimal = d
	return nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.parse(strings.Trim(string(data), `"`))
}

func (a *Amount) UnmarshalYAML(value *yaml.Node) error {
	return a.parse(value.Value)
}

// Timestamp accepts RFC 3339, naive (UTC) and date-only strings.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) parse(s string) error {
	parsed, _, err := domain.ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	return t.parse(s)
}

func (t *Timestamp) UnmarshalYAML(value *yaml.Node) error {
	return t.parse(value.Value)
}

// Load reads a seed file. .yaml and .yml files are YAML, anything else JSON.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	f, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return f, nil
}

func Parse(data []byte, ext string) (*File, error) {
	var f File
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
	}
	return &f, nil
}

// Counts tracks inserted and skipped rows for one table.
type Counts struct {
	Inserted int
	Skipped  int
}

func (c *Counts) add(inserted bool) {
	if inserted {
		c.Inserted++
	} else {
		c.Skipped++
	}
}

type Result struct {
	Customers Counts
	Invoices  Counts
	Payments  Counts
}

// Apply inserts the file's rows in one transaction, customers first. Rows
// whose id already exists are skipped. Id sequences are synced afterwards.
func Apply(ctx context.Context, store repository.Store, f *File) (*Result, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	res := &Result{}
	err := store.WithinTx(ctx, func(q repository.Querier) error {
		for _, c := range f.Customers {
			ok, err := q.SeedCustomer(ctx, domain.Customer{ID: c.ID, Name: strings.TrimSpace(c.Name)})
			if err != nil {
				return fmt.Errorf("seed customer %d: %w", c.ID, err)
			}
			res.Customers.add(ok)
		}

		for _, inv := range f.Invoices {
			status, _ := domain.ParseInvoiceStatus(strings.ToUpper(inv.Status))
			ok, err := q.SeedInvoice(ctx, domain.Invoice{
				ID:         inv.ID,
				CustomerID: inv.CustomerID,
				Amount:     inv.Amount.Decimal,
				Currency:   domain.NormalizeCurrency(inv.Currency),
				IssuedAt:   inv.IssuedAt.Time,
				DueAt:      inv.DueAt.Time,
				Status:     status,
			})
			if err != nil {
				return fmt.Errorf("seed invoice %d: %w", inv.ID, err)
			}
			res.Invoices.add(ok)
		}

		for _, p := range f.Payments {
			ok, err := q.SeedPayment(ctx, domain.Payment{
				ID:        p.ID,
				InvoiceID: p.InvoiceID,
				Amount:    p.Amount.Decimal,
				PaidAt:    p.PaidAt.Time,
			})
			if err != nil {
				return fmt.Errorf("seed payment %d: %w", p.ID, err)
			}
			res.Payments.add(ok)
		}

		if err := q.SyncSequences(ctx); err != nil {
			return fmt.Errorf("sync sequences: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Validate checks every row against the same rules the API enforces.
func (f *File) Validate() error {
	verr := &domain.ValidationError{}
	for i, c := range f.Customers {
		if c.ID <= 0 {
			verr.Add(fmt.Sprintf("customers[%d].id", i), "must be a positive id")
		}
		if _, err := domain.NormalizeCustomerName(c.Name); err != nil {
			verr.Add(fmt.Sprintf("customers[%d].name", i), "must be 1..255 characters")
		}
	}

	for i, inv := range f.Invoices {
		field := fmt.Sprintf("invoices[%d]", i)
		if inv.ID <= 0 {
			verr.Add(field+".id", "must be a positive id")
		}
		if msg := domain.ValidateAmount(inv.Amount.Decimal); msg != "" {
			verr.Add(field+".amount", msg)
		}
		if len(domain.NormalizeCurrency(inv.Currency)) != 3 {
			verr.Add(field+".currency", "must be a 3-letter code")
		}
		if inv.IssuedAt.IsZero() || inv.DueAt.IsZero() {
			verr.Add(field+".issued_at", "issued_at and due_at are required")
		} else if inv.DueAt.Before(inv.IssuedAt.Time) {
			verr.Add(field+".due_at", "must not be before issued_at")
		}
		if _, err := domain.ParseInvoiceStatus(strings.ToUpper(inv.Status)); err != nil {
			verr.Add(field+".status", err.Error())
		}
	}

	for i, p := range f.Payments {
		field := fmt.Sprintf("payments[%d]", i)
		if p.ID <= 0 {
			verr.Add(field+".id", "must be a positive id")
		}
		if msg := domain.ValidateAmount(p.Amount.Decimal); msg != "" {
			verr.Add(field+".amount", msg)
		}
		if p.PaidAt.IsZero() {
			verr.Add(field+".paid_at", "is required")
		}
	}
	return verr.Err()
}
