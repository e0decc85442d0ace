package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/set-night/invoicedesk/internal/domain"
	"github.com/set-night/invoicedesk/internal/repository"
	"github.com/shopspring/decimal"
)

type StatusTotal struct {
	Status domain.InvoiceStatus `json:"status"`
	Count  int                  `json:"count"`
	Amount decimal.Decimal      `json:"amount"`
}

type CurrencySummary struct {
	Currency     string          `json:"currency"`
	ByStatus     []StatusTotal   `json:"by_status"`
	Collected    decimal.Decimal `json:"collected"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	OverdueCount int             `json:"overdue_count"`
	Overdue      decimal.Decimal `json:"overdue"`
}

// Summary aggregates every invoice by currency as of a point in time.
type Summary struct {
	AsOf       time.Time         `json:"as_of"`
	Invoices   int               `json:"invoices"`
	Currencies []CurrencySummary `json:"currencies"`
}

type ReportService struct {
	store repository.Store
}

func NewReportService(store repository.Store) *ReportService {
	return &ReportService{store: store}
}

func (s *ReportService) Summary(ctx context.Context, asOf time.Time) (*Summary, error) {
	invoices, err := s.store.ListInvoices(ctx, domain.InvoiceFilter{})
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	if err := repository.AttachPayments(ctx, s.store, invoices); err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	return Summarize(invoices, asOf), nil
}

// Summarize computes per-currency totals. Outstanding and overdue amounts are
// balances due on PENDING invoices.
func Summarize(invoices []domain.Invoice, asOf time.Time) *Summary {
	byCurrency := make(map[string]*CurrencySummary)
	statusIndex := make(map[domain.InvoiceStatus]int)
	for i, st := range domain.AllInvoiceStatuses() {
		statusIndex[st] = i
	}

	for i := range invoices {
		inv := &invoices[i]
		cs, ok := byCurrency[inv.Currency]
		if !ok {
			cs = &CurrencySummary{Currency: inv.Currency}
			for _, st := range domain.AllInvoiceStatuses() {
				cs.ByStatus = append(cs.ByStatus, StatusTotal{Status: st})
			}
			byCurrency[inv.Currency] = cs
		}

		if idx, ok := statusIndex[inv.Status]; ok {
			cs.ByStatus[idx].Count++
			cs.ByStatus[idx].Amount = cs.ByStatus[idx].Amount.Add(inv.Amount)
		}
		cs.Collected = cs.Collected.Add(inv.AmountPaid())

		if inv.Status == domain.InvoiceStatusPending {
			due := inv.BalanceDue()
			cs.Outstanding = cs.Outstanding.Add(due)
			if inv.IsOverdue(asOf) {
				cs.OverdueCount++
				cs.Overdue = cs.Overdue.Add(due)
			}
		}
	}

	summary := &Summary{AsOf: asOf, Invoices: len(invoices), Currencies: []CurrencySummary{}}
	for _, cs := range byCurrency {
		summary.Currencies = append(summary.Currencies, *cs)
	}
	sort.Slice(summary.Currencies, func(i, j int) bool {
		return summary.Currencies[i].Currency < summary.Currencies[j].Currency
	})
	return summary
}
