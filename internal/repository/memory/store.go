package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/set-night/invoicedesk/internal/domain"
	"github.com/set-night/invoicedesk/internal/repository"
	"github.com/shopspring/decimal"
)

// Store is an in-process repository.Store. Transactions are serialized and
// rolled back by restoring a snapshot taken when they began. Writes made on
// the Store itself take the same lock, so a rollback never drops them.
type Store struct {
	*Queries
	txMu sync.Mutex
}

func NewStore() *Store {
	return &Store{Queries: newQueries()}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) WithinTx(ctx context.Context, fn func(q repository.Querier) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := s.Queries.snapshot()
	if err := fn(s.Queries); err != nil {
		s.Queries.restore(snap)
		return err
	}
	return nil
}

func locked[T any](s *Store, fn func() (T, error)) (T, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn()
}

func (s *Store) lockedErr(fn func() error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn()
}

func (s *Store) CreateCustomer(ctx context.Context, name string) (*domain.Customer, error) {
	return locked(s, func() (*domain.Customer, error) { return s.Queries.CreateCustomer(ctx, name) })
}

func (s *Store) CreateInvoice(ctx context.Context, params domain.InvoiceParams) (*domain.Invoice, error) {
	return locked(s, func() (*domain.Invoice, error) { return s.Queries.CreateInvoice(ctx, params) })
}

func (s *Store) UpdateInvoice(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	return locked(s, func() (*domain.Invoice, error) { return s.Queries.UpdateInvoice(ctx, inv) })
}

func (s *Store) UpdateInvoiceStatus(ctx context.Context, id int64, status domain.InvoiceStatus) error {
	return s.lockedErr(func() error { return s.Queries.UpdateInvoiceStatus(ctx, id, status) })
}

func (s *Store) DeleteInvoice(ctx context.Context, id int64) error {
	return s.lockedErr(func() error { return s.Queries.DeleteInvoice(ctx, id) })
}

func (s *Store) CreatePayment(ctx context.Context, invoiceID int64, amount decimal.Decimal, paidAt time.Time) (*domain.Payment, error) {
	return locked(s, func() (*domain.Payment, error) { return s.Queries.CreatePayment(ctx, invoiceID, amount, paidAt) })
}

func (s *Store) InsertEvent(ctx context.Context, evt domain.Event) (*domain.Event, error) {
	return locked(s, func() (*domain.Event, error) { return s.Queries.InsertEvent(ctx, evt) })
}

func (s *Store) MarkEventPublished(ctx context.Context, id int64, at time.Time) error {
	return s.lockedErr(func() error { return s.Queries.MarkEventPublished(ctx, id, at) })
}

func (s *Store) MarkEventFailed(ctx context.Context, id int64, reason string) error {
	return s.lockedErr(func() error { return s.Queries.MarkEventFailed(ctx, id, reason) })
}

func (s *Store) DeletePublishedEvents(ctx context.Context, before time.Time) (int64, error) {
	return locked(s, func() (int64, error) { return s.Queries.DeletePublishedEvents(ctx, before) })
}

func (s *Store) SeedCustomer(ctx context.Context, c domain.Customer) (bool, error) {
	return locked(s, func() (bool, error) { return s.Queries.SeedCustomer(ctx, c) })
}

func (s *Store) SeedInvoice(ctx context.Context, inv domain.Invoice) (bool, error) {
	return locked(s, func() (bool, error) { return s.Queries.SeedInvoice(ctx, inv) })
}

func (s *Store) SeedPayment(ctx context.Context, p domain.Payment) (bool, error) {
	return locked(s, func() (bool, error) { return s.Queries.SeedPayment(ctx, p) })
}

func (s *Store) SyncSequences(ctx context.Context) error {
	return s.lockedErr(func() error { return s.Queries.SyncSequences(ctx) })
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() {}

type state struct {
	customers map[int64]domain.Customer
	invoices  map[int64]domain.Invoice
	payments  map[int64]domain.Payment
	events    map[int64]domain.Event

	customerSeq int64
	invoiceSeq  int64
	paymentSeq  int64
	eventSeq    int64
}

func (st state) clone() state {
	cp := st
	cp.customers = maps.Clone(st.customers)
	cp.invoices = maps.Clone(st.invoices)
	cp.payments = maps.Clone(st.payments)
	cp.events = maps.Clone(st.events)
	return cp
}

type Queries struct {
	mu  sync.RWMutex
	st  state
	now func() time.Time
}

func newQueries() *Queries {
	return &Queries{
		st: state{
			customers: make(map[int64]domain.Customer),
			invoices:  make(map[int64]domain.Invoice),
			payments:  make(map[int64]domain.Payment),
			events:    make(map[int64]domain.Event),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the clock used for created_at and updated_at columns.
func (q *Queries) SetClock(now func() time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
}

func (q *Queries) snapshot() state {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.st.clone()
}

func (q *Queries) restore(st state) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.st = st
}

func (q *Queries) CreateCustomer(ctx context.Context, name string) (*domain.Customer, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.st.customerSeq++
	c := domain.Customer{ID: q.st.customerSeq, Name: name, CreatedAt: q.now()}
	q.st.customers[c.ID] = c
	return &c, nil
}

func (q *Queries) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	c, ok := q.st.customers[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", domain.ErrCustomerNotFound, id)
	}
	return &c, nil
}

func (q *Queries) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	customers := slices.Collect(maps.Values(q.st.customers))
	sort.Slice(customers, func(i, j int) bool { return customers[i].ID < customers[j].ID })
	return customers, nil
}

func (q *Queries) CreateInvoice(ctx context.Context, params domain.InvoiceParams) (*domain.Invoice, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.st.customers[params.CustomerID]; !ok {
		return nil, fmt.Errorf("create invoice: %w: id %d", domain.ErrCustomerNotFound, params.CustomerID)
	}

	now := q.now()
	q.st.invoiceSeq++
	inv := domain.Invoice{
		ID:         q.st.invoiceSeq,
		CustomerID: params.CustomerID,
		Amount:     params.Amount,
		Currency:   params.Currency,
		IssuedAt:   params.IssuedAt,
		DueAt:      params.DueAt,
		Status:     params.Status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	q.st.invoices[inv.ID] = inv
	return &inv, nil
}

func (q *Queries) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	inv, ok := q.st.invoices[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", domain.ErrInvoiceNotFound, id)
	}
	return &inv, nil
}

// GetInvoiceForUpdate relies on WithinTx serializing transactions.
func (q *Queries) GetInvoiceForUpdate(ctx context.Context, id int64) (*domain.Invoice, error) {
	return q.GetInvoice(ctx, id)
}

func (q *Queries) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var invoices []domain.Invoice
	for _, inv := range q.st.invoices {
		if filter.Match(&inv) {
			invoices = append(invoices, inv)
		}
	}
	sort.Slice(invoices, func(i, j int) bool {
		if !invoices[i].IssuedAt.Equal(invoices[j].IssuedAt) {
			return invoices[i].IssuedAt.After(invoices[j].IssuedAt)
		}
		return invoices[i].ID > invoices[j].ID
	})
	return invoices, nil
}

func (q *Queries) UpdateInvoice(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	cur, ok := q.st.invoices[inv.ID]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", domain.ErrInvoiceNotFound, inv.ID)
	}
	if _, ok := q.st.customers[inv.CustomerID]; !ok {
		return nil, fmt.Errorf("update invoice: %w: id %d", domain.ErrCustomerNotFound, inv.CustomerID)
	}
	cur.CustomerID = inv.CustomerID
	cur.Amount = inv.Amount
	cur.Currency = inv.Currency
	cur.IssuedAt = inv.IssuedAt
	cur.DueAt = inv.DueAt
	cur.UpdatedAt = q.now()
	q.st.invoices[cur.ID] = cur
	return &cur, nil
}

func (q *Queries) UpdateInvoiceStatus(ctx context.Context, id int64, status domain.InvoiceStatus) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	inv, ok := q.st.invoices[id]
	if !ok {
		return fmt.Errorf("%w: id %d", domain.ErrInvoiceNotFound, id)
	}
	inv.Status = status
	inv.UpdatedAt = q.now()
	q.st.invoices[id] = inv
	return nil
}

// DeleteInvoice removes the invoice and cascades to its payments.
func (q *Queries) DeleteInvoice(ctx context.Context, id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.st.invoices[id]; !ok {
		return fmt.Errorf("%w: id %d", domain.ErrInvoiceNotFound, id)
	}
	delete(q.st.invoices, id)
	for pid, p := range q.st.payments {
		if p.InvoiceID == id {
			delete(q.st.payments, pid)
		}
	}
	return nil
}

func (q *Queries) CreatePayment(ctx context.Context, invoiceID int64, amount decimal.Decimal, paidAt time.Time) (*domain.Payment, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.st.invoices[invoiceID]; !ok {
		return nil, fmt.Errorf("create payment: %w: id %d", domain.ErrInvoiceNotFound, invoiceID)
	}
	q.st.paymentSeq++
	p := domain.Payment{
		ID:        q.st.paymentSeq,
		InvoiceID: invoiceID,
		Amount:    amount,
		PaidAt:    paidAt,
		CreatedAt: q.now(),
	}
	q.st.payments[p.ID] = p
	return &p, nil
}

func (q *Queries) ListPayments(ctx context.Context, invoiceIDs []int64) ([]domain.Payment, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var payments []domain.Payment
	for _, p := range q.st.payments {
		if slices.Contains(invoiceIDs, p.InvoiceID) {
			payments = append(payments, p)
		}
	}
	sort.Slice(payments, func(i, j int) bool {
		if !payments[i].PaidAt.Equal(payments[j].PaidAt) {
			return payments[i].PaidAt.Before(payments[j].PaidAt)
		}
		return payments[i].ID < payments[j].ID
	})
	return payments, nil
}

func (q *Queries) SumPayments(ctx context.Context, invoiceID int64) (decimal.Decimal, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	total := decimal.Zero
	for _, p := range q.st.payments {
		if p.InvoiceID == invoiceID {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (q *Queries) InsertEvent(ctx context.Context, evt domain.Event) (*domain.Event, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.st.eventSeq++
	evt.ID = q.st.eventSeq
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = q.now()
	}
	q.st.events[evt.ID] = evt
	return &evt, nil
}

func (q *Queries) ListUnpublishedEvents(ctx context.Context, limit, maxAttempts int) ([]domain.Event, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var events []domain.Event
	for _, evt := range q.st.events {
		if evt.PublishedAt == nil && evt.Attempts < maxAttempts {
			events = append(events, evt)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (q *Queries) MarkEventPublished(ctx context.Context, id int64, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	evt, ok := q.st.events[id]
	if !ok {
		return nil
	}
	evt.PublishedAt = &at
	evt.LastError = ""
	q.st.events[id] = evt
	return nil
}

func (q *Queries) MarkEventFailed(ctx context.Context, id int64, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	evt, ok := q.st.events[id]
	if !ok {
		return nil
	}
	evt.Attempts++
	evt.LastError = reason
	q.st.events[id] = evt
	return nil
}

func (q *Queries) DeletePublishedEvents(ctx context.Context, before time.Time) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var n int64
	for id, evt := range q.st.events {
		if evt.PublishedAt != nil && evt.PublishedAt.Before(before) {
			delete(q.st.events, id)
			n++
		}
	}
	return n, nil
}

// Events returns every stored outbox event in id order.
func (q *Queries) Events() []domain.Event {
	q.mu.RLock()
	defer q.mu.RUnlock()

	events := slices.Collect(maps.Values(q.st.events))
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events
}

func (q *Queries) SeedCustomer(ctx context.Context, c domain.Customer) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.st.customers[c.ID]; exists {
		return false, nil
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = q.now()
	}
	q.st.customers[c.ID] = c
	return true, nil
}

func (q *Queries) SeedInvoice(ctx context.Context, inv domain.Invoice) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.st.invoices[inv.ID]; exists {
		return false, nil
	}
	if _, ok := q.st.customers[inv.CustomerID]; !ok {
		return false, fmt.Errorf("seed invoice %d: %w: id %d", inv.ID, domain.ErrCustomerNotFound, inv.CustomerID)
	}
	now := q.now()
	inv.Payments = nil
	inv.CreatedAt, inv.UpdatedAt = now, now
	q.st.invoices[inv.ID] = inv
	return true, nil
}

func (q *Queries) SeedPayment(ctx context.Context, p domain.Payment) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.st.payments[p.ID]; exists {
		return false, nil
	}
	if _, ok := q.st.invoices[p.InvoiceID]; !ok {
		return false, fmt.Errorf("seed payment %d: %w: id %d", p.ID, domain.ErrInvoiceNotFound, p.InvoiceID)
	}
	p.CreatedAt = q.now()
	q.st.payments[p.ID] = p
	return true, nil
}

func (q *Queries) SyncSequences(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for id := range q.st.customers {
		q.st.customerSeq = max(q.st.customerSeq, id)
	}
	for id := range q.st.invoices {
		q.st.invoiceSeq = max(q.st.invoiceSeq, id)
	}
	for id := range q.st.payments {
		q.st.paymentSeq = max(q.st.paymentSeq, id)
	}
	return nil
}
