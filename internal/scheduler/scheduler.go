// Package scheduler runs the periodic jobs: the overdue sweep and outbox
// pruning. Replicas coordinate through run locks in the kv store so each
// window runs once.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/set-night/invoicedesk/internal/config"
	"github.com/set-night/invoicedesk/internal/kv"
	"github.com/set-night/invoicedesk/internal/outbox"
	"github.com/set-night/invoicedesk/internal/service"
)

const jobTimeout = 30 * time.Minute

type Scheduler struct {
	cron       *cron.Cron
	invoices   *service.InvoiceService
	dispatcher *outbox.Dispatcher
	locks      kv.Store
	retention  time.Duration
	now        func() time.Time
}

// New registers the jobs. An invalid cron expression is an error.
func New(cfg *config.Config, invoices *service.InvoiceService, dispatcher *outbox.Dispatcher, locks kv.Store) (*Scheduler, error) {
	logger := cronLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		invoices:   invoices,
		dispatcher: dispatcher,
		locks:      locks,
		retention:  cfg.OutboxRetention,
		now:        func() time.Time { return time.Now().UTC() },
	}

	if _, err := s.cron.AddFunc(cfg.OverdueSchedule, s.runJob("overdue", func(ctx context.Context) error {
		n, err := s.SweepOverdue(ctx)
		if err == nil && n > 0 {
			slog.Info("overdue sweep finished", "recorded", n)
		}
		return err
	})); err != nil {
		return nil, fmt.Errorf("overdue schedule %q: %w", cfg.OverdueSchedule, err)
	}

	if _, err := s.cron.AddFunc(cfg.PruneSchedule, s.runJob("prune", func(ctx context.Context) error {
		n, err := s.PruneOutbox(ctx)
		if err == nil && n > 0 {
			slog.Info("outbox pruned", "deleted", n)
		}
		return err
	})); err != nil {
		return nil, fmt.Errorf("prune schedule %q: %w", cfg.PruneSchedule, err)
	}

	return s, nil
}

func (s *Scheduler) runJob(name string, fn func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			slog.Error("scheduled job failed", "job", name, "error", err)
		}
	}
}

func (s *Scheduler) Start() {
	slog.Info("scheduler started", "jobs", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop prevents new runs and returns a context done when running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// acquire takes a run lock. A kv failure skips the run rather than risking
// duplicate work across replicas.
func (s *Scheduler) acquire(ctx context.Context, key string, ttl time.Duration) bool {
	locked, err := s.locks.SetNX(ctx, key, []byte("running"), ttl)
	if err != nil {
		slog.Error("scheduler lock failed", "key", key, "error", err)
		return false
	}
	if !locked {
		slog.Debug("skip: lock held by another instance", "key", key)
	}
	return locked
}

// SweepOverdue records one invoice.overdue event per past-due PENDING invoice
// per day and returns how many it recorded.
func (s *Scheduler) SweepOverdue(ctx context.Context) (int, error) {
	now := s.now()
	runKey := "overdue_run_lock:" + now.Format("2006-01-02T15:04")
	if !s.acquire(ctx, runKey, config.OverdueRunLockTTL) {
		return 0, nil
	}

	overdue, err := s.invoices.ListOverdue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list overdue invoices: %w", err)
	}

	day := now.Format(time.DateOnly)
	recorded := 0
	for _, inv := range overdue {
		dedupeKey := fmt.Sprintf("overdue:%d:%s", inv.ID, day)
		isNew, err := s.locks.SetNX(ctx, dedupeKey, []byte("true"), config.OverdueDedupeTTL)
		if err != nil {
			slog.Error("overdue dedupe failed", "invoice_id", inv.ID, "error", err)
			continue
		}
		if !isNew {
			continue
		}

		ok, err := s.invoices.RecordOverdue(ctx, inv.ID, now)
		if err != nil || !ok {
			// Allow a later run to retry.
			if delErr := s.locks.Del(ctx, dedupeKey); delErr != nil {
				slog.Warn("overdue dedupe release failed", "invoice_id", inv.ID, "error", delErr)
			}
		}
		if err != nil {
			slog.Error("record overdue failed", "invoice_id", inv.ID, "error", err)
			continue
		}
		if ok {
			recorded++
		}
	}
	return recorded, nil
}

// PruneOutbox deletes published events older than the retention period.
func (s *Scheduler) PruneOutbox(ctx context.Context) (int64, error) {
	runKey := "prune_run_lock:" + s.now().Format(time.DateOnly)
	if !s.acquire(ctx, runKey, config.PruneRunLockTTL) {
		return 0, nil
	}
	return s.dispatcher.Prune(ctx, s.retention)
}
