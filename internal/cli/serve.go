package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/set-night/invoicedesk/internal/config"
	"github.com/set-night/invoicedesk/internal/handler"
	"github.com/set-night/invoicedesk/internal/outbox"
	"github.com/set-night/invoicedesk/internal/scheduler"
	"github.com/set-night/invoicedesk/internal/service"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		addr           string
		skipMigrations bool
		noWorkers      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, outbox dispatcher and scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTPAddr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := openStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			if !skipMigrations && cfg.DatabaseDriver != config.DriverMemory {
				if _, err := migrate(cfg); err != nil {
					return err
				}
			}

			kvStore, err := openKV(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open kv store: %w", err)
			}
			defer kvStore.Close()

			invoiceService := service.NewInvoiceService(store)
			h := handler.New(handler.Deps{
				Cfg:             cfg,
				Store:           store,
				KV:              kvStore,
				CustomerService: service.NewCustomerService(store),
				InvoiceService:  invoiceService,
				PaymentService:  service.NewPaymentService(store),
			})

			if !noWorkers {
				publisher, closePublisher, err := buildPublisher(cfg)
				if err != nil {
					return err
				}
				defer closePublisher()

				dispatcher := outbox.NewDispatcher(store, publisher, cfg.OutboxPollInterval, cfg.OutboxBatchSize, cfg.OutboxMaxAttempts)
				dispatched := make(chan struct{})
				go func() {
					defer close(dispatched)
					dispatcher.Run(ctx)
				}()
				// Runs before closePublisher and store.Close.
				defer func() {
					stop()
					<-dispatched
				}()

				sched, err := scheduler.New(cfg, invoiceService, dispatcher, kvStore)
				if err != nil {
					return err
				}
				sched.Start()
				defer func() { <-sched.Stop().Done() }()
			}

			srv := h.Server()
			errCh := make(chan error, 1)
			go func() {
				slog.Info("http server listening", "addr", srv.Addr, "driver", cfg.DatabaseDriver)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case <-ctx.Done():
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
			}

			slog.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("http shutdown: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply migrations on start")
	cmd.Flags().BoolVar(&noWorkers, "no-workers", false, "serve HTTP only, without outbox dispatcher and scheduler")
	return cmd
}
