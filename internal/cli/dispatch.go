package cli

import (
	"fmt"

	"github.com/set-night/invoicedesk/internal/outbox"
	"github.com/spf13/cobra"
)

func newDispatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch",
		Short: "Publish one batch of pending outbox events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			publisher, closePublisher, err := buildPublisher(cfg)
			if err != nil {
				return err
			}
			defer closePublisher()

			d := outbox.NewDispatcher(store, publisher, cfg.OutboxPollInterval, cfg.OutboxBatchSize, cfg.OutboxMaxAttempts)
			n, err := d.DispatchOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), passStyle.Render("✓")+" dispatched "+valueStyle.Render(fmt.Sprint(n))+" events")
			return nil
		},
	}
}
