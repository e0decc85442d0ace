package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/set-night/invoicedesk/internal/domain"
	"github.com/set-night/invoicedesk/internal/service"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var (
		asOfFlag   string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize invoices per currency and status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf := time.Now().UTC()
			if asOfFlag != "" {
				t, _, err := domain.ParseTimestamp(asOfFlag)
				if err != nil {
					return fmt.Errorf("--as-of: %w", err)
				}
				asOf = t
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			summary, err := service.NewReportService(store).Summary(cmd.Context(), asOf)
			if err != nil {
				return fmt.Errorf("build report: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			fmt.Fprint(cmd.OutOrStdout(), RenderReport(summary))
			return nil
		},
	}

	cmd.Flags().StringVar(&asOfFlag, "as-of", "", "report date (RFC 3339 or YYYY-MM-DD, default now)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
