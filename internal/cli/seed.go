package cli

import (
	"fmt"

	"github.com/set-night/invoicedesk/internal/config"
	"github.com/set-night/invoicedesk/internal/seed"
	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [file]",
		Short: "Load customers, invoices and payments from a JSON or YAML file",
		Long:  "Insert fixture rows with fixed ids. Rows whose id already exists are skipped, so seeding twice is safe.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultSeedFile
			if len(args) > 0 {
				path = args[0]
			}

			f, err := seed.Load(path)
			if err != nil {
				return err
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

			res, err := seed.Apply(cmd.Context(), store, f)
			if err != nil {
				return fmt.Errorf("seeding failed: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), RenderSeedResult(path, res))
			return nil
		},
	}
}
