package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"storefront/internal/client"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the demo categories and products into an empty catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.cfg.SQL() {
			if err := migrate(ctx, a); err != nil {
				return err
			}
		} else {
			ctx = client.WithServiceRole(ctx)
		}

		if err := a.cats.Seed(ctx); err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
		if err := a.products.Seed(ctx); err != nil {
			return fmt.Errorf("seed products: %w", err)
		}
		if err := a.catalog.Invalidate(ctx); err != nil {
			a.log.WithError(err).Warn("invalidate catalog cache")
		}

		a.log.Info("catalog seeded")
		return nil
	},
}
