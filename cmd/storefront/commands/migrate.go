package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"storefront/internal/client"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the tables of a SQL store",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if !a.cfg.SQL() {
			return errors.New("migrate needs a SQL STORE_DRIVER; the hosted schema is managed by the provider")
		}
		return migrate(cmd.Context(), a)
	},
}

func migrate(ctx context.Context, a *app) error {
	if err := client.Migrate(a.db.WithContext(ctx)); err != nil {
		return err
	}
	a.log.WithField("driver", a.cfg.Store.Driver).Info("schema migrated")
	return nil
}
