package main

import (
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/travel-storefront/internal/adapters/crdb"
	"github.com/spf13/cobra"
)

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the relational schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnv(flags)
			if err != nil {
				return err
			}
			pool, err := pgxpool.New(cmd.Context(), cfg.CRDBDSN)
			if err != nil {
				return errors.Wrap(err, "connect to crdb")
			}
			defer pool.Close()

			if err := crdb.NewRepository(pool).Migrate(cmd.Context()); err != nil {
				return err
			}
			logger.Info("schema applied")
			return nil
		},
	}
}
