package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-shipment-tracker/internal/jobs"
	"github.com/tbourn/go-shipment-tracker/internal/repo"
)

// MigrateCmd creates or updates the schema and exits.
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openDB()
			if err != nil {
				return err
			}
			defer repo.Close(db)

			if err := repo.AutoMigrate(db); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s migrate %s: %v\n", errMark("✗"), cfg.DB.Driver, err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema up to date %s\n", okMark("✓"), dim("("+cfg.DB.Driver+")"))
			return nil
		},
	}
}

// SweepCmd deletes expired idempotency keys once, outside the server's
// schedule.
func SweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired idempotency keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openDB()
			if err != nil {
				return err
			}
			defer repo.Close(db)

			n, err := (&jobs.IdempotencySweeper{DB: db}).Sweep(cmd.Context())
			if err != nil {
				return err
			}
			mark := okMark("✓")
			if n == 0 {
				mark = dim("-")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s removed %d expired idempotency keys\n", mark, n)
			return nil
		},
	}
}
