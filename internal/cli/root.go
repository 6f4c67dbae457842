// Package cli implements the tracker command line: the API server plus a few
// operator commands that work directly against the datastore.
package cli

import (
	"errors"
	"io/fs"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-shipment-tracker/internal/config"
	"github.com/tbourn/go-shipment-tracker/internal/repo"
)

// RootCmd returns the top-level command with every subcommand attached.
func RootCmd(version string) *cobra.Command {
	var envFile string
	var noColor bool

	root := &cobra.Command{
		Use:     "tracker",
		Short:   "Shipment tracking service",
		Version: version,
		Long: `tracker runs the shipment tracking API and offers operator commands
for schema migration, tracking lookups and maintenance.

Configuration is read from the environment. A .env file in the working
directory is loaded first when present; real environment variables win.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnv(envFile); err != nil {
				return err
			}
			if noColor || os.Getenv("NO_COLOR") != "" {
				color.NoColor = true
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading configuration")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	root.AddCommand(ServeCmd(version))
	root.AddCommand(MigrateCmd())
	root.AddCommand(TrackCmd())
	root.AddCommand(GenIDCmd())
	root.AddCommand(SweepCmd())
	return root
}

// loadEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// openDB loads configuration and opens the configured datastore.
func openDB() (config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, err
	}
	db, err := repo.Open(cfg.DB)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, db, nil
}

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	warnMark = color.New(color.FgYellow).SprintFunc()
	errMark  = color.New(color.FgRed).SprintFunc()
	dim      = color.New(color.Faint).SprintFunc()
	bold     = color.New(color.Bold).SprintFunc()
)
