// Package cmd implements the usagectl commands.
package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"facility-usage-backend/config"
	"facility-usage-backend/internal/app"
	"facility-usage-backend/internal/db"
)

// env is the state shared by the subcommands of one invocation.
type env struct {
	configPath string
	cfg        *config.Config
	db         *gorm.DB
	services   *app.Services
}

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./config/config.yaml"
}

// NewRootCmd builds the usagectl command tree.
func NewRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:          "usagectl",
		Short:        "Generate facility usage reports and maintain facility metadata",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.open(!fromFile(cmd))
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return e.close()
		},
	}
	root.PersistentFlags().StringVar(&e.configPath, "config", defaultConfigPath(), "path to the configuration file")

	root.AddCommand(newReportCmd(e), newLatestCmd(e), newFacilityCmd(e))
	return root
}

// fromFile reports whether the command reads its samples from a file
// instead of the database.
func fromFile(cmd *cobra.Command) bool {
	f := cmd.Flags().Lookup(fromFileFlag)
	return f != nil && f.Changed
}

func (e *env) open(withDB bool) error {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", e.configPath, err)
	}
	if err := cfg.Log.SetupLogging(); err != nil {
		return err
	}
	// stdout carries command output.
	log.SetOutput(os.Stderr)
	e.cfg = cfg
	if !withDB {
		return nil
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return err
	}
	e.db = gormDB
	e.services = app.New(cfg, gormDB)
	return nil
}

func (e *env) close() error {
	if e.db == nil {
		return nil
	}
	sqlDB, err := e.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		log.WithError(err).Warn("failed to close database")
	}
	return nil
}
