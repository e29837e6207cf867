package main

import (
	"github.com/spf13/cobra"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create or migrate the database",
	Long:  "Open the configured database and apply every pending migration. Safe to run repeatedly.",
	Args:  cobra.NoArgs,
	RunE:  runInitDB,
}

func init() {
	rootCmd.AddCommand(initDBCmd)
}

func runInitDB(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}

	db, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	a.printf("Database ready: %s (%s)\n", a.cfg.Database.URL, a.cfg.Database.Driver)
	return nil
}
