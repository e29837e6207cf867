// Package main provides the entry point for the job-alerts CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "job_alerts",
	Short: "France Travail job alerts",
	Long: "job_alerts fetches France Travail offers, scores them against a robotics profile, " +
		"tracks applications with follow-up reminders and mines distinctive vocabulary.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configPath string
	dbURL      string
	dbDriver   string
	simulate   bool
	logLevel   string
	logJSON    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config (default job_alerts.yaml or $JOB_ALERTS_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database URL or SQLite path (overrides DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "driver", "", "Database driver: sqlite or postgres")
	rootCmd.PersistentFlags().BoolVar(&simulate, "simulate", false, "Use the simulated source instead of the API")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log as JSON")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
