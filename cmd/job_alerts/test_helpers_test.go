package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

const testConfig = `api:
  simulate: true
search:
  keywords: []
  department: ""
  sweep:
    - [ros2, robotique]
    - [comptable]
pipeline:
  page_delay: 0s
  relevance_gate: false
log:
  level: error
`

// newWorkspace writes a config that uses the built-in sample and a fresh SQLite file,
// and isolates the environment overrides.
func newWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "job_alerts.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(testConfig), 0o600))

	t.Setenv("FT_API_SIMULATE", "1")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", filepath.Join(dir, "jobs.db"))
	t.Setenv("JOB_ALERTS_CONFIG", "")
	t.Setenv("FT_CLIENT_ID", "")
	t.Setenv("FT_CLIENT_SECRET", "")
	t.Setenv("DEFAULT_DEPT", "")
	t.Setenv("DEFAULT_KEYWORDS", "")
	t.Setenv("DEFAULT_RADIUS_KM", "")
	t.Setenv("BASE_LAT", "")
	t.Setenv("BASE_LON", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_JSON", "0")
	return cfgPath
}

// execute runs the root command in-process with fresh flag values.
func execute(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--config", cfgPath))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustExecute(t *testing.T, cfgPath string, args ...string) string {
	t.Helper()
	out, err := execute(t, cfgPath, args...)
	require.NoError(t, err, out)
	return out
}

// resetFlags restores defaults left behind by a previous invocation.
func resetFlags(cmd *cobra.Command) {
	for _, fs := range []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags()} {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
