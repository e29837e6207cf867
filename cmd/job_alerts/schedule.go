package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the daily job on a cron schedule until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runSchedule,
}

var (
	scheduleCron   string
	scheduleRunNow bool
	scheduleDryRun bool
)

func init() {
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", `Cron expression (default scheduler.cron, "0 8 * * *")`)
	scheduleCmd.Flags().BoolVar(&scheduleRunNow, "run-now", false, "Run once immediately before waiting for the schedule")
	scheduleCmd.Flags().BoolVar(&scheduleDryRun, "dry-run", false, "Report without marking postings as notified")

	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}

	spec := a.cfg.Scheduler.Cron
	if cmd.Flags().Changed("cron") {
		spec = scheduleCron
	}
	loc := time.Local
	if tz := a.cfg.Scheduler.Timezone; tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			return fmt.Errorf("invalid scheduler timezone %q: %w", tz, err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	job := func() {
		if err := dailyRun(ctx, a, db, scheduleDryRun); err != nil {
			a.log.Errorw("Daily run failed", "error", err)
		}
	}

	c := cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	id, err := c.AddFunc(spec, job)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}

	if scheduleRunNow {
		job()
	}

	c.Start()
	a.log.Infow("Scheduler started", "cron", spec, "timezone", loc.String(), "next", c.Entry(id).Schedule.Next(time.Now().In(loc)))

	<-ctx.Done()
	a.log.Infow("Stopping scheduler, waiting for a running job")
	<-c.Stop().Done()
	return nil
}
