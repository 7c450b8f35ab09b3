package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dailynews/pkg/logger"
	"dailynews/pkg/schedule"
	"dailynews/pkg/scraper"
	"dailynews/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	cronExpr      string
	runOnStart    bool
	notifications bool
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on a cron schedule",
	Long: `Keep running and start a pipeline run on every activation of the cron
expression (schedule.cron in the config, "0 7 * * *" by default). A run
that is still going when the next activation comes is skipped, not queued.`,
	Example: `  dailynews schedule
  dailynews schedule --cron "30 6,18 * * *" --run-now`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVar(&cronExpr, "cron", "", "cron expression (default from config)")
	scheduleCmd.Flags().BoolVar(&runOnStart, "run-now", false, "run once immediately before waiting")
	scheduleCmd.Flags().BoolVar(&notifications, "notifications", false, "send a desktop notification after each run")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	extra := map[string]interface{}{}
	if cronExpr != "" {
		extra["cron"] = cronExpr
	}
	cfg, err := loadConfig(cmd, extra)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, closeBrowser, err := openPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBrowser()

	var notifier *ui.Notifier
	if notifications {
		notifier = ui.NewNotifier()
	} else {
		notifier = ui.NewNotifierWithSender(nil)
	}
	progress := ui.NewProgress()

	job := func(ctx context.Context) {
		report, err := s.Run(ctx, scraper.Options{
			Force:    cfg.Schedule.Force,
			Progress: progress.Print,
		})
		if err != nil {
			logger.WithError(err).Error("Scheduled run failed")
			notifier.SendError("dailynews", err.Error())
			return
		}
		notifier.SendSuccess("dailynews", fmt.Sprintf("%d articles fetched (%d new links)", report.Fetch.Fetched, report.Diff.NewCount))
	}

	sched, err := schedule.New(cfg.Schedule.Cron, job, schedule.Options{
		RunOnStart: runOnStart || cfg.Schedule.RunOnStart,
		Logger:     logger.GetLogger(),
	})
	if err != nil {
		return err
	}

	ui.PrintLogo()
	ui.PrintInfo("Schedule", cfg.Schedule.Cron)
	return sched.Run(ctx)
}
