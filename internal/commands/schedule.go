package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"jobfeed/internal/logger"
	"jobfeed/internal/service"
)

// shutdownGrace bounds how long schedule waits for an in-flight run on exit.
const shutdownGrace = 30 * time.Second

func newScheduleCmd(c *cli) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on a cron schedule until interrupted",
		Long: `Run the pipeline on schedule.cron (five cron fields or a descriptor such as
"@daily" or "@every 6h"). When schedule.watch_file is set, writing that file
also triggers a run. Runs never overlap; a trigger that fires during a run is
skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := c.openService("")
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := svc.StartSchedule(ctx, c.cfg.Schedule.Cron); err != nil {
				return err
			}
			defer svc.Stop()

			if c.cfg.Schedule.WatchFile != "" {
				if err := svc.WatchFile(ctx, c.cfg.Schedule.WatchFile); err != nil {
					return err
				}
			}

			if runNow {
				if _, err := svc.RunOnce(ctx, service.TriggerManual); err != nil {
					c.log.Errorw("Initial run failed", logger.FieldError, err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %q; press Ctrl+C to stop\n", c.cfg.Schedule.Cron)
			<-ctx.Done()

			c.log.Infow("Shutting down, waiting for in-flight run")
			svc.Stop()
			waitCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			svc.WaitRunning(waitCtx)
			return nil
		},
	}
	cmd.Flags().BoolVar(&runNow, "now", false, "Also run once immediately")
	return cmd
}
