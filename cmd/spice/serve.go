package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-sort/internal/common"
	"github.com/Veraticus/spice-sort/internal/config"
	"github.com/Veraticus/spice-sort/internal/jobs"
)

func serveCmd() *cobra.Command {
	var (
		interval     time.Duration
		sweepOnStart bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run background re-classification sweeps",
		Long: `Run the sweep queue until interrupted. With sweep.interval set (or --interval),
every transaction is re-classified on that schedule.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			sweepCfg, err := config.LoadSweepConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("interval") {
				if interval < 0 || (interval > 0 && interval < time.Second) {
					return fmt.Errorf("%w: --interval must be 0 or at least 1s", common.ErrInvalidConfig)
				}
				sweepCfg.Interval = interval
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case jobErr := <-a.queue.Errors():
						common.LogError(ctx, jobErr.Err, "Sweep failed", common.Fields{
							"job_id":   jobErr.Job.ID,
							"attempts": jobErr.Job.Attempts,
						})
					}
				}
			}()

			scheduler := jobs.NewScheduler(time.Local)
			if sweepCfg.Interval > 0 {
				if _, err := scheduler.ScheduleSweeps(ctx, sweepCfg.Interval, a.queue); err != nil {
					return fmt.Errorf("failed to schedule sweeps: %w", err)
				}
			}
			scheduler.Start()
			defer scheduler.Stop()

			if sweepOnStart {
				if _, err := a.admin.TriggerRecompute(ctx, nil, "startup"); err != nil {
					return err
				}
			}

			slog.Info("Serving", "interval", sweepCfg.Interval, "scheduled", scheduler.Entries())
			<-ctx.Done()
			slog.Info("Shutting down")
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "time between scheduled sweeps (0 disables them)")
	cmd.Flags().BoolVar(&sweepOnStart, "sweep-on-start", false, "queue a full sweep immediately")

	return cmd
}
