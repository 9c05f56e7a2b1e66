package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-sort/internal/cli"
)

func recomputeCmd() *cobra.Command {
	var (
		forceMain  string
		checkpoint bool
	)

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Re-categorize every transaction",
		Long: `Re-classify all stored transactions in batches. Manually categorized
transactions are skipped. With --force-main, transactions that match the
given category take it as their main category.

Progress is saved per transaction, so an interrupted run can simply be
started again. With --checkpoint, the database is snapshotted first so the
run can be undone with 'spice checkpoint restore'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx := interrupts.HandleInterrupts(cmd.Context(), "Run 'spice recompute' again to finish.")

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			force, err := optionalCategoryID(ctx, a.store, forceMain)
			if err != nil {
				return err
			}

			if checkpoint {
				manager, err := a.store.NewCheckpointManager()
				if err != nil {
					return fmt.Errorf("failed to create checkpoint manager: %w", err)
				}
				info, err := manager.AutoCheckpoint(ctx, "recompute")
				if err != nil {
					return fmt.Errorf("failed to create checkpoint: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Created checkpoint "+info.ID))
			}

			progress := cli.NewSweepProgress(cmd.ErrOrStderr())
			result, err := a.admin.RecomputeAll(ctx, force, progress.Func())
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("recompute failed: %w", err)
			}
			progress.Finish()

			return cli.RenderSweepResult(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&forceMain, "force-main", "", "category id or name to make main wherever it matches")
	cmd.Flags().BoolVar(&checkpoint, "checkpoint", false, "snapshot the database before re-classifying")

	return cmd
}
