package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-sort/internal/cli"
	"github.com/Veraticus/spice-sort/internal/config"
	"github.com/Veraticus/spice-sort/internal/engine"
)

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <transaction-id>",
		Short: "Show how a transaction would be categorized",
		Long: `Score a transaction against every category and print the decision, its
justification, and the candidate scores. Nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			engineCfg, err := config.LoadEngineConfig()
			if err != nil {
				return err
			}
			eng := engine.NewWithConfig(store, engineCfg)

			txn, err := store.GetTransactionByID(ctx, args[0])
			if err != nil {
				return transactionError(args[0], err)
			}

			result, err := eng.Evaluate(ctx, *txn)
			if err != nil {
				return fmt.Errorf("failed to classify transaction: %w", err)
			}
			catalog, err := eng.Catalog(ctx)
			if err != nil {
				return err
			}

			return cli.RenderDecision(cmd.OutOrStdout(), *txn, result, catalog)
		},
	}
}

func reclassifyCmd() *cobra.Command {
	var forceMain string

	cmd := &cobra.Command{
		Use:   "reclassify <transaction-id>",
		Short: "Re-categorize one transaction",
		Long: `Re-derive a transaction's categories and save them. Manually categorized
transactions are left alone. An existing main category only changes when
--force-main names a category the transaction matches.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			force, err := optionalCategoryID(ctx, a.store, forceMain)
			if err != nil {
				return err
			}

			changed, err := a.engine.ReclassifyByID(ctx, args[0], force)
			if err != nil {
				return transactionError(args[0], err)
			}

			out := cmd.OutOrStdout()
			if !changed {
				fmt.Fprintln(out, cli.FormatInfo("No changes"))
			} else {
				fmt.Fprintln(out, cli.FormatSuccess("Updated categories for "+args[0]))
			}

			links, err := a.store.GetLinks(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get links: %w", err)
			}
			catalog, err := a.engine.Catalog(ctx)
			if err != nil {
				return err
			}
			return cli.RenderLinks(out, links, catalog)
		},
	}

	cmd.Flags().StringVar(&forceMain, "force-main", "", "category id or name to make main when it matches")

	return cmd
}
