package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-sort/internal/cli"
)

func overridesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overrides",
		Short: "Review manual corrections",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "patterns",
		Short: "Show which automatic categories users correct most often",
		Long: `Group manual overrides by the category the engine chose and the category
the user picked instead. Frequent pairs point at keywords worth adding.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			patterns, err := store.GetOverridePatterns(ctx)
			if err != nil {
				return fmt.Errorf("failed to get override patterns: %w", err)
			}
			return cli.RenderOverridePatterns(cmd.OutOrStdout(), patterns)
		},
	})

	return cmd
}

func auditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit <transaction-id>",
		Short: "Show the categorization history of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if _, err := store.GetTransactionByID(ctx, args[0]); err != nil {
				return transactionError(args[0], err)
			}

			records, err := store.GetAuditRecords(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get audit records: %w", err)
			}
			overrides, err := store.GetOverrideRecords(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get override records: %w", err)
			}
			categories, err := store.GetCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			return cli.RenderAuditTrail(cmd.OutOrStdout(), records, overrides, categoryNames(categories))
		},
	}
}
