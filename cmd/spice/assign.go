package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/spice-sort/internal/cli"
	"github.com/Veraticus/spice-sort/internal/config"
	"github.com/Veraticus/spice-sort/internal/model"
	"github.com/Veraticus/spice-sort/internal/tui"
	"github.com/Veraticus/spice-sort/internal/tui/themes"
)

type assignOptions struct {
	category string
	user     string
	reason   string
	parent   string
	keywords []string
	create   bool
	attach   bool
}

func assignCmd() *cobra.Command {
	var opts assignOptions

	cmd := &cobra.Command{
		Use:   "assign <transaction-id>",
		Short: "Manually categorize a transaction",
		Long: `Make a category the main category of a transaction. Manual assignments are
never changed by automatic re-classification, and every change of main
category is recorded for later review with 'spice overrides patterns'.

Without --category an interactive picker opens, ranked by how well each
category matches the transaction.

Examples:
  spice assign txn-42 --category Groceries
  spice assign txn-42 --category Coffee --create --keywords starbucks
  spice assign txn-42 --category Travel --attach`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.create && opts.attach {
				return fmt.Errorf("--create and --attach cannot be combined")
			}
			if opts.create && opts.category == "" {
				return fmt.Errorf("--create needs --category")
			}
			if opts.user == "" {
				opts.user = defaultUser()
			}
			return runAssign(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "category id or name")
	cmd.Flags().BoolVar(&opts.create, "create", false, "create the category first")
	cmd.Flags().StringSliceVarP(&opts.keywords, "keywords", "k", nil, "keywords for a created category (comma separated)")
	cmd.Flags().StringVar(&opts.parent, "parent", "", "parent for a created category")
	cmd.Flags().BoolVar(&opts.attach, "attach", false, "add as a secondary category instead of the main one")
	cmd.Flags().StringVar(&opts.user, "user", "", "who made the change (default: $USER)")
	cmd.Flags().StringVar(&opts.reason, "reason", "", "why the change was made")

	return cmd
}

func runAssign(cmd *cobra.Command, transactionID string, opts assignOptions) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	txn, err := a.store.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return transactionError(transactionID, err)
	}

	if opts.category == "" {
		choice, err := pickCategory(ctx, cmd, a, *txn)
		if err != nil {
			return err
		}
		switch {
		case choice.Cancelled:
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No changes"))
			return nil
		case choice.IsNew():
			opts.category = choice.NewName
			opts.create = true
		default:
			opts.category = fmt.Sprint(choice.CategoryID)
		}
	}

	out := cmd.OutOrStdout()
	switch {
	case opts.create:
		input := model.CategoryInput{Name: opts.category, Keywords: splitKeywords(opts.keywords)}
		if input.ParentID, err = optionalCategoryID(ctx, a.store, opts.parent); err != nil {
			return fmt.Errorf("failed to resolve parent: %w", err)
		}
		category, err := a.admin.CreateAndAssign(ctx, txn.ID, input, opts.user, opts.reason)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Created %q and assigned it to %s", category.Name, txn.ID)))

	case opts.attach:
		category, err := resolveCategory(ctx, a.store, opts.category)
		if err != nil {
			return err
		}
		if _, err := a.admin.AttachExisting(ctx, txn.ID, category.ID); err != nil {
			return err
		}
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Attached %q to %s", category.Name, txn.ID)))

	default:
		category, err := resolveCategory(ctx, a.store, opts.category)
		if err != nil {
			return err
		}
		if err := a.admin.AssignExisting(ctx, txn.ID, category.ID, opts.user, opts.reason); err != nil {
			return err
		}
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Assigned %q to %s", category.Name, txn.ID)))
	}

	links, err := a.store.GetLinks(ctx, txn.ID)
	if err != nil {
		return fmt.Errorf("failed to get links: %w", err)
	}
	catalog, err := a.engine.Catalog(ctx)
	if err != nil {
		return err
	}
	return cli.RenderLinks(out, links, catalog)
}

// pickCategory opens the picker with categories ranked by description score.
func pickCategory(ctx context.Context, cmd *cobra.Command, a *app, txn model.Transaction) (tui.Choice, error) {
	catalog, err := a.engine.Reload(ctx)
	if err != nil {
		return tui.Choice{}, err
	}

	scores := make(map[int]int)
	if result, err := a.engine.Evaluate(ctx, txn); err == nil {
		for _, match := range result.Decision.Candidates {
			scores[match.CategoryID] = max(scores[match.CategoryID], match.FinalScore)
		}
	}

	return tui.RunPicker(ctx, tui.PickerConfig{
		Input:       cmd.InOrStdin(),
		Output:      cmd.OutOrStdout(),
		Transaction: txn,
		Categories:  catalog.Categories,
		Scores:      scores,
		Theme:       themes.ByName(viper.GetString(config.KeyTheme)),
	})
}

func defaultUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "cli"
}
