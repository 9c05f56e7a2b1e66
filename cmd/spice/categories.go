package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-sort/internal/cli"
	"github.com/Veraticus/spice-sort/internal/config"
	"github.com/Veraticus/spice-sort/internal/model"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories",
		Long: `List, add, update, delete, and import the categories transactions are sorted into.
Every change re-classifies existing transactions so they pick it up.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(updateCategoryCmd())
	cmd.AddCommand(deleteCategoryCmd())
	cmd.AddCommand(importCategoriesCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			categories, err := store.GetCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			return cli.RenderCategories(cmd.OutOrStdout(), categories, categoryNames(categories))
		},
	}
}

func addCategoryCmd() *cobra.Command {
	var (
		keywords []string
		parent   string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new category",
		Long: `Create a category. Keywords are extra texts the category matches on besides its name.

Example:
  spice categories add Coffee --keywords starbucks,espresso --parent "Food & Dining"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			input := model.CategoryInput{Name: args[0], Keywords: splitKeywords(keywords)}
			if input.ParentID, err = optionalCategoryID(ctx, a.store, parent); err != nil {
				return fmt.Errorf("failed to resolve parent: %w", err)
			}

			category, err := a.admin.CreateCategory(ctx, input)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created category %q (ID: %d)", category.Name, category.ID)))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&keywords, "keywords", "k", nil, "comma separated keywords")
	cmd.Flags().StringVar(&parent, "parent", "", "parent category id or name")

	return cmd
}

func updateCategoryCmd() *cobra.Command {
	var (
		name        string
		keywords    []string
		addKeywords []string
		parent      string
		noParent    bool
	)

	cmd := &cobra.Command{
		Use:   "update <id|name>",
		Short: "Update a category",
		Long: `Rename a category, replace or extend its keywords, or move it under another parent.
Transactions the updated category now matches take it as their main category.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			existing, err := resolveCategory(ctx, a.store, args[0])
			if err != nil {
				return err
			}

			input := model.CategoryInput{
				Name:     existing.Name,
				ParentID: existing.ParentID,
				Keywords: existing.Keywords,
			}
			if cmd.Flags().Changed("name") {
				input.Name = name
			}
			if cmd.Flags().Changed("keywords") {
				input.Keywords = splitKeywords(keywords)
			}
			input.Keywords = append(append([]string(nil), input.Keywords...), splitKeywords(addKeywords)...)
			switch {
			case noParent:
				input.ParentID = nil
			case parent != "":
				if input.ParentID, err = optionalCategoryID(ctx, a.store, parent); err != nil {
					return fmt.Errorf("failed to resolve parent: %w", err)
				}
			}

			category, err := a.admin.UpdateCategory(ctx, existing.ID, input)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated category %q (ID: %d)", category.Name, category.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringSliceVarP(&keywords, "keywords", "k", nil, "replace keywords (comma separated)")
	cmd.Flags().StringSliceVar(&addKeywords, "add-keywords", nil, "keywords to add (comma separated)")
	cmd.Flags().StringVar(&parent, "parent", "", "new parent category id or name")
	cmd.Flags().BoolVar(&noParent, "no-parent", false, "make this a top-level category")
	cmd.MarkFlagsMutuallyExclusive("parent", "no-parent")

	return cmd
}

func deleteCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|name>",
		Short: "Delete a category",
		Long: `Delete a category and its links. Transactions that lose their main category
are re-classified. The Unknown category cannot be deleted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			category, err := resolveCategory(ctx, a.store, args[0])
			if err != nil {
				return err
			}

			if err := a.admin.DeleteCategory(ctx, category.ID); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted category %q", category.Name)))
			return nil
		},
	}
}

func importCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Create or update categories from a YAML file",
		Long: `Import a category catalog. Parents must appear before their children.

Example file:
  categories:
    - name: Food & Dining
    - name: Coffee
      parent: Food & Dining
      keywords: [starbucks, espresso]`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			file, err := config.LoadCategoryFile(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.admin.ImportCategories(ctx, file.Specs())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
				"Imported categories: %d created, %d updated, %d unchanged",
				result.Created, result.Updated, result.Unchanged)))
			return nil
		},
	}
}

// categoryNames resolves category ids from an already loaded list.
type categoryNames []model.Category

func (c categoryNames) Name(id int) string {
	for _, cat := range c {
		if cat.ID == id {
			return cat.Name
		}
	}
	return ""
}
