package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-sort/internal/cli"
	"github.com/Veraticus/spice-sort/internal/common"
	"github.com/Veraticus/spice-sort/internal/model"
	"github.com/Veraticus/spice-sort/internal/service"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txns"},
		Short:   "Import and inspect transactions",
	}

	cmd.AddCommand(importTransactionsCmd())
	cmd.AddCommand(listTransactionsCmd())
	cmd.AddCommand(showTransactionCmd())

	return cmd
}

// transactionRecord is one entry of a transaction import file.
type transactionRecord struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	Status      string          `json:"status"`
	Enrichment  json.RawMessage `json:"enrichment"`
	Amount      decimal.Decimal `json:"amount"`
}

// parseTransactions decodes a JSON array of transaction records.
func parseTransactions(r io.Reader) ([]model.Transaction, error) {
	var records []transactionRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrMalformedTransaction, err)
	}

	txns := make([]model.Transaction, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i, rec := range records {
		rec.ID = strings.TrimSpace(rec.ID)
		if rec.ID == "" {
			return nil, fmt.Errorf("%w: record %d has no id", common.ErrMalformedTransaction, i)
		}
		if seen[rec.ID] {
			return nil, fmt.Errorf("%w: duplicate id %s", common.ErrMalformedTransaction, rec.ID)
		}
		seen[rec.ID] = true

		date, err := parseDate(rec.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: transaction %s: %w", common.ErrMalformedTransaction, rec.ID, err)
		}

		status := rec.Status
		if status == "" {
			status = "posted"
		}
		txn := model.Transaction{
			ID:          rec.ID,
			AccountID:   rec.AccountID,
			Description: rec.Description,
			Amount:      rec.Amount,
			Date:        date,
			Status:      status,
		}
		if len(rec.Enrichment) > 0 && string(rec.Enrichment) != "null" {
			txn.Enrichment = rec.Enrichment
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", value)
	}
	return t, nil
}

func importTransactionsCmd() *cobra.Command {
	var skipClassify bool

	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import transactions from a JSON file",
		Long: `Import transactions from a JSON array and categorize them.

Example record:
  {"id": "txn-1", "account_id": "checking", "description": "STARBUCKS 1234",
   "amount": "-4.50", "date": "2024-05-01", "enrichment": {"sector_code": "5814"}}

Re-importing a transaction updates it; its category links are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open transactions file: %w", err)
			}
			defer f.Close()

			txns, err := parseTransactions(f)
			if err != nil {
				return err
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.SaveTransactions(ctx, txns); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d transactions", len(txns))))

			if skipClassify || len(txns) == 0 {
				return nil
			}

			var result model.ReclassifyResult
			for _, txn := range txns {
				changed, err := a.engine.ReclassifyOne(ctx, txn, nil)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					common.LogError(ctx, err, "Failed to categorize transaction", common.Fields{"transaction_id": txn.ID})
					result.Failed++
					continue
				}
				result.Processed++
				if changed {
					result.Updated++
				}
			}
			return cli.RenderSweepResult(out, result)
		},
	}

	cmd.Flags().BoolVar(&skipClassify, "no-classify", false, "store the transactions without categorizing them")

	return cmd
}

func listTransactionsCmd() *cobra.Command {
	var (
		limit  int
		offset int
		from   string
		to     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions with their main category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			filter := service.TransactionFilter{Limit: limit, Offset: offset}
			if from != "" {
				start, err := parseDate(from)
				if err != nil {
					return common.NewUserError("invalid --from", err)
				}
				filter.StartDate = &start
			}
			if to != "" {
				end, err := parseDate(to)
				if err != nil {
					return common.NewUserError("invalid --to", err)
				}
				filter.EndDate = &end
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			txns, err := store.GetTransactions(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to get transactions: %w", err)
			}
			categories, err := store.GetCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			return cli.RenderTransactions(cmd.OutOrStdout(), txns, categoryNames(categories))
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of transactions to show (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of transactions to skip")
	cmd.Flags().StringVar(&from, "from", "", "first date to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last date to include (YYYY-MM-DD)")

	return cmd
}

func showTransactionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a transaction and its category links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			txn, err := store.GetTransactionByID(ctx, args[0])
			if err != nil {
				return transactionError(args[0], err)
			}
			links, err := store.GetLinks(ctx, txn.ID)
			if err != nil {
				return fmt.Errorf("failed to get links: %w", err)
			}
			categories, err := store.GetCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}
			names := categoryNames(categories)

			out := cmd.OutOrStdout()
			if err := cli.RenderTransactions(out, []model.Transaction{*txn}, names); err != nil {
				return err
			}
			if len(txn.Enrichment) > 0 {
				fmt.Fprintf(out, "%s %s\n", cli.BoldStyle.Render("Enrichment:"), string(txn.Enrichment))
			}
			return cli.RenderLinks(out, links, names)
		},
	}
}

// transactionError turns a missing transaction into a readable error.
func transactionError(id string, err error) error {
	if isNotFound(err) {
		return common.NewUserError(fmt.Sprintf("transaction %s not found", id), err)
	}
	return err
}
