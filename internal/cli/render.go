package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Veraticus/spice-sort/internal/model"
	"github.com/Veraticus/spice-sort/internal/storage"
)

// CategoryNamer resolves category ids to display names.
type CategoryNamer interface {
	Name(id int) string
}

const dateFormat = "2006-01-02"

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtleStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle.BorderBottom(false)
			}
			return TableCellStyle
		})
}

func nameOf(names CategoryNamer, id *int) string {
	if id == nil {
		return "-"
	}
	if name := names.Name(*id); name != "" {
		return name
	}
	return fmt.Sprintf("#%d", *id)
}

func write(w io.Writer, s string) error {
	_, err := fmt.Fprintln(w, s)
	return err
}

// RenderDecision prints how a transaction would be categorized.
func RenderDecision(w io.Writer, txn model.Transaction, result *model.ClassificationResult, names CategoryNamer) error {
	d := result.Decision

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s  %s  %s\n", InfoIcon, txn.Date.Format(dateFormat), txn.Amount.StringFixed(2), txn.Description)
	if result.VendorLabel != "" {
		fmt.Fprintf(&b, "Vendor label: %s\n", result.VendorLabel)
	}
	b.WriteString("\n")

	category := "Unknown"
	if !d.IsUnknown() {
		category = nameOf(names, &d.CategoryID)
	}
	fmt.Fprintf(&b, "%s %s\n", BoldStyle.Render("Category:"), category)
	fmt.Fprintf(&b, "%s %s\n", BoldStyle.Render("Source:"), d.Source)
	fmt.Fprintf(&b, "%s %s\n", BoldStyle.Render("Confidence:"), FormatConfidence(d.Confidence, d.Score))
	fmt.Fprintf(&b, "%s\n", SubtleStyle.Render(d.Justification))

	candidates := d.Candidates.AtLeast(1)
	if len(candidates) > 0 {
		t := newTable("Category", "Matched", "Final", "Ratio", "Partial", "Sort", "Set")
		for _, c := range candidates {
			t.Row(c.CategoryName, c.MatchedText, strconv.Itoa(c.FinalScore),
				strconv.Itoa(c.Metrics.Ratio), strconv.Itoa(c.Metrics.PartialRatio),
				strconv.Itoa(c.Metrics.TokenSortRatio), strconv.Itoa(c.Metrics.TokenSetRatio))
		}
		b.WriteString("\n")
		b.WriteString(t.Render())
	}

	if len(result.CategoryIDs) > 0 {
		resolved := make([]string, 0, len(result.CategoryIDs))
		for i := range result.CategoryIDs {
			resolved = append(resolved, nameOf(names, &result.CategoryIDs[i]))
		}
		fmt.Fprintf(&b, "\n%s %s", BoldStyle.Render("Links:"), strings.Join(resolved, ", "))
	}

	return write(w, RenderBox("Transaction "+txn.ID, b.String()))
}

// RenderCategories prints the category catalog.
func RenderCategories(w io.Writer, categories []model.Category, names CategoryNamer) error {
	if len(categories) == 0 {
		return write(w, FormatInfo("No categories defined"))
	}

	t := newTable("ID", "Name", "Parent", "Keywords")
	for _, c := range categories {
		name := c.Name
		if c.IsUnknown() {
			name = SubtleStyle.Render(name)
		}
		t.Row(strconv.Itoa(c.ID), name, nameOf(names, c.ParentID), strings.Join(c.Keywords, ", "))
	}
	return write(w, t.Render())
}

// RenderTransactions prints transactions with their main category.
func RenderTransactions(w io.Writer, txns []model.Transaction, names CategoryNamer) error {
	if len(txns) == 0 {
		return write(w, FormatInfo("No transactions found"))
	}

	t := newTable("ID", "Date", "Amount", "Description", "Main category")
	for _, txn := range txns {
		t.Row(txn.ID, txn.Date.Format(dateFormat), txn.Amount.StringFixed(2), txn.Description, nameOf(names, txn.MainCategoryID))
	}
	return write(w, t.Render())
}

// RenderLinks prints a transaction's category links, main first.
func RenderLinks(w io.Writer, links model.CategoryLinks, names CategoryNamer) error {
	if len(links) == 0 {
		return write(w, FormatInfo("No categories assigned"))
	}

	t := newTable("", "Category", "Origin", "Linked")
	for _, link := range links {
		marker := ""
		if link.IsMain {
			marker = MainIcon
		}
		origin := "automatic"
		if link.IsManual {
			origin = ManualStyle.Render(ManualIcon + " manual")
		}
		id := link.CategoryID
		t.Row(marker, nameOf(names, &id), origin, link.CreatedAt.Format(dateFormat))
	}
	return write(w, t.Render())
}

// RenderAuditTrail prints a transaction's decisions and overrides.
func RenderAuditTrail(w io.Writer, records []model.AuditRecord, overrides []model.OverrideRecord, names CategoryNamer) error {
	if len(records) == 0 && len(overrides) == 0 {
		return write(w, FormatInfo("No audit history"))
	}

	if len(records) > 0 {
		t := newTable("When", "Main", "Source", "Confidence", "Description", "Vendor", "Thresholds")
		for _, r := range records {
			t.Row(
				r.CreatedAt.Format("2006-01-02 15:04"),
				nameOf(names, r.MainCategoryID),
				string(r.Source),
				FormatConfidence(r.Confidence, r.DecisionScore),
				fmt.Sprintf("%s %d", nameOf(names, r.DescriptionCategoryID), r.DescriptionScore),
				fmt.Sprintf("%s %d", nameOf(names, r.VendorCategoryID), r.VendorScore),
				fmt.Sprintf("%d/%d/%.2f", r.Thresholds.DescriptionThreshold, r.Thresholds.VendorThreshold, r.Thresholds.DescriptionAdvantage),
			)
		}
		if err := write(w, TitleStyle.Render("Decisions")+"\n"+t.Render()); err != nil {
			return err
		}
	}

	if len(overrides) > 0 {
		t := newTable("When", "From", "To", "User", "Reason")
		for _, o := range overrides {
			to := o.NewCategoryID
			t.Row(o.CreatedAt.Format("2006-01-02 15:04"), nameOf(names, o.PreviousCategoryID), nameOf(names, &to), o.UserID, o.Reason)
		}
		if err := write(w, TitleStyle.Render("Overrides")+"\n"+t.Render()); err != nil {
			return err
		}
	}
	return nil
}

// RenderOverridePatterns prints systematic misclassifications.
func RenderOverridePatterns(w io.Writer, patterns []model.OverridePattern) error {
	if len(patterns) == 0 {
		return write(w, FormatSuccess("No override patterns yet"))
	}

	t := newTable("System chose", "User chose", "Overrides", "Mean score")
	for _, p := range patterns {
		t.Row(p.SystemCategoryName, p.UserCategoryName, strconv.Itoa(p.OverrideCount), fmt.Sprintf("%.1f", p.MeanSystemScore))
	}
	return write(w, FormatTitle(ChartIcon+" Override patterns")+"\n"+t.Render())
}

// RenderSweepResult prints the counts of a re-classification run.
func RenderSweepResult(w io.Writer, result model.ReclassifyResult) error {
	summary := fmt.Sprintf("Processed: %d\nUpdated:   %d\nFailed:    %d", result.Processed, result.Updated, result.Failed)
	if result.Failed > 0 {
		summary += "\n\n" + FormatWarning("Some transactions could not be classified; see the log for details")
	}
	return write(w, RenderBox("Re-classification complete", summary))
}

// RenderCheckpoints prints database checkpoints, newest first.
func RenderCheckpoints(w io.Writer, checkpoints []storage.CheckpointInfo) error {
	if len(checkpoints) == 0 {
		return write(w, SubtleStyle.Render("No checkpoints found"))
	}

	t := newTable("ID", "Created", "Size", "Transactions", "Categories", "Description")
	for _, cp := range checkpoints {
		id := cp.ID
		if cp.IsAuto {
			id = SubtleStyle.Render(id)
		}
		t.Row(id,
			FormatRelativeTime(cp.CreatedAt),
			FormatFileSize(cp.FileSize),
			strconv.Itoa(cp.Transactions()),
			strconv.Itoa(cp.Categories()),
			cp.Description)
	}
	return write(w, t.Render())
}

// FormatFileSize renders a byte count with a binary unit.
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// FormatRelativeTime describes t relative to now, falling back to a timestamp after a week.
func FormatRelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	case d < 48*time.Hour:
		return "yesterday"
	case d < 7*24*time.Hour:
		return plural(int(d.Hours()/24), "day")
	default:
		return t.Format("2006-01-02 15:04")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
