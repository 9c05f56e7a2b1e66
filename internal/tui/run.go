package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/spice-sort/internal/model"
	"github.com/Veraticus/spice-sort/internal/tui/themes"
)

// PickerConfig holds everything the picker needs.
type PickerConfig struct {
	Input       io.Reader
	Output      io.Writer
	Scores      map[int]int
	Transaction model.Transaction
	Categories  []model.Category
	Theme       themes.Theme
}

// RunPicker shows the category picker and blocks until the user chooses.
func RunPicker(ctx context.Context, cfg PickerConfig) (Choice, error) {
	if len(cfg.Categories) == 0 {
		return Choice{}, fmt.Errorf("no categories to choose from")
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.Input != nil {
		opts = append(opts, tea.WithInput(cfg.Input))
	}
	if cfg.Output != nil {
		opts = append(opts, tea.WithOutput(cfg.Output))
	}

	picker := NewPickerModel(cfg.Transaction, cfg.Categories, cfg.Scores, cfg.Theme)
	final, err := tea.NewProgram(picker, opts...).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return Choice{Cancelled: true}, ctx.Err()
		}
		return Choice{}, fmt.Errorf("failed to run category picker: %w", err)
	}

	result, ok := final.(PickerModel)
	if !ok {
		return Choice{}, fmt.Errorf("unexpected picker model %T", final)
	}
	if !result.Done() {
		return Choice{Cancelled: true}, nil
	}
	return result.Choice(), nil
}
