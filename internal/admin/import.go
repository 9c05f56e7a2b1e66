package admin

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Veraticus/spice-sort/internal/common"
	"github.com/Veraticus/spice-sort/internal/model"
)

// CategorySpec describes one category to import. Parent refers to another
// category by name and must exist or appear earlier in the same import.
type CategorySpec struct {
	Name     string
	Parent   string
	Keywords []string
}

// ImportResult counts what an import did.
type ImportResult struct {
	Created   int
	Updated   int
	Unchanged int
}

// ImportCategories creates missing categories and updates existing ones by
// name. A single sweep is queued once everything is stored.
func (s *Service) ImportCategories(ctx context.Context, specs []CategorySpec) (ImportResult, error) {
	var result ImportResult

	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return result, fmt.Errorf("%w: category name is required", common.ErrInvalidConfig)
		}

		input := model.CategoryInput{Name: name, Keywords: spec.Keywords}
		if parent := strings.TrimSpace(spec.Parent); parent != "" {
			parentCat, err := s.categories.GetCategoryByName(ctx, parent)
			if err != nil {
				return result, fmt.Errorf("failed to look up parent %q: %w", parent, err)
			}
			if parentCat == nil {
				return result, fmt.Errorf("%w: parent %q of %q", common.ErrCategoryNotFound, parent, name)
			}
			input.ParentID = &parentCat.ID
		}

		existing, err := s.categories.GetCategoryByName(ctx, name)
		if err != nil {
			return result, fmt.Errorf("failed to look up category %q: %w", name, err)
		}

		switch {
		case existing == nil:
			if _, err := s.categories.CreateCategory(ctx, input); err != nil {
				return result, fmt.Errorf("failed to create category %q: %w", name, err)
			}
			result.Created++
		case sameDefinition(*existing, input):
			result.Unchanged++
		default:
			if _, err := s.categories.UpdateCategory(ctx, existing.ID, input); err != nil {
				return result, fmt.Errorf("failed to update category %q: %w", name, err)
			}
			result.Updated++
		}
	}

	if result.Created+result.Updated > 0 {
		s.afterChange(ctx, nil, fmt.Sprintf("categories imported: %d created, %d updated", result.Created, result.Updated))
	}
	return result, nil
}

func sameDefinition(existing model.Category, input model.CategoryInput) bool {
	if (existing.ParentID == nil) != (input.ParentID == nil) {
		return false
	}
	if existing.ParentID != nil && *existing.ParentID != *input.ParentID {
		return false
	}

	keywords := make([]string, 0, len(input.Keywords))
	for _, kw := range input.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return slices.Equal(existing.Keywords, keywords)
}
