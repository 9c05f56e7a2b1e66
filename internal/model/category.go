package model

import "time"

// UnknownCategoryName is the fallback category assigned when nothing matches.
// It always exists, is never scored, and cannot be renamed or deleted.
const UnknownCategoryName = "Unknown"

// Category represents a spending category and the keywords that describe it.
type Category struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	ParentID  *int
	Name      string
	Keywords  []string
	ID        int
}

// IsUnknown reports whether the category is the fallback sentinel.
func (c Category) IsUnknown() bool {
	return c.Name == UnknownCategoryName
}

// CandidateTexts returns the texts a description is compared against:
// the category name followed by its keywords, skipping blanks.
func (c Category) CandidateTexts() []string {
	texts := make([]string, 0, len(c.Keywords)+1)
	if c.Name != "" {
		texts = append(texts, c.Name)
	}
	for _, kw := range c.Keywords {
		if kw != "" {
			texts = append(texts, kw)
		}
	}
	return texts
}

// CategoryInput carries the mutable fields of a category for create and update.
type CategoryInput struct {
	ParentID *int
	Name     string
	Keywords []string
}
