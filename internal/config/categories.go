package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/spice-sort/internal/admin"
	"github.com/Veraticus/spice-sort/internal/common"
)

// CategorySeed is one entry of a category seed file.
type CategorySeed struct {
	Name     string   `yaml:"name"`
	Parent   string   `yaml:"parent,omitempty"`
	Keywords []string `yaml:"keywords,omitempty"`
}

// CategoryFile is the layout of a category seed file:
//
//	categories:
//	  - name: Groceries
//	    keywords: [supermarket, grocer]
//	  - name: Coffee
//	    parent: Restaurants
//	    keywords: [starbucks]
type CategoryFile struct {
	Categories []CategorySeed `yaml:"categories"`
}

// LoadCategoryFile reads a category seed file from disk.
func LoadCategoryFile(path string) (*CategoryFile, error) {
	f, err := os.Open(ExpandPath(path)) //nolint:gosec // user-supplied seed file
	if err != nil {
		return nil, fmt.Errorf("failed to open category file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseCategoryFile(f)
}

// ParseCategoryFile decodes and validates a category seed document.
func ParseCategoryFile(r io.Reader) (*CategoryFile, error) {
	var file CategoryFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		if err == io.EOF {
			return &file, nil
		}
		return nil, fmt.Errorf("failed to parse category file: %w", err)
	}

	seen := make(map[string]bool, len(file.Categories))
	for i, seed := range file.Categories {
		name := strings.TrimSpace(seed.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: category %d has no name", common.ErrInvalidConfig, i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: category %q listed twice", common.ErrInvalidConfig, name)
		}
		seen[name] = true
		file.Categories[i].Name = name
		file.Categories[i].Parent = strings.TrimSpace(seed.Parent)
	}
	return &file, nil
}

// Specs converts the seed entries into admin import specs.
func (f *CategoryFile) Specs() []admin.CategorySpec {
	specs := make([]admin.CategorySpec, 0, len(f.Categories))
	for _, seed := range f.Categories {
		specs = append(specs, admin.CategorySpec{
			Name:     seed.Name,
			Parent:   seed.Parent,
			Keywords: seed.Keywords,
		})
	}
	return specs
}
