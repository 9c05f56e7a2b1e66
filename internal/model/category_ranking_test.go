package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptionMatches_Sort(t *testing.T) {
	matches := DescriptionMatches{
		{CategoryName: "Groceries", FinalScore: 70},
		{CategoryName: "Coffee", FinalScore: 95},
		{CategoryName: "Dining", FinalScore: 70},
		{CategoryName: "Travel", FinalScore: 0},
	}
	matches.Sort()

	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.CategoryName
	}
	assert.Equal(t, []string{"Coffee", "Groceries", "Dining", "Travel"}, names, "ties keep input order")

	require.NotNil(t, matches.Top())
	assert.Equal(t, "Coffee", matches.Top().CategoryName)
	assert.Equal(t, 95, matches.TopScore())
	assert.Len(t, matches.AtLeast(70), 3)
	assert.Empty(t, matches.AtLeast(96))
}

func TestDescriptionMatches_Empty(t *testing.T) {
	var matches DescriptionMatches
	assert.Nil(t, matches.Top())
	assert.Zero(t, matches.TopScore())
	assert.Nil(t, matches.AtLeast(0))
}

func TestVendorMatch_HasCategory(t *testing.T) {
	id := 4
	var missing *VendorMatch
	assert.False(t, missing.HasCategory())
	assert.False(t, (&VendorMatch{Label: "5814"}).HasCategory())
	assert.True(t, (&VendorMatch{Label: "5814", CategoryID: &id}).HasCategory())
}

func TestCategory_CandidateTexts(t *testing.T) {
	c := Category{Name: "Coffee", Keywords: []string{"starbucks", "", "espresso"}}
	assert.Equal(t, []string{"Coffee", "starbucks", "espresso"}, c.CandidateTexts())
	assert.False(t, c.IsUnknown())
	assert.True(t, Category{Name: UnknownCategoryName}.IsUnknown())
}

func TestCategoryLinks(t *testing.T) {
	links := CategoryLinks{
		{CategoryID: 2, IsMain: true},
		{CategoryID: 3, IsManual: true},
	}
	require.NotNil(t, links.Main())
	assert.Equal(t, 2, links.Main().CategoryID)
	assert.True(t, links.HasManual())
	assert.True(t, links.Contains(3))
	assert.False(t, links.Contains(9))
	assert.Equal(t, 1, links.MainCount())

	assert.Nil(t, CategoryLinks{}.Main())
}
