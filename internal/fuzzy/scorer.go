package fuzzy

import (
	"math"
	"strings"

	"github.com/Veraticus/spice-sort/internal/model"
)

// MinValidScore is the lowest combined score treated as a real signal.
// Anything below it is reported as zero.
const MinValidScore = 50

// Weights controls how the four metrics combine into one score.
type Weights struct {
	Ratio     float64
	Partial   float64
	TokenSort float64
	TokenSet  float64
}

// DefaultWeights favors substring and set-based metrics, which tolerate the
// extra tokens merchant descriptions carry.
var DefaultWeights = Weights{
	Ratio:     0.2,
	Partial:   0.3,
	TokenSort: 0.1,
	TokenSet:  0.4,
}

// Combine applies the weights and rounds to the 0-100 scale.
func (w Weights) Combine(m model.MetricScores) int {
	sum := w.Ratio*float64(m.Ratio) +
		w.Partial*float64(m.PartialRatio) +
		w.TokenSort*float64(m.TokenSortRatio) +
		w.TokenSet*float64(m.TokenSetRatio)
	return int(math.Round(sum))
}

// Metrics computes all four metrics for two already-normalized strings.
func Metrics(a, b string) model.MetricScores {
	return model.MetricScores{
		Ratio:          Ratio(a, b),
		PartialRatio:   PartialRatio(a, b),
		TokenSortRatio: TokenSortRatio(a, b),
		TokenSetRatio:  TokenSetRatio(a, b),
	}
}

// ScoreDescription ranks every category except Unknown against a transaction
// description. Each category is scored by its best candidate text (its name or
// one of its keywords). The result is sorted by final score, stable on ties.
func ScoreDescription(description string, categories []model.Category) model.DescriptionMatches {
	text := Normalize(description)
	if text == "" || len(categories) == 0 {
		return model.DescriptionMatches{}
	}

	matches := make(model.DescriptionMatches, 0, len(categories))
	for _, cat := range categories {
		if cat.IsUnknown() {
			continue
		}

		var (
			best  model.DescriptionMatch
			found bool
		)
		for _, candidate := range cat.CandidateTexts() {
			normalized := Normalize(candidate)
			if normalized == "" {
				continue
			}
			metrics := Metrics(text, normalized)
			combined := DefaultWeights.Combine(metrics)
			if !found || combined > best.CombinedScore {
				best = model.DescriptionMatch{
					CategoryID:    cat.ID,
					CategoryName:  cat.Name,
					MatchedText:   candidate,
					Metrics:       metrics,
					CombinedScore: combined,
				}
				found = true
			}
		}
		if !found {
			continue
		}

		if best.CombinedScore >= MinValidScore {
			best.FinalScore = best.CombinedScore
		}
		matches = append(matches, best)
	}

	matches.Sort()
	return matches
}

// ScoreVendorLabel finds the category best matching a short vendor-supplied
// label. Each candidate scores max(partial ratio, token set ratio). The
// category is left nil when the best score is below MinValidScore.
func ScoreVendorLabel(label string, categories []model.Category) model.VendorMatch {
	result := model.VendorMatch{Label: label}

	text := Normalize(label)
	if text == "" || len(categories) == 0 {
		return result
	}

	var best *model.Category
	for i := range categories {
		cat := categories[i]
		if cat.IsUnknown() {
			continue
		}
		for _, candidate := range cat.CandidateTexts() {
			normalized := Normalize(candidate)
			if normalized == "" {
				continue
			}
			score := max(PartialRatio(text, normalized), TokenSetRatio(text, normalized))
			if score > result.Score {
				result.Score = score
				best = &categories[i]
			}
		}
	}

	if best != nil && result.Score >= MinValidScore {
		id := best.ID
		result.CategoryID = &id
		result.CategoryName = best.Name
	}
	return result
}

// MatchKeywords is the lightweight path: a case-insensitive substring search of
// every keyword in the description. It returns matched category ids in
// category order; the first matching keyword of a category is enough.
func MatchKeywords(description string, categories []model.Category) []int {
	text := strings.ToLower(description)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var ids []int
	for _, cat := range categories {
		for _, kw := range cat.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if strings.Contains(text, kw) {
				ids = append(ids, cat.ID)
				break
			}
		}
	}
	return ids
}
