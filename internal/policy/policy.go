// Package policy arbitrates between description and vendor signals to pick a category.
package policy

import (
	"fmt"

	"github.com/Veraticus/spice-sort/internal/common"
	"github.com/Veraticus/spice-sort/internal/model"
)

// Confidence band lower bounds.
const (
	HighConfidenceScore   = 85
	MediumConfidenceScore = 70
)

// DefaultThresholds returns the thresholds used when nothing is configured.
func DefaultThresholds() model.Thresholds {
	return model.Thresholds{
		DescriptionThreshold: 75,
		VendorThreshold:      60,
		DescriptionAdvantage: 1.1,
	}
}

// Validate checks that thresholds are on the 0-100 scale and the advantage is
// at least 1.
func Validate(th model.Thresholds) error {
	if th.DescriptionThreshold < 0 || th.DescriptionThreshold > 100 {
		return fmt.Errorf("%w: description threshold %d outside 0-100", common.ErrInvalidConfig, th.DescriptionThreshold)
	}
	if th.VendorThreshold < 0 || th.VendorThreshold > 100 {
		return fmt.Errorf("%w: vendor threshold %d outside 0-100", common.ErrInvalidConfig, th.VendorThreshold)
	}
	if th.DescriptionAdvantage < 1 {
		return fmt.Errorf("%w: description advantage %.2f below 1.0", common.ErrInvalidConfig, th.DescriptionAdvantage)
	}
	return nil
}

// Band maps the score backing a decision to a confidence level.
func Band(score int) model.ConfidenceLevel {
	switch {
	case score >= HighConfidenceScore:
		return model.ConfidenceHigh
	case score >= MediumConfidenceScore:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// Decide picks a category from ranked description candidates and an optional
// vendor candidate:
//  1. Without a vendor signal at or above the vendor threshold, the top
//     description match wins if it reaches the description threshold;
//     otherwise the result is unknown.
//  2. With a vendor signal, the description still wins if it reaches its
//     threshold and beats vendorScore x advantage.
//  3. Otherwise the vendor category wins, or unknown when it has none.
//
// Candidates must already be sorted. Decide has no side effects.
func Decide(candidates model.DescriptionMatches, vendor *model.VendorMatch, th model.Thresholds) model.Decision {
	decision := model.Decision{
		Candidates: candidates,
		Vendor:     vendor,
		Thresholds: th,
	}

	top := candidates.Top()
	descScore := candidates.TopScore()

	if vendor == nil || vendor.Score < th.VendorThreshold {
		if top != nil && descScore >= th.DescriptionThreshold {
			decision.Source = model.SourceDescription
			decision.CategoryID = top.CategoryID
			decision.Score = descScore
			decision.Justification = fmt.Sprintf(
				"description matched %q (via %q) with score %d >= description threshold %d; %s",
				top.CategoryName, top.MatchedText, descScore, th.DescriptionThreshold, vendorNote(vendor, th))
		} else {
			decision.Source = model.SourceUnknown
			decision.Score = descScore
			decision.Justification = fmt.Sprintf(
				"top description score %d below description threshold %d; %s",
				descScore, th.DescriptionThreshold, vendorNote(vendor, th))
		}
		decision.Confidence = Band(decision.Score)
		return decision
	}

	required := float64(vendor.Score) * th.DescriptionAdvantage
	if top != nil && descScore >= th.DescriptionThreshold && float64(descScore) > required {
		decision.Source = model.SourceDescription
		decision.CategoryID = top.CategoryID
		decision.Score = descScore
		decision.Justification = fmt.Sprintf(
			"description matched %q with score %d >= threshold %d and > vendor score %d x %.2f = %.2f",
			top.CategoryName, descScore, th.DescriptionThreshold, vendor.Score, th.DescriptionAdvantage, required)
		decision.Confidence = Band(decision.Score)
		return decision
	}

	decision.Score = vendor.Score
	if vendor.HasCategory() {
		decision.Source = model.SourceVendor
		decision.CategoryID = *vendor.CategoryID
		decision.Justification = fmt.Sprintf(
			"vendor label %q matched %q with score %d >= vendor threshold %d; description score %d did not reach threshold %d and exceed %.2f",
			vendor.Label, vendor.CategoryName, vendor.Score, th.VendorThreshold, descScore, th.DescriptionThreshold, required)
	} else {
		decision.Source = model.SourceUnknown
		decision.Justification = fmt.Sprintf(
			"vendor label %q scored %d but resolved to no category; description score %d did not reach threshold %d and exceed %.2f",
			vendor.Label, vendor.Score, descScore, th.DescriptionThreshold, required)
	}
	decision.Confidence = Band(decision.Score)
	return decision
}

func vendorNote(vendor *model.VendorMatch, th model.Thresholds) string {
	if vendor == nil {
		return "no vendor label"
	}
	return fmt.Sprintf("vendor score %d below vendor threshold %d", vendor.Score, th.VendorThreshold)
}
