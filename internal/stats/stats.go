package stats

import (
	"math"
	"sort"

	"comphub/server/internal/models"
)

// arvMultiplier approximates after-repair value from a comparable's close
// price.
const arvMultiplier = 1.1

// fixerThreshold flags listings priced well below the set median per sqft.
const fixerThreshold = 0.8

// minSampleSize guards the quartile math: with fewer non-null values the
// floor-index quartiles are meaningless, so classification is skipped.
const minSampleSize = 4

// PricePerSqft returns close price divided by living area, or nil when the
// area is missing or zero. Never divides by zero.
func PricePerSqft(closePrice, livingArea *float64) *float64 {
	if closePrice == nil || livingArea == nil || *livingArea == 0 {
		return nil
	}
	v := *closePrice / *livingArea
	return &v
}

// ARV estimates after-repair value from the close price, rounded to the
// nearest whole unit. Nil when the close price is absent.
func ARV(closePrice *float64) *float64 {
	if closePrice == nil {
		return nil
	}
	v := math.Round(*closePrice * arvMultiplier)
	return &v
}

// Round2 rounds to 2 decimal places for output; internal comparisons use
// full precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Compute derives the set-level price-per-sqft statistics from the non-nil
// values in the input. The quartile indices use floor, not interpolation;
// for even n the median is the lower-middle element. This indexing is what
// downstream consumers were calibrated against and must not be "corrected".
func Compute(values []*float64) models.CompStats {
	nonNil := make([]float64, 0, len(values))
	for _, v := range values {
		if v != nil {
			nonNil = append(nonNil, *v)
		}
	}
	sort.Float64s(nonNil)

	s := models.CompStats{Count: len(nonNil)}
	if len(nonNil) < minSampleSize {
		return s
	}

	n := len(nonNil)
	s.Median = nonNil[n/2]
	s.Q1 = nonNil[int(math.Floor(float64(n)*0.25))]
	s.Q3 = nonNil[int(math.Floor(float64(n)*0.75))]
	s.IQR = s.Q3 - s.Q1
	s.LowerBound = s.Q1 - 1.5*s.IQR
	s.UpperBound = s.Q3 + 1.5*s.IQR
	s.Valid = true

	return s
}

// IsFixer reports whether the price per sqft sits below 80% of the set
// median. Always false for a nil value or invalid stats.
func IsFixer(pricePerSqft *float64, s models.CompStats) bool {
	if pricePerSqft == nil || !s.Valid {
		return false
	}
	return *pricePerSqft < s.Median*fixerThreshold
}

// IsOutlier reports whether the price per sqft falls outside the IQR fence.
// Always false for a nil value or invalid stats.
func IsOutlier(pricePerSqft *float64, s models.CompStats) bool {
	if pricePerSqft == nil || !s.Valid {
		return false
	}
	return *pricePerSqft < s.LowerBound || *pricePerSqft > s.UpperBound
}
