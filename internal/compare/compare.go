// Package compare places a user's premium estimate within the premium range
// observed for their age group, and renders the amounts shown next to it.
//
// Everything here is pure: no I/O, no shared state.
package compare

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/tbourn/go-premium-backend/internal/domain"
)

// ErrRangeUnavailable means the cohort range cannot support a comparison:
// min or max is missing, or they are equal.
var ErrRangeUnavailable = errors.New("premium range unavailable")

// FallbackMessage is shown instead of a placement when ErrRangeUnavailable.
const FallbackMessage = "Not enough data for your age group to build a comparison."

// Range is the (min, avg, max) premium for a cohort. Nil bounds are unknown.
type Range struct {
	Min *float64
	Avg *float64
	Max *float64
}

// RangeOf extracts the Range from a prediction's age-group analysis.
// A nil analysis yields an empty Range.
func RangeOf(a *domain.AgeGroupAnalysis) Range {
	if a == nil {
		return Range{}
	}
	return Range{Min: a.MinPremium, Avg: a.AvgPremium, Max: a.MaxPremium}
}

// Placement is where the user's estimate and the cohort average sit on a
// 0..100 scale running from the cohort minimum to its maximum.
type Placement struct {
	UserPercent float64  `json:"user_percent" example:"47.5"`
	AvgPercent  *float64 `json:"avg_percent"  example:"40"`
}

// Place computes the placement of userPrice within r. Both percentages are
// clamped to [0, 100]; AvgPercent is nil when r.Avg is.
func Place(userPrice float64, r Range) (Placement, error) {
	if r.Min == nil || r.Max == nil {
		return Placement{}, ErrRangeUnavailable
	}
	span := *r.Max - *r.Min
	if span == 0 {
		return Placement{}, ErrRangeUnavailable
	}

	p := Placement{UserPercent: percent(userPrice, *r.Min, span)}
	if r.Avg != nil {
		avg := percent(*r.Avg, *r.Min, span)
		p.AvgPercent = &avg
	}
	return p, nil
}

func percent(x, min, span float64) float64 {
	v := (x - min) / span * 100
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// Summary is the caption displayed under a placement.
func Summary(ageRange string) string {
	return fmt.Sprintf("This shows where your estimate falls within the actual premium range for ages %s.", ageRange)
}

// MonthlyEquivalent is the annual premium spread over twelve months, rounded
// half away from zero to whole currency units.
func MonthlyEquivalent(annual float64) int64 {
	return decimal.NewFromFloat(annual).Div(decimal.NewFromInt(12)).Round(0).IntPart()
}

// Round rounds amount half away from zero to whole currency units.
func Round(amount float64) int64 {
	return decimal.NewFromFloat(amount).Round(0).IntPart()
}

var inr = message.NewPrinter(language.MustParse("en-IN"))

// FormatINR renders amount in rupees with en-IN digit grouping and no
// fraction digits, e.g. 12345.6 -> "₹12,346".
func FormatINR(amount float64) string {
	return "₹" + inr.Sprint(number.Decimal(Round(amount)))
}
