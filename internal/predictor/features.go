// Package predictor talks to the premium prediction service.
//
// It has two halves: BuildFeatureInput turns raw user metrics (height, weight
// and so on) into the normalized FeatureInput the model expects, and Client
// sends that payload to an estimate endpoint over HTTP JSON. The endpoint may
// be the upstream model service itself or this backend's own /api/predict
// relay; both speak the same contract.
package predictor

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tbourn/go-premium-backend/internal/domain"
)

// ErrValidation is returned by BuildFeatureInput when a metric is missing or
// out of range. The wrapped message names the offending field.
var ErrValidation = errors.New("invalid metrics")

// MetricsForm holds the raw values collected from the user. Nil means the
// field was left empty.
type MetricsForm struct {
	Age            *int
	HeightCm       *float64
	WeightKg       *float64
	AnyTransplants *bool
	Surgeries      *int
}

// BuildFeatureInput validates the form and derives the model payload.
// BMI is weight / (height in metres)^2 rounded half away from zero to two
// decimal places.
func BuildFeatureInput(f MetricsForm) (domain.FeatureInput, error) {
	switch {
	case f.Age == nil:
		return domain.FeatureInput{}, missing("age")
	case f.HeightCm == nil:
		return domain.FeatureInput{}, missing("height")
	case f.WeightKg == nil:
		return domain.FeatureInput{}, missing("weight")
	case f.AnyTransplants == nil:
		return domain.FeatureInput{}, missing("anyTransplants")
	case f.Surgeries == nil:
		return domain.FeatureInput{}, missing("numberOfMajorSurgeries")
	}

	if *f.Age <= 0 {
		return domain.FeatureInput{}, fmt.Errorf("%w: age must be positive", ErrValidation)
	}
	if *f.HeightCm <= 0 {
		return domain.FeatureInput{}, fmt.Errorf("%w: height must be positive", ErrValidation)
	}
	if *f.WeightKg <= 0 {
		return domain.FeatureInput{}, fmt.Errorf("%w: weight must be positive", ErrValidation)
	}
	if *f.Surgeries < 0 {
		return domain.FeatureInput{}, fmt.Errorf("%w: numberOfMajorSurgeries must not be negative", ErrValidation)
	}

	transplants := 0
	if *f.AnyTransplants {
		transplants = 1
	}

	return domain.FeatureInput{
		Age:                    *f.Age,
		BMI:                    BMI(*f.HeightCm, *f.WeightKg),
		AnyTransplants:         transplants,
		NumberOfMajorSurgeries: *f.Surgeries,
	}, nil
}

// BMI computes the body-mass index for a height in centimetres and a weight
// in kilograms, rounded to two decimal places. heightCm must be positive.
func BMI(heightCm, weightKg float64) float64 {
	m := decimal.NewFromFloat(heightCm).Div(decimal.NewFromInt(100))
	return decimal.NewFromFloat(weightKg).Div(m.Mul(m)).Round(2).InexactFloat64()
}

func missing(field string) error {
	return fmt.Errorf("%w: %s is required", ErrValidation, field)
}
