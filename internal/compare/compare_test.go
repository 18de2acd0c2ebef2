package compare

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-premium-backend/internal/domain"
)

func f(v float64) *float64 { return &v }

func TestPlace_Unavailable(t *testing.T) {
	cases := map[string]Range{
		"no min":    {Max: f(10)},
		"no max":    {Min: f(10)},
		"empty":     {},
		"zero span": {Min: f(5000), Avg: f(5000), Max: f(5000)},
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Place(100, r)
			assert.ErrorIs(t, err, ErrRangeUnavailable)
		})
	}
}

func TestPlace_KnownPoints(t *testing.T) {
	r := Range{Min: f(10000), Avg: f(20000), Max: f(30000)}

	p, err := Place(10000, r)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.UserPercent)

	p, err = Place(30000, r)
	require.NoError(t, err)
	assert.Equal(t, 100.0, p.UserPercent)

	p, err = Place(20000, r)
	require.NoError(t, err)
	assert.Equal(t, 50.0, p.UserPercent)
	require.NotNil(t, p.AvgPercent)
	assert.Equal(t, p.UserPercent, *p.AvgPercent)
}

func TestPlace_ClampsOutliers(t *testing.T) {
	r := Range{Min: f(10000), Avg: f(50000), Max: f(30000)}
	p, err := Place(1, r)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.UserPercent)
	assert.Equal(t, 100.0, *p.AvgPercent)

	p, err = Place(1e9, r)
	require.NoError(t, err)
	assert.Equal(t, 100.0, p.UserPercent)
}

func TestPlace_AbsentAverage(t *testing.T) {
	p, err := Place(15000, Range{Min: f(10000), Max: f(20000)})
	require.NoError(t, err)
	assert.Equal(t, 50.0, p.UserPercent)
	assert.Nil(t, p.AvgPercent)
}

func TestPlace_AlwaysWithinBounds(t *testing.T) {
	faker := gofakeit.New(7)
	for i := 0; i < 300; i++ {
		lo := faker.Float64Range(1000, 50000)
		hi := lo + faker.Float64Range(1, 50000)
		r := Range{Min: f(lo), Avg: f(faker.Float64Range(0, 120000)), Max: f(hi)}
		p, err := Place(faker.Float64Range(0, 150000), r)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p.UserPercent, 0.0)
		assert.LessOrEqual(t, p.UserPercent, 100.0)
		assert.GreaterOrEqual(t, *p.AvgPercent, 0.0)
		assert.LessOrEqual(t, *p.AvgPercent, 100.0)
	}
}

func TestRangeOf(t *testing.T) {
	assert.Equal(t, Range{}, RangeOf(nil))
	a := &domain.AgeGroupAnalysis{MinPremium: f(1), MaxPremium: f(3), AgeRange: "18-25"}
	r := RangeOf(a)
	assert.Same(t, a.MinPremium, r.Min)
	assert.Nil(t, r.Avg)
	assert.Same(t, a.MaxPremium, r.Max)
}

func TestMonthlyEquivalent(t *testing.T) {
	assert.Equal(t, int64(1000), MonthlyEquivalent(12000))
	assert.Equal(t, int64(2042), MonthlyEquivalent(24500.75))
	assert.Equal(t, int64(1), MonthlyEquivalent(6)) // 0.5 rounds up
	assert.Equal(t, int64(0), MonthlyEquivalent(0))
}

func TestFormatINR(t *testing.T) {
	assert.Equal(t, "₹12,345", FormatINR(12345))
	assert.Equal(t, "₹12,346", FormatINR(12345.6))
	assert.Equal(t, "₹999", FormatINR(999.4))
	assert.Equal(t, "₹0", FormatINR(0))
}

func TestSummary(t *testing.T) {
	assert.Contains(t, Summary("40-49"), "for ages 40-49.")
}

func TestRound_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, int64(3), Round(2.5))
	assert.Equal(t, int64(-3), Round(-2.5))
	assert.Equal(t, int64(2), Round(2.49))
}
