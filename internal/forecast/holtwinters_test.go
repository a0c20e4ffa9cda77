package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seasonalSeries builds n points of a rising sine wave with the given period.
func seasonalSeries(n, period int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 10 +
			0.05*float64(i) +
			5*math.Sin(2*math.Pi*float64(i)/float64(period))
	}
	return out
}

func TestForecast_TooShort(t *testing.T) {
	_, err := Forecast(seasonalSeries(80, 52), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 104 observations")
}

func TestForecast_HorizonLength(t *testing.T) {
	points, err := Forecast(seasonalSeries(156, 52), Config{})
	require.NoError(t, err)
	assert.Len(t, points, 24)

	points, err = Forecast(seasonalSeries(156, 52), Config{Horizon: 8})
	require.NoError(t, err)
	assert.Len(t, points, 8)
}

func TestForecast_TracksSeasonalPattern(t *testing.T) {
	const period = 12
	series := seasonalSeries(6*period, period)

	points, err := Forecast(series, Config{SeasonLength: period, Horizon: period})
	require.NoError(t, err)

	// The forecast continues the sine pattern, so each forecast point should
	// be close to the true continuation of the generator
	for h, got := range points {
		i := len(series) + h
		want := 10 + 0.05*float64(i) + 5*math.Sin(2*math.Pi*float64(i)/float64(period))
		assert.InDelta(t, want, got, 1.5, "horizon step %d", h+1)
	}
}

func TestForecast_ConstantSeries(t *testing.T) {
	series := make([]float64, 120)
	for i := range series {
		series[i] = 7.5
	}

	points, err := Forecast(series, Config{SeasonLength: 12, Horizon: 6})
	require.NoError(t, err)
	for _, p := range points {
		assert.InDelta(t, 7.5, p, 0.001)
	}
}

func TestForecast_UpwardTrend(t *testing.T) {
	series := make([]float64, 120)
	for i := range series {
		series[i] = float64(i)
	}

	points, err := Forecast(series, Config{SeasonLength: 12, Horizon: 12})
	require.NoError(t, err)

	// A pure linear series forecasts roughly its continuation
	for h, p := range points {
		assert.InDelta(t, float64(120+h), p, 3.0)
	}
}
