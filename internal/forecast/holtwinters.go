// Package forecast implements additive Holt-Winters triple exponential
// smoothing for weekly surveillance series.
package forecast

import "fmt"

// Config controls the smoothing model.
type Config struct {
	// SeasonLength is the number of observations per season. Weekly series
	// with a yearly cycle use 52.
	SeasonLength int
	// Horizon is the number of future points to forecast.
	Horizon int
	// Smoothing factors for level, trend and seasonality. Zero values take
	// the defaults.
	Alpha float64
	Beta  float64
	Gamma float64
}

func (c *Config) applyDefaults() {
	if c.SeasonLength <= 0 {
		c.SeasonLength = 52
	}
	if c.Horizon <= 0 {
		c.Horizon = 24
	}
	if c.Alpha == 0 {
		c.Alpha = 0.25
	}
	if c.Beta == 0 {
		c.Beta = 0.05
	}
	if c.Gamma == 0 {
		c.Gamma = 0.3
	}
}

// Forecast fits an additive Holt-Winters model to the series and returns
// Horizon future values. The series must cover at least two full seasons.
func Forecast(series []float64, cfg Config) ([]float64, error) {
	cfg.applyDefaults()
	m := cfg.SeasonLength

	if len(series) < 2*m {
		return nil, fmt.Errorf("need at least %d observations for season length %d, got %d",
			2*m, m, len(series))
	}

	level, trend, seasonals := initialState(series, m)

	for i := m; i < len(series); i++ {
		value := series[i]
		season := seasonals[i%m]

		prevLevel := level
		level = cfg.Alpha*(value-season) + (1-cfg.Alpha)*(level+trend)
		trend = cfg.Beta*(level-prevLevel) + (1-cfg.Beta)*trend
		seasonals[i%m] = cfg.Gamma*(value-level) + (1-cfg.Gamma)*season
	}

	out := make([]float64, cfg.Horizon)
	n := len(series)
	for h := 1; h <= cfg.Horizon; h++ {
		out[h-1] = level + float64(h)*trend + seasonals[(n+h-1)%m]
	}
	return out, nil
}

// initialState derives starting level, trend and seasonal components from
// the first two seasons of the series.
func initialState(series []float64, m int) (level, trend float64, seasonals []float64) {
	var firstSum, secondSum float64
	for i := 0; i < m; i++ {
		firstSum += series[i]
		secondSum += series[m+i]
	}
	firstAvg := firstSum / float64(m)
	secondAvg := secondSum / float64(m)

	level = firstAvg
	trend = (secondAvg - firstAvg) / float64(m)

	// Seasonal indices averaged over all complete seasons, with the trend
	// removed so a rising series does not leak into the seasonal component
	seasons := len(series) / m
	seasonals = make([]float64, m)
	for i := 0; i < m; i++ {
		var dev float64
		for s := 0; s < seasons; s++ {
			var seasonSum float64
			for j := 0; j < m; j++ {
				seasonSum += series[s*m+j]
			}
			dev += series[s*m+i] - seasonSum/float64(m) - trend*(float64(i)-float64(m-1)/2)
		}
		seasonals[i] = dev / float64(seasons)
	}
	return level, trend, seasonals
}
