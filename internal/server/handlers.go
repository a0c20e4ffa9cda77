package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ceyeborg/virusradar/internal/datasets"
	"github.com/ceyeborg/virusradar/internal/forecast"
	"github.com/ceyeborg/virusradar/internal/freshness"
	"github.com/ceyeborg/virusradar/internal/location"
	"github.com/ceyeborg/virusradar/internal/logger"
	"github.com/ceyeborg/virusradar/internal/version"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": version.Version,
	}

	if loadedAt, ok := s.store.Loaded(); ok {
		resp["data_loaded_at"] = loadedAt.UTC().Format(time.RFC3339)
		resp["last_measurement"] = s.store.LastUpdated().Format("2006-01-02")
	} else {
		resp["status"] = "degraded"
		resp["detail"] = "datasets not loaded yet"
	}

	if s.checker != nil {
		statuses := s.checker.Check(r.Context())
		resp["freshness"] = statuses
		resp["freshness_summary"] = freshness.Summary(statuses)
	}

	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	if s.locations == nil {
		s.respondError(w, http.StatusNotImplemented, "location resolution is disabled")
		return
	}

	ip := location.ClientIP(r)
	loc, err := s.locations.Resolve(r.Context(), ip)
	switch {
	case errors.Is(err, location.ErrOutsideGermany):
		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"location": loc,
			"note":     "data is only available for Germany",
		})
	case err != nil:
		s.log.Warn("location resolution failed",
			logger.Field{Key: "ip", Value: ip},
			logger.Field{Key: "error", Value: err.Error()})
		s.respondError(w, http.StatusBadGateway, "could not resolve location")
	default:
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"location": loc})
	}
}

// forecastPoint is one predicted value on the weekly grid.
type forecastPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

func (s *Server) handleGrippeWeb(w http.ResponseWriter, r *http.Request) {
	region := r.URL.Query().Get("region")
	if region == "" {
		region = datasets.NationwideRegion
	}

	var ages []string
	if raw := r.URL.Query().Get("ages"); raw != "" {
		ages = strings.Split(raw, ",")
	}

	records := s.store.GrippeWeb(region, ages)
	resp := map[string]interface{}{
		"region":  region,
		"records": records,
	}

	if r.URL.Query().Get("forecast") == "true" {
		forecasts := make(map[string][]forecastPoint)
		for _, illness := range []string{datasets.IllnessARE, datasets.IllnessILI} {
			series, lastDate := s.store.GrippeWebSeries(region, illness)
			points, err := forecast.Forecast(series, forecast.Config{Horizon: s.forecastHorizon})
			if err != nil {
				s.log.Debug("forecast unavailable",
					logger.Field{Key: "region", Value: region},
					logger.Field{Key: "illness", Value: illness},
					logger.Field{Key: "reason", Value: err.Error()})
				continue
			}
			forecasts[illness] = onWeeklyGrid(points, lastDate)
		}
		resp["forecast"] = forecasts
	}

	s.respondJSON(w, http.StatusOK, resp)
}

// onWeeklyGrid assigns forecast values to the Fridays following the last
// observed date.
func onWeeklyGrid(values []float64, lastDate time.Time) []forecastPoint {
	points := make([]forecastPoint, len(values))
	for i, v := range values {
		date := lastDate.AddDate(0, 0, 7*(i+1))
		points[i] = forecastPoint{Date: date.Format("2006-01-02"), Value: v}
	}
	return points
}

func (s *Server) handleAbwasser(w http.ResponseWriter, r *http.Request) {
	station := r.URL.Query().Get("station")
	records := s.store.Abwasser(station)

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"station": station,
		"records": records,
	})
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"stations": s.store.Stations(),
	})
}

func (s *Server) handleNearestStation(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		s.respondError(w, http.StatusBadRequest, "lat and lon query parameters are required")
		return
	}

	station, ok := s.store.NearestStation(s.geo, lat, lon)
	if !ok {
		s.respondError(w, http.StatusNotFound, "no station could be located")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"station": station})
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	descriptions := datasets.FetchDescriptions(r.Context(), s.sources)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service":  "VirusRadar",
		"version":  version.String(),
		"datasets": descriptions,
	})
}
