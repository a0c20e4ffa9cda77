package datasets

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/ceyeborg/virusradar/internal/geocode"
	"github.com/ceyeborg/virusradar/internal/logger"
)

// Dataset names matching the built-in sources.
const (
	GrippeWebName = "grippeweb"
	AbwasserName  = "abwasser"
)

// Station is a distinct wastewater treatment site.
type Station struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// Store holds the parsed datasets in memory and serves read queries. Reload
// swaps the data atomically, so readers never see a half-loaded state.
type Store struct {
	mu        sync.RWMutex
	grippeweb []GrippeWebRecord
	abwasser  []AbwasserRecord
	loadedAt  time.Time

	grippewebPath string
	abwasserPath  string
	log           *logger.Logger
}

// NewStore builds a store over the given dataset file paths.
func NewStore(grippewebPath, abwasserPath string, log *logger.Logger) *Store {
	return &Store{
		grippewebPath: grippewebPath,
		abwasserPath:  abwasserPath,
		log:           log,
	}
}

// Reload parses both dataset files and swaps them in.
func (s *Store) Reload() error {
	grippeweb, gwSkipped, err := loadGrippeWeb(s.grippewebPath)
	if err != nil {
		return err
	}
	abwasser, awSkipped, err := loadAbwasser(s.abwasserPath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.grippeweb = grippeweb
	s.abwasser = abwasser
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.log.Info("datasets loaded",
		logger.Field{Key: "grippeweb_rows", Value: len(grippeweb)},
		logger.Field{Key: "abwasser_rows", Value: len(abwasser)},
		logger.Field{Key: "skipped_rows", Value: gwSkipped + awSkipped})

	return nil
}

func loadGrippeWeb(path string) ([]GrippeWebRecord, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open grippeweb dataset: %w", err)
	}
	defer f.Close()
	return ParseGrippeWeb(f)
}

func loadAbwasser(path string) ([]AbwasserRecord, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open abwasser dataset: %w", err)
	}
	defer f.Close()
	return ParseAbwasser(f)
}

// Loaded reports whether the store holds data and when it was loaded.
func (s *Store) Loaded() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt, !s.loadedAt.IsZero()
}

// GrippeWeb returns records filtered by region and optionally by age
// groups, ordered by date.
func (s *Store) GrippeWeb(region string, ageGroups []string) []GrippeWebRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ages := make(map[string]bool, len(ageGroups))
	for _, a := range ageGroups {
		ages[a] = true
	}

	var out []GrippeWebRecord
	for _, rec := range s.grippeweb {
		if region != "" && rec.Region != region {
			continue
		}
		if len(ages) > 0 && !ages[rec.AgeGroup] {
			continue
		}
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// GrippeWebSeries returns the percent-infected series for one region and
// illness across all ages, ordered by date. Used as forecast input.
func (s *Store) GrippeWebSeries(region, illness string) ([]float64, time.Time) {
	records := s.GrippeWeb(region, []string{AllAges})

	var series []float64
	var last time.Time
	for _, rec := range records {
		if rec.Illness == illness {
			series = append(series, rec.PercentInfected)
			last = rec.Date
		}
	}
	return series, last
}

// Regions lists the distinct GrippeWeb regions, sorted.
func (s *Store) Regions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	for _, rec := range s.grippeweb {
		seen[rec.Region] = true
	}
	return sortedKeys(seen)
}

// Abwasser returns wastewater records, optionally filtered to one station,
// ordered by date.
func (s *Store) Abwasser(station string) []AbwasserRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []AbwasserRecord
	for _, rec := range s.abwasser {
		if station != "" && rec.Station != station {
			continue
		}
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Stations lists the distinct wastewater sites, sorted by name.
func (s *Store) Stations() []Station {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]string)
	for _, rec := range s.abwasser {
		if rec.Station != "" {
			seen[rec.Station] = rec.State
		}
	}

	stations := make([]Station, 0, len(seen))
	for name, state := range seen {
		stations = append(stations, Station{Name: name, State: state})
	}
	sort.Slice(stations, func(i, j int) bool { return stations[i].Name < stations[j].Name })
	return stations
}

// NearestStation finds the wastewater site closest to the coordinates by
// geocoding each station name and comparing squared coordinate distance.
// Stations the geocoder cannot place are skipped.
func (s *Store) NearestStation(geo *geocode.Geocoder, lat, lon float64) (Station, bool) {
	var best Station
	var bestDist float64
	found := false

	for _, station := range s.Stations() {
		coords, ok := geo.Lookup(station.Name, "DE")
		if !ok {
			continue
		}
		dLat := coords.Latitude - lat
		dLon := coords.Longitude - lon
		dist := dLat*dLat + dLon*dLon
		if !found || dist < bestDist {
			best = station
			bestDist = dist
			found = true
		}
	}
	return best, found
}

// LastUpdated returns the newest measurement date across both datasets.
func (s *Store) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	for _, rec := range s.grippeweb {
		if rec.Date.After(latest) {
			latest = rec.Date
		}
	}
	for _, rec := range s.abwasser {
		if rec.Date.After(latest) {
			latest = rec.Date
		}
	}
	return latest
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
