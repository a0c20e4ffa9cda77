// Package geocode provides a local geocoder backed by the GeoNames cities1000
// dataset. It resolves city names to coordinates and coordinates to the
// nearest known city, without calling any external geocoding service.
package geocode

import (
	"fmt"
	"os"
	"strings"

	"github.com/ceyeborg/virusradar/internal/logger"
)

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Geocoder holds the parsed cities1000 dataset in memory.
type Geocoder struct {
	cities []City
	log    *logger.Logger
}

// NewFromFile parses an extracted GeoNames dump into a geocoder.
func NewFromFile(path string, log *logger.Logger) (*Geocoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geonames dataset: %w", err)
	}
	defer f.Close()

	cities, skipped, err := ParseCities(f)
	if err != nil {
		return nil, err
	}
	if len(cities) == 0 {
		return nil, fmt.Errorf("geonames dataset %s contains no usable rows", path)
	}

	log.Info("geonames dataset loaded",
		logger.Field{Key: "path", Value: path},
		logger.Field{Key: "cities", Value: len(cities)},
		logger.Field{Key: "skipped_rows", Value: skipped})

	return &Geocoder{cities: cities, log: log}, nil
}

// NewFromCities builds a geocoder from an in-memory city list. Used by tests
// and by callers that already hold parsed rows.
func NewFromCities(cities []City, log *logger.Logger) *Geocoder {
	return &Geocoder{cities: cities, log: log}
}

// Len returns the number of indexed cities.
func (g *Geocoder) Len() int {
	return len(g.cities)
}

// Lookup resolves a city name to coordinates. The optional country filter is
// an ISO-3166 alpha-2 code, case insensitive.
//
// Matching falls through three columns: exact name, ASCII name (with the
// query's diacritics folded), then substring of the alternate-names list.
// Multiple hits resolve to the most populous city.
func (g *Geocoder) Lookup(city, country string) (Coordinates, bool) {
	if city == "" {
		return Coordinates{}, false
	}

	query := strings.ToLower(city)
	folded := strings.ToLower(Fold(city))
	countryFilter := strings.ToUpper(country)

	var best *City

	consider := func(c *City) {
		if best == nil || c.Population > best.Population {
			best = c
		}
	}

	match := func(pred func(*City) bool) bool {
		best = nil
		for i := range g.cities {
			c := &g.cities[i]
			if countryFilter != "" && c.CountryCode != countryFilter {
				continue
			}
			if pred(c) {
				consider(c)
			}
		}
		return best != nil
	}

	ok := match(func(c *City) bool { return strings.ToLower(c.Name) == query }) ||
		match(func(c *City) bool { return strings.ToLower(c.ASCIIName) == folded }) ||
		match(func(c *City) bool {
			return strings.Contains(strings.ToLower(c.AlternateNames), query)
		})

	if !ok {
		return Coordinates{}, false
	}

	return Coordinates{Latitude: best.Latitude, Longitude: best.Longitude}, true
}

// Nearest returns the indexed city closest to the given coordinates,
// optionally restricted to one country. Distance is squared coordinate
// distance; adequate at the regional scale this serves.
func (g *Geocoder) Nearest(lat, lon float64, country string) (City, bool) {
	countryFilter := strings.ToUpper(country)

	var best *City
	var bestDist float64

	for i := range g.cities {
		c := &g.cities[i]
		if countryFilter != "" && c.CountryCode != countryFilter {
			continue
		}
		dLat := c.Latitude - lat
		dLon := c.Longitude - lon
		dist := dLat*dLat + dLon*dLon
		if best == nil || dist < bestDist {
			best = c
			bestDist = dist
		}
	}

	if best == nil {
		return City{}, false
	}
	return *best, true
}
