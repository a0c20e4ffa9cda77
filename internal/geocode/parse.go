package geocode

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// geonamesColumns is the column count of the GeoNames "geoname" table dumps.
const geonamesColumns = 19

// City is one row of the GeoNames cities1000 dataset, reduced to the fields
// the geocoder uses.
type City struct {
	GeoNameID      int
	Name           string
	ASCIIName      string
	AlternateNames string // comma-separated, kept raw for substring matching
	Latitude       float64
	Longitude      float64
	CountryCode    string // ISO-3166 alpha-2, upper case
	Admin1Code     string
	Population     int64
	Timezone       string
}

// ParseCities reads a GeoNames tab-separated dump. Malformed rows are
// skipped; the number of skipped rows is returned alongside the cities.
func ParseCities(r io.Reader) ([]City, int, error) {
	scanner := bufio.NewScanner(r)
	// Alternate-name lists can make rows several KB long
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cities []City
	skipped := 0

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < geonamesColumns {
			skipped++
			continue
		}

		city, err := parseRow(fields)
		if err != nil {
			skipped++
			continue
		}
		cities = append(cities, city)
	}

	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("failed to read dataset: %w", err)
	}

	return cities, skipped, nil
}

func parseRow(fields []string) (City, error) {
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return City{}, fmt.Errorf("invalid geonameid %q: %w", fields[0], err)
	}

	lat, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return City{}, fmt.Errorf("invalid latitude %q: %w", fields[4], err)
	}

	lon, err := strconv.ParseFloat(fields[5], 64)
	if err != nil {
		return City{}, fmt.Errorf("invalid longitude %q: %w", fields[5], err)
	}

	// Population may be empty for some entries
	var population int64
	if fields[14] != "" {
		population, err = strconv.ParseInt(fields[14], 10, 64)
		if err != nil {
			return City{}, fmt.Errorf("invalid population %q: %w", fields[14], err)
		}
	}

	return City{
		GeoNameID:      id,
		Name:           fields[1],
		ASCIIName:      fields[2],
		AlternateNames: fields[3],
		Latitude:       lat,
		Longitude:      lon,
		CountryCode:    strings.ToUpper(fields[8]),
		Admin1Code:     fields[10],
		Population:     population,
		Timezone:       fields[17],
	}, nil
}
