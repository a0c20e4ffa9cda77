package location

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/ceyeborg/virusradar/internal/geocode"
	"github.com/ceyeborg/virusradar/internal/logger"
)

// ErrOutsideGermany is returned when an IP geolocates outside Germany.
// The surveillance data only covers German reporting regions.
var ErrOutsideGermany = errors.New("location is outside of Germany")

// Location is a resolved viewer location.
type Location struct {
	IP            string  `json:"ip,omitempty"`
	City          string  `json:"city,omitempty"`
	Country       string  `json:"country,omitempty"`
	Province      string  `json:"province,omitempty"`
	ProvinceShort string  `json:"province_short,omitempty"`
	Region        string  `json:"region,omitempty"`
	Latitude      float64 `json:"latitude,omitempty"`
	Longitude     float64 `json:"longitude,omitempty"`
}

// Lookuper geolocates an IP address. Satisfied by IPInfoClient.
type Lookuper interface {
	Lookup(ctx context.Context, ip string) (*Info, error)
}

// Manager resolves locations via IP geolocation plus local reverse geocoding.
type Manager struct {
	client Lookuper
	geo    *geocode.Geocoder
	log    *logger.Logger
}

// NewManager builds a location manager. geo may be nil, in which case reverse
// geocoding from coordinates is unavailable.
func NewManager(client Lookuper, geo *geocode.Geocoder, log *logger.Logger) *Manager {
	return &Manager{client: client, geo: geo, log: log}
}

// ClientIP extracts the caller's IP from a request. Behind a reverse proxy
// the first entry of X-Forwarded-For is the original client.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Resolve geolocates an IP and derives the federal state and reporting
// region. Non-German results return ErrOutsideGermany.
func (m *Manager) Resolve(ctx context.Context, ip string) (Location, error) {
	if ip == "" {
		return Location{}, fmt.Errorf("no client IP to resolve")
	}

	info, err := m.client.Lookup(ctx, ip)
	if err != nil {
		return Location{}, fmt.Errorf("failed to geolocate %s: %w", ip, err)
	}

	if info.Country != "DE" {
		m.log.Warn("viewer outside of Germany",
			logger.Field{Key: "ip", Value: ip},
			logger.Field{Key: "country", Value: info.Country})
		return Location{IP: ip, Country: info.Country}, ErrOutsideGermany
	}

	loc := Location{
		IP:       ip,
		City:     info.City,
		Country:  info.Country,
		Province: info.Region,
	}

	if lat, lon, err := info.Coordinates(); err == nil {
		loc.Latitude = lat
		loc.Longitude = lon
	} else {
		m.log.Warn("geolocation response has no usable coordinates",
			logger.Field{Key: "ip", Value: ip},
			logger.Field{Key: "loc", Value: info.Loc})
	}

	m.fillProvince(&loc)
	return loc, nil
}

// FromCoordinates resolves a location from raw coordinates, e.g. when the
// viewer shares their position directly instead of being geolocated.
func (m *Manager) FromCoordinates(lat, lon float64) (Location, error) {
	loc := Location{Country: "DE", Latitude: lat, Longitude: lon}
	m.fillProvince(&loc)
	if loc.Province == "" {
		return loc, fmt.Errorf("no federal state found near %f,%f", lat, lon)
	}
	return loc, nil
}

// fillProvince completes the province, short code and region fields. A
// province missing from the geolocation response is recovered by reverse
// geocoding the coordinates against the GeoNames dataset.
func (m *Manager) fillProvince(loc *Location) {
	if loc.Province != "" {
		if _, known := ProvinceShort(loc.Province); !known {
			// ipinfo may report a spelling the maps do not carry
			loc.Province = ""
		}
	}

	if loc.Province == "" && m.geo != nil && (loc.Latitude != 0 || loc.Longitude != 0) {
		if city, ok := m.geo.Nearest(loc.Latitude, loc.Longitude, "DE"); ok {
			if province, ok := ProvinceFromAdmin1(city.Admin1Code); ok {
				loc.Province = province
				if loc.City == "" {
					loc.City = city.Name
				}
			}
		}
	}

	if loc.Province == "" {
		return
	}

	if short, ok := ProvinceShort(loc.Province); ok {
		loc.ProvinceShort = short
		if region, ok := ProvinceRegion(short); ok {
			loc.Region = region
		}
	}
}
