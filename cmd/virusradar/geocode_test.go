package main

import (
	"testing"
)

func TestGeocodeCmd_HasNearestSubcommand(t *testing.T) {
	names := make(map[string]bool)
	for _, sub := range geocodeCmd.Commands() {
		names[sub.Name()] = true
	}

	for _, want := range []string{"lookup", "nearest", "dumps"} {
		if !names[want] {
			t.Errorf("geocode command is missing the %q subcommand", want)
		}
	}
}

func TestParseLatLon(t *testing.T) {
	tests := []struct {
		name    string
		lat     string
		lon     string
		wantLat float64
		wantLon float64
		wantErr bool
	}{
		{name: "munich", lat: "48.1374", lon: "11.5755", wantLat: 48.1374, wantLon: 11.5755},
		{name: "negative longitude", lat: "52.52", lon: "-13.40", wantLat: 52.52, wantLon: -13.40},
		{name: "latitude not a number", lat: "north", lon: "11.5", wantErr: true},
		{name: "longitude not a number", lat: "48.1", lon: "east", wantErr: true},
		{name: "latitude out of range", lat: "91.0", lon: "11.5", wantErr: true},
		{name: "longitude out of range", lat: "48.1", lon: "181.0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lon, err := parseLatLon(tt.lat, tt.lon)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseLatLon(%q, %q) error = nil, want error", tt.lat, tt.lon)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseLatLon(%q, %q) error = %v", tt.lat, tt.lon, err)
			}
			if lat != tt.wantLat || lon != tt.wantLon {
				t.Errorf("parseLatLon(%q, %q) = %v, %v, want %v, %v",
					tt.lat, tt.lon, lat, lon, tt.wantLat, tt.wantLon)
			}
		})
	}
}
