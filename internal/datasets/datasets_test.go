package datasets

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyeborg/virusradar/internal/config"
	"github.com/ceyeborg/virusradar/internal/geocode"
	"github.com/ceyeborg/virusradar/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	return log
}

const grippewebTSV = `Kalenderwoche	Region	Altersgruppe	Erkrankung	Inzidenz
2024-W01	Bundesweit	00+	ARE	6500
2024-W01	Bundesweit	0-4	ARE	9000
2024-W01	Sueden	00+	ILI	1200
2024-W02	Sueden	00+	ILI	1500
not-a-week	Sueden	00+	ILI	1500
2024-W02	Sueden	00+	ILI	abc
`

const abwasserTSV = `standort	bundesland	datum	typ	viruslast	loess_vorhersage
Muenchen	BY	2024-01-05	SARS-CoV-2	120000	110000
Muenchen	BY	2024-01-12	SARS-CoV-2	130000	125000
Muenchen	BY	2024-01-05	Influenza A+B	500	450
Berlin	BE	2024-01-05	SARS-CoV-2	90000	NA
Berlin	BE	bad-date	SARS-CoV-2	90000	80000
`

func TestParseGrippeWeb(t *testing.T) {
	records, skipped, err := ParseGrippeWeb(strings.NewReader(grippewebTSV))
	require.NoError(t, err)

	assert.Len(t, records, 4)
	assert.Equal(t, 2, skipped)

	first := records[0]
	assert.Equal(t, "2024-W01", first.CalendarWeek)
	assert.Equal(t, "Bundesweit", first.Region)
	assert.Equal(t, IllnessARE, first.Illness)
	assert.InDelta(t, 6.5, first.PercentInfected, 0.0001)

	// ISO week 2024-W01 runs Mon 2024-01-01 to Sun 2024-01-07
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, time.Friday, first.Date.Weekday())
}

func TestCalendarWeekFriday(t *testing.T) {
	tests := []struct {
		week string
		want string
	}{
		{"2024-W01", "2024-01-05"},
		{"2024-W52", "2024-12-27"},
		{"2021-W01", "2021-01-08"},
		{"2020-W53", "2021-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.week, func(t *testing.T) {
			date, err := calendarWeekFriday(tt.week)
			require.NoError(t, err)
			assert.Equal(t, tt.want, date.Format("2006-01-02"))
			assert.Equal(t, time.Friday, date.Weekday())
		})
	}

	_, err := calendarWeekFriday("2024-05")
	assert.Error(t, err)
	_, err = calendarWeekFriday("2024-W60")
	assert.Error(t, err)
}

func TestParseAbwasser(t *testing.T) {
	records, skipped, err := ParseAbwasser(strings.NewReader(abwasserTSV))
	require.NoError(t, err)

	// Influenza A+B row is excluded, bad-date row is skipped
	assert.Len(t, records, 3)
	assert.Equal(t, 1, skipped)

	for _, rec := range records {
		assert.NotEqual(t, "Influenza A+B", rec.Virus)
	}

	berlin := records[2]
	assert.Equal(t, "Berlin", berlin.Station)
	require.NotNil(t, berlin.ViralLoad)
	assert.InDelta(t, 90000, *berlin.ViralLoad, 0.1)
	assert.Nil(t, berlin.Smoothed)
}

func writeDatasets(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	gw := filepath.Join(dir, "grippeweb.tsv")
	aw := filepath.Join(dir, "abwasser.tsv")
	require.NoError(t, os.WriteFile(gw, []byte(grippewebTSV), 0644))
	require.NoError(t, os.WriteFile(aw, []byte(abwasserTSV), 0644))
	return gw, aw
}

func TestStoreQueries(t *testing.T) {
	gw, aw := writeDatasets(t)
	store := NewStore(gw, aw, testLogger(t))

	_, loaded := store.Loaded()
	assert.False(t, loaded)

	require.NoError(t, store.Reload())
	_, loaded = store.Loaded()
	assert.True(t, loaded)

	assert.Equal(t, []string{"Bundesweit", "Sueden"}, store.Regions())

	sueden := store.GrippeWeb("Sueden", nil)
	require.Len(t, sueden, 2)
	assert.True(t, sueden[0].Date.Before(sueden[1].Date))

	byAge := store.GrippeWeb("Bundesweit", []string{"0-4"})
	require.Len(t, byAge, 1)
	assert.Equal(t, "0-4", byAge[0].AgeGroup)

	series, last := store.GrippeWebSeries("Sueden", IllnessILI)
	require.Len(t, series, 2)
	assert.InDelta(t, 1.2, series[0], 0.0001)
	assert.InDelta(t, 1.5, series[1], 0.0001)
	assert.Equal(t, "2024-01-12", last.Format("2006-01-02"))

	muenchen := store.Abwasser("Muenchen")
	assert.Len(t, muenchen, 2)

	stations := store.Stations()
	require.Len(t, stations, 2)
	assert.Equal(t, Station{Name: "Berlin", State: "BE"}, stations[0])
	assert.Equal(t, Station{Name: "Muenchen", State: "BY"}, stations[1])

	assert.Equal(t, "2024-01-12", store.LastUpdated().Format("2006-01-02"))
}

func TestStoreNearestStation(t *testing.T) {
	gw, aw := writeDatasets(t)
	store := NewStore(gw, aw, testLogger(t))
	require.NoError(t, store.Reload())

	geo := geocode.NewFromCities([]geocode.City{
		{GeoNameID: 1, Name: "Muenchen", ASCIIName: "Muenchen", Latitude: 48.14, Longitude: 11.58, CountryCode: "DE", Admin1Code: "02", Population: 1260391},
		{GeoNameID: 2, Name: "Berlin", ASCIIName: "Berlin", Latitude: 52.52, Longitude: 13.41, CountryCode: "DE", Admin1Code: "16", Population: 3426354},
	}, testLogger(t))

	station, ok := store.NearestStation(geo, 48.0, 11.5)
	require.True(t, ok)
	assert.Equal(t, "Muenchen", station.Name)

	station, ok = store.NearestStation(geo, 52.5, 13.4)
	require.True(t, ok)
	assert.Equal(t, "Berlin", station.Name)
}

func TestUpdaterDownloadsAtomically(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/grippeweb.tsv":
			w.Write([]byte(grippewebTSV))
		case "/abwasser.tsv":
			w.Write([]byte(abwasserTSV))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	dataDir := t.TempDir()
	sources := []config.DatasetSource{
		{Name: GrippeWebName, URL: srv.URL + "/grippeweb.tsv", Filename: "grippeweb.tsv"},
		{Name: AbwasserName, URL: srv.URL + "/abwasser.tsv", Filename: "abwasser.tsv"},
	}

	reg := prometheus.NewRegistry()
	updater := NewUpdater(sources, dataDir, 10*time.Second, testLogger(t), NewMetrics(reg))

	require.NoError(t, updater.UpdateAll(t.Context()))

	content, err := os.ReadFile(filepath.Join(dataDir, "grippeweb.tsv"))
	require.NoError(t, err)
	assert.Equal(t, grippewebTSV, string(content))

	assert.Equal(t, filepath.Join(dataDir, "grippeweb.tsv"), updater.Path(GrippeWebName))
	assert.Equal(t, "", updater.Path("unknown"))

	count := testutil.ToFloat64(updater.metrics.UpdatesTotal.WithLabelValues(GrippeWebName, "success"))
	assert.Equal(t, 1.0, count)
}

func TestUpdaterKeepsOldFileOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dataDir := t.TempDir()
	existing := filepath.Join(dataDir, "grippeweb.tsv")
	require.NoError(t, os.WriteFile(existing, []byte("previous"), 0644))

	sources := []config.DatasetSource{
		{Name: GrippeWebName, URL: srv.URL + "/grippeweb.tsv", Filename: "grippeweb.tsv"},
	}
	updater := NewUpdater(sources, dataDir, 10*time.Second, testLogger(t), nil)

	err := updater.UpdateAll(t.Context())
	require.Error(t, err)

	content, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(content))
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "datasets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`sources:
  - name: grippeweb
    url: https://example.org/grippeweb.tsv
    filename: grippeweb.tsv
    info_url: https://example.org/about
`), 0644))

	sources, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "grippeweb", sources[0].Name)
	assert.Equal(t, "grippeweb.tsv", sources[0].Filename)
}

func TestLoadManifestRejectsIncomplete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "datasets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sources:\n  - name: broken\n"), 0644))

	_, err := LoadManifest(path)
	require.Error(t, err)

	_, err = LoadManifest(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
