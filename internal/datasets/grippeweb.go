package datasets

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Illness codes used in the GrippeWeb dataset.
const (
	IllnessARE = "ARE" // acute respiratory illness
	IllnessILI = "ILI" // influenza-like illness
)

// Human-readable labels for the illness codes, as shown on the dashboard.
var IllnessLabels = map[string]string{
	IllnessARE: "Influenza, COVID-19 und RSV-Infektionen",
	IllnessILI: "Fieber mit Husten oder Halsschmerzen",
}

// NationwideRegion is the GrippeWeb region covering all of Germany. Age
// group breakdowns only exist for this region.
const NationwideRegion = "Bundesweit"

// AgeGroups lists the age group breakdowns available in the dataset.
var AgeGroups = []string{"0-4", "5-14", "15-34", "35-59", "60+"}

// AllAges is the age group covering the whole population.
const AllAges = "00+"

// GrippeWebRecord is one row of the GrippeWeb weekly report.
type GrippeWebRecord struct {
	CalendarWeek    string    `json:"calendar_week"`
	Date            time.Time `json:"date"`
	Region          string    `json:"region"`
	AgeGroup        string    `json:"age_group"`
	Illness         string    `json:"illness"`
	Incidence       float64   `json:"incidence"`
	PercentInfected float64   `json:"percent_infected"`
}

// ParseGrippeWeb reads the GrippeWeb TSV. Each ISO calendar week is mapped
// to its Friday, and the incidence per 100000 is derived into a population
// percentage. Malformed rows are skipped and counted.
func ParseGrippeWeb(r io.Reader) ([]GrippeWebRecord, int, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read grippeweb header: %w", err)
	}
	col, err := columnIndex(header, "Kalenderwoche", "Region", "Altersgruppe", "Erkrankung", "Inzidenz")
	if err != nil {
		return nil, 0, fmt.Errorf("grippeweb: %w", err)
	}

	var records []GrippeWebRecord
	skipped := 0

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		rec, err := parseGrippeWebRow(row, col)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	return records, skipped, nil
}

func parseGrippeWebRow(row []string, col map[string]int) (GrippeWebRecord, error) {
	for _, idx := range col {
		if idx >= len(row) {
			return GrippeWebRecord{}, fmt.Errorf("row has %d fields, need %d", len(row), idx+1)
		}
	}

	week := row[col["Kalenderwoche"]]
	date, err := calendarWeekFriday(week)
	if err != nil {
		return GrippeWebRecord{}, err
	}

	incidence, err := strconv.ParseFloat(row[col["Inzidenz"]], 64)
	if err != nil {
		return GrippeWebRecord{}, fmt.Errorf("invalid incidence %q: %w", row[col["Inzidenz"]], err)
	}

	return GrippeWebRecord{
		CalendarWeek:    week,
		Date:            date,
		Region:          row[col["Region"]],
		AgeGroup:        row[col["Altersgruppe"]],
		Illness:         row[col["Erkrankung"]],
		Incidence:       incidence,
		PercentInfected: incidence / 100000 * 100,
	}, nil
}

// calendarWeekFriday resolves an ISO week string like "2024-W05" to the
// Friday of that week.
func calendarWeekFriday(week string) (time.Time, error) {
	parts := strings.SplitN(week, "-W", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("malformed calendar week %q", week)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed calendar week %q: %w", week, err)
	}
	weekNum, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed calendar week %q: %w", week, err)
	}
	if weekNum < 1 || weekNum > 53 {
		return time.Time{}, fmt.Errorf("calendar week %q out of range", week)
	}

	// January 4th is always in ISO week 1
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	wd := int(jan4.Weekday())
	if wd == 0 {
		wd = 7
	}
	week1Monday := jan4.AddDate(0, 0, 1-wd)
	return week1Monday.AddDate(0, 0, (weekNum-1)*7+4), nil
}

// columnIndex maps required column names to their positions in the header.
func columnIndex(header []string, required ...string) (map[string]int, error) {
	byName := make(map[string]int, len(header))
	for i, name := range header {
		byName[strings.TrimSpace(name)] = i
	}

	col := make(map[string]int, len(required))
	for _, name := range required {
		idx, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		col[name] = idx
	}
	return col, nil
}
