package datasets

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// combinedInfluenzaTyp duplicates the separate Influenza A and B series and
// is dropped during parsing.
const combinedInfluenzaTyp = "Influenza A+B"

// AbwasserRecord is one measurement row of the AMELAG wastewater dataset.
type AbwasserRecord struct {
	Station   string    `json:"station"`
	State     string    `json:"state"`
	Date      time.Time `json:"date"`
	Virus     string    `json:"virus"`
	ViralLoad *float64  `json:"viral_load"`
	Smoothed  *float64  `json:"smoothed"`
}

// ParseAbwasser reads the AMELAG per-site TSV. The combined "Influenza A+B"
// series is excluded; missing measurements ("NA" or empty) stay nil.
// Malformed rows are skipped and counted.
func ParseAbwasser(r io.Reader) ([]AbwasserRecord, int, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read abwasser header: %w", err)
	}
	col, err := columnIndex(header, "standort", "bundesland", "datum", "typ", "viruslast", "loess_vorhersage")
	if err != nil {
		return nil, 0, fmt.Errorf("abwasser: %w", err)
	}

	var records []AbwasserRecord
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

		rec, err := parseAbwasserRow(row, col)
		if err != nil {
			skipped++
			continue
		}
		if rec.Virus == combinedInfluenzaTyp {
			continue
		}
		records = append(records, rec)
	}

	return records, skipped, nil
}

func parseAbwasserRow(row []string, col map[string]int) (AbwasserRecord, error) {
	for _, idx := range col {
		if idx >= len(row) {
			return AbwasserRecord{}, fmt.Errorf("row has %d fields, need %d", len(row), idx+1)
		}
	}

	date, err := time.Parse("2006-01-02", row[col["datum"]])
	if err != nil {
		return AbwasserRecord{}, fmt.Errorf("invalid date %q: %w", row[col["datum"]], err)
	}

	return AbwasserRecord{
		Station:   row[col["standort"]],
		State:     row[col["bundesland"]],
		Date:      date,
		Virus:     row[col["typ"]],
		ViralLoad: optionalFloat(row[col["viruslast"]]),
		Smoothed:  optionalFloat(row[col["loess_vorhersage"]]),
	}, nil
}

// optionalFloat parses a measurement that may be absent ("NA" or empty).
func optionalFloat(s string) *float64 {
	if s == "" || s == "NA" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
