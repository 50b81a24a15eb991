package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"policy-shock-lab/internal/domain"
)

const dateLayout = "2006-01-02"

// ParseObservations reads observation rows from CSV. The header must be
// "date,value"; dates use YYYY-MM-DD and are pinned to UTC midnight.
// Rows must be well formed: a bad date or value fails the whole file with
// its row number, nothing is silently skipped.
func ParseObservations(r io.Reader, seriesID string) ([]*domain.Observation, error) {
	records, err := readAll(r, []string{"date", "value"})
	if err != nil {
		return nil, err
	}

	obs := make([]*domain.Observation, 0, len(records))
	for i, rec := range records {
		date, err := parseDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: parse value %q: %w", i+2, rec[1], err)
		}
		obs = append(obs, &domain.Observation{
			SeriesID: seriesID,
			Date:     date,
			Value:    value,
		})
	}
	return obs, nil
}

// ParseAnchors reads anchor rows from CSV. The header must be "date" or
// "date,note".
func ParseAnchors(r io.Reader, calendar string) ([]*domain.AnchorDate, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	withNote := false
	switch {
	case matchHeader(header, []string{"date"}):
	case matchHeader(header, []string{"date", "note"}):
		withNote = true
	default:
		return nil, fmt.Errorf("unexpected header %v, want date[,note]", header)
	}

	var anchors []*domain.AnchorDate
	row := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row++
		date, err := parseDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		a := &domain.AnchorDate{Calendar: calendar, Date: date}
		if withNote && len(rec) > 1 {
			a.Note = strings.TrimSpace(rec[1])
		}
		anchors = append(anchors, a)
	}
	return anchors, nil
}

func readAll(r io.Reader, wantHeader []string) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(wantHeader)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !matchHeader(header, wantHeader) {
		return nil, fmt.Errorf("unexpected header %v, want %v", header, wantHeader)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return records, nil
}

func matchHeader(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if !strings.EqualFold(strings.TrimSpace(got[i]), want[i]) {
			return false
		}
	}
	return true
}

func parseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}
