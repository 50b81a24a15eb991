package align

import (
	"errors"
	"math"
	"testing"
	"time"

	"policy-shock-lab/internal/domain"
)

func monthlySeries(id string, start time.Time, values ...float64) *domain.TimeSeries {
	ts := &domain.TimeSeries{ID: id, Frequency: domain.FrequencyMonthly}
	date := domain.FrequencyMonthly.Truncate(start)
	for _, v := range values {
		ts.Points = append(ts.Points, domain.Point{Date: date, Value: v})
		date = domain.FrequencyMonthly.Next(date)
	}
	return ts
}

func TestAlignGaplessSeriesIdenticalAcrossPolicies(t *testing.T) {
	series := monthlySeries("fed_funds", domain.Date(2024, 1, 1), 5.25, 5.25, 5.50, 5.50, 5.25)

	var tables []*domain.AlignedTable
	for _, fill := range []FillPolicy{FillForward, FillInterpolate} {
		a, err := New(Config{Target: domain.FrequencyMonthly, Fill: fill})
		if err != nil {
			t.Fatalf("New(%s): %v", fill, err)
		}
		table, err := a.Align(series)
		if err != nil {
			t.Fatalf("Align(%s): %v", fill, err)
		}
		tables = append(tables, table)
	}

	ff, li := tables[0].Columns["fed_funds"], tables[1].Columns["fed_funds"]
	if len(ff) != 5 || len(li) != 5 {
		t.Fatalf("column lengths = %d, %d, want 5", len(ff), len(li))
	}
	for i := range ff {
		if ff[i] != li[i] {
			t.Errorf("slot %d: fill policies disagree on gapless input: %v vs %v", i, ff[i], li[i])
		}
	}
}

func TestAlignForwardFillRespectsMaxGap(t *testing.T) {
	// Observations at slots 0 and 4; slots 1-3 are a 3-long gap.
	ts := &domain.TimeSeries{
		ID:        "m1",
		Frequency: domain.FrequencyMonthly,
		Points: []domain.Point{
			{Date: domain.Date(2024, 1, 31), Value: 100},
			{Date: domain.Date(2024, 5, 31), Value: 140},
		},
	}

	a, err := New(Config{Target: domain.FrequencyMonthly, Fill: FillForward, MaxGap: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	table, err := a.Align(ts)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}

	col := table.Columns["m1"]
	if col[1] != 100 || col[2] != 100 {
		t.Errorf("slots within max gap should carry forward, got %v, %v", col[1], col[2])
	}
	if !domain.IsMissing(col[3]) {
		t.Errorf("slot beyond max gap should stay missing, got %v", col[3])
	}
	if col[4] != 140 {
		t.Errorf("observed slot = %v, want 140", col[4])
	}
}

func TestAlignInterpolateIsLinear(t *testing.T) {
	ts := &domain.TimeSeries{
		ID:        "gdp",
		Frequency: domain.FrequencyMonthly,
		Points: []domain.Point{
			{Date: domain.Date(2024, 1, 31), Value: 1},
			{Date: domain.Date(2024, 4, 30), Value: 4},
		},
	}

	a, err := New(Config{Target: domain.FrequencyMonthly, Fill: FillInterpolate})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	table, err := a.Align(ts)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}

	col := table.Columns["gdp"]
	want := []float64{1, 2, 3, 4}
	for i, w := range want {
		if math.Abs(col[i]-w) > 1e-12 {
			t.Errorf("slot %d = %v, want %v", i, col[i], w)
		}
	}
}

func TestAlignInterpolateNeverExtrapolates(t *testing.T) {
	short := monthlySeries("late", domain.Date(2024, 3, 1), 10, 20)
	long := monthlySeries("early", domain.Date(2024, 1, 1), 1, 2, 3, 4)

	a, err := New(Config{Target: domain.FrequencyMonthly, Fill: FillInterpolate})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	table, err := a.Align(short, long)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}

	late := table.Columns["late"]
	if !domain.IsMissing(late[0]) || !domain.IsMissing(late[1]) {
		t.Errorf("slots before first observation must stay missing, got %v, %v", late[0], late[1])
	}
}

func TestAlignUnionCalendar(t *testing.T) {
	a, err := New(Config{Target: domain.FrequencyMonthly, Fill: FillForward})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	table, err := a.Align(
		monthlySeries("a", domain.Date(2024, 1, 1), 1, 2),
		monthlySeries("b", domain.Date(2024, 4, 1), 3, 4),
	)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}

	if table.Len() != 5 {
		t.Fatalf("calendar length = %d, want 5 (Jan-May union)", table.Len())
	}
	if !table.Dates[0].Equal(domain.Date(2024, 1, 31)) {
		t.Errorf("first slot = %v, want 2024-01-31", table.Dates[0])
	}
	if !table.Dates[4].Equal(domain.Date(2024, 5, 31)) {
		t.Errorf("last slot = %v, want 2024-05-31", table.Dates[4])
	}
}

func TestAlignDownsampleKeepsLastInSlot(t *testing.T) {
	// Two daily observations in January: the month-end slot takes the later one.
	ts := &domain.TimeSeries{
		ID:        "sp500",
		Frequency: domain.FrequencyDaily,
		Points: []domain.Point{
			{Date: domain.Date(2024, 1, 10), Value: 4700},
			{Date: domain.Date(2024, 1, 31), Value: 4850},
			{Date: domain.Date(2024, 2, 15), Value: 4900},
		},
	}

	a, err := New(Config{Target: domain.FrequencyMonthly, Fill: FillForward})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	table, err := a.Align(ts)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}

	if v, ok := table.Value("sp500", 0); !ok || v != 4850 {
		t.Errorf("January slot = %v (ok=%v), want 4850", v, ok)
	}
}

func TestAlignRejectsUpsampling(t *testing.T) {
	ts := &domain.TimeSeries{
		ID:        "capex",
		Frequency: domain.FrequencyQuarterly,
		Points: []domain.Point{
			{Date: domain.Date(2024, 3, 31), Value: 1},
			{Date: domain.Date(2024, 6, 30), Value: 2},
		},
	}

	a, err := New(Config{Target: domain.FrequencyMonthly, Fill: FillForward})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = a.Align(ts)
	var alignErr *AlignmentError
	if !errors.As(err, &alignErr) {
		t.Fatalf("expected AlignmentError, got %v", err)
	}
	if alignErr.SeriesID != "capex" {
		t.Errorf("error names series %q, want capex", alignErr.SeriesID)
	}

	// The same run succeeds when upsampling is explicitly allowed.
	a, err = New(Config{Target: domain.FrequencyMonthly, Fill: FillForward, AllowUpsample: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := a.Align(ts); err != nil {
		t.Errorf("Align with AllowUpsample: %v", err)
	}
}

func TestAlignRejectsTooFewObservations(t *testing.T) {
	ts := &domain.TimeSeries{
		ID:        "lonely",
		Frequency: domain.FrequencyMonthly,
		Points:    []domain.Point{{Date: domain.Date(2024, 1, 31), Value: 1}},
	}

	a, err := New(Config{Target: domain.FrequencyMonthly, Fill: FillForward})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = a.Align(ts)
	var alignErr *AlignmentError
	if !errors.As(err, &alignErr) {
		t.Fatalf("expected AlignmentError, got %v", err)
	}
	if alignErr.Observations != 1 {
		t.Errorf("error reports %d observations, want 1", alignErr.Observations)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(Config{Target: "weekly", Fill: FillForward}); err == nil {
		t.Error("expected error for invalid target frequency")
	}
	if _, err := New(Config{Target: domain.FrequencyMonthly, Fill: "pad"}); err == nil {
		t.Error("expected error for invalid fill policy")
	}
}
