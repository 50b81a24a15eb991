package shock

import (
	"math"
	"strings"
	"testing"
	"time"

	"policy-shock-lab/internal/domain"
)

func rateTable(start time.Time, rates ...float64) *domain.AlignedTable {
	table := &domain.AlignedTable{
		Frequency: domain.FrequencyMonthly,
		Columns:   map[string][]float64{"fed_funds": rates},
	}
	date := domain.FrequencyMonthly.Truncate(start)
	for range rates {
		table.Dates = append(table.Dates, date)
		date = domain.FrequencyMonthly.Next(date)
	}
	return table
}

func TestClassifyInclusiveBoundary(t *testing.T) {
	// 5.00 -> 5.25 is a +0.25 move: a hike at threshold 0.20 (and exactly at
	// 0.25), NoShock at 0.30.
	table := rateTable(domain.Date(2024, 1, 1), 5.00, 5.25)
	anchor := domain.Date(2024, 2, 28)

	cases := []struct {
		threshold float64
		want      domain.ShockClass
	}{
		{0.20, domain.ShockHike},
		{0.25, domain.ShockHike},
		{0.30, domain.ShockNoShock},
	}
	for _, tc := range cases {
		c, err := New(Config{RateSeries: "fed_funds", Anchors: []time.Time{anchor}, Threshold: tc.threshold})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		res, err := c.Classify(table)
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		if len(res.Events) != 1 {
			t.Fatalf("threshold %v: got %d events, want 1", tc.threshold, len(res.Events))
		}
		ev := res.Events[0]
		if ev.Class != tc.want {
			t.Errorf("threshold %v: class = %s, want %s", tc.threshold, ev.Class, tc.want)
		}
		if math.Abs(ev.Delta-0.25) > 1e-12 {
			t.Errorf("delta = %v, want 0.25", ev.Delta)
		}
	}
}

func TestClassifyCutSide(t *testing.T) {
	table := rateTable(domain.Date(2024, 1, 1), 5.50, 5.00)
	c, err := New(Config{
		RateSeries: "fed_funds",
		Anchors:    []time.Time{domain.Date(2024, 2, 28)},
		Threshold:  0.50,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := c.Classify(table)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(res.Events) != 1 || res.Events[0].Class != domain.ShockCut {
		t.Fatalf("expected one CUT event, got %+v", res.Events)
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	table := rateTable(domain.Date(2024, 1, 1), 5.00, 5.25, 5.25, 4.75, 4.75)
	anchors := []time.Time{
		domain.Date(2024, 2, 15),
		domain.Date(2024, 4, 10),
		domain.Date(2024, 5, 20),
	}

	c, err := New(Config{RateSeries: "fed_funds", Anchors: anchors, Threshold: 0.10})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	first, err := c.Classify(table)
	if err != nil {
		t.Fatalf("first Classify: %v", err)
	}
	second, err := c.Classify(table)
	if err != nil {
		t.Fatalf("second Classify: %v", err)
	}

	if len(first.Events) != len(second.Events) {
		t.Fatalf("event counts differ: %d vs %d", len(first.Events), len(second.Events))
	}
	for i := range first.Events {
		if first.Events[i] != second.Events[i] {
			t.Errorf("event %d differs between runs: %+v vs %+v", i, first.Events[i], second.Events[i])
		}
	}
}

func TestClassifyOrdersEventsByDate(t *testing.T) {
	table := rateTable(domain.Date(2024, 1, 1), 5.00, 5.25, 5.50, 5.25)

	// Anchors given out of order still come back sorted.
	c, err := New(Config{
		RateSeries: "fed_funds",
		Anchors: []time.Time{
			domain.Date(2024, 4, 10),
			domain.Date(2024, 2, 15),
			domain.Date(2024, 3, 20),
		},
		Threshold: 0.10,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := c.Classify(table)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(res.Events) != 3 {
		t.Fatalf("got %d events, want 3", len(res.Events))
	}
	for i := 1; i < len(res.Events); i++ {
		if !res.Events[i].Date.After(res.Events[i-1].Date) {
			t.Errorf("events not in date order at index %d", i)
		}
	}
}

func TestClassifySkipsUnreachableAnchors(t *testing.T) {
	rates := []float64{5.00, domain.Missing, 5.25, 5.25}
	table := rateTable(domain.Date(2024, 1, 1), rates...)

	c, err := New(Config{
		RateSeries: "fed_funds",
		Anchors: []time.Time{
			domain.Date(2024, 1, 15), // first slot, no prior period
			domain.Date(2024, 2, 15), // rate missing at anchor
			domain.Date(2024, 3, 15), // rate missing one period before
			domain.Date(2027, 1, 15), // off the calendar entirely
			domain.Date(2024, 4, 15), // classifiable
		},
		Threshold: 0.10,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := c.Classify(table)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(res.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(res.Events))
	}
	if res.Events[0].Class != domain.ShockNoShock {
		t.Errorf("April anchor class = %s, want NO_SHOCK", res.Events[0].Class)
	}
	if len(res.Skipped) != 4 {
		t.Fatalf("got %d skipped anchors, want 4", len(res.Skipped))
	}

	reasons := make(map[string]bool, len(res.Skipped))
	for _, s := range res.Skipped {
		reasons[s.Reason] = true
	}
	for _, want := range []string{
		"no prior period before anchor",
		"rate missing at anchor (gap exceeded fill policy)",
		"rate missing one period before anchor",
		"anchor not on aligned calendar",
	} {
		if !reasons[want] {
			t.Errorf("missing skip reason %q", want)
		}
	}
}

func TestClassifyOneEventPerPeriod(t *testing.T) {
	// Two announcement dates in one month, as with the March 2020 scheduled
	// and emergency meetings, land in one aligned slot with an identical
	// delta. The earlier anchor is classified; the later one is skipped.
	table := rateTable(domain.Date(2020, 2, 1), 1.58, 0.65)
	c, err := New(Config{
		RateSeries: "fed_funds",
		Anchors: []time.Time{
			domain.Date(2020, 3, 15),
			domain.Date(2020, 3, 3),
		},
		Threshold: 0.10,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := c.Classify(table)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(res.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(res.Events))
	}
	if res.Events[0].Class != domain.ShockCut {
		t.Errorf("class = %s, want CUT", res.Events[0].Class)
	}
	if len(res.Skipped) != 1 {
		t.Fatalf("got %d skipped anchors, want 1", len(res.Skipped))
	}
	s := res.Skipped[0]
	if !s.Date.Equal(domain.Date(2020, 3, 15)) {
		t.Errorf("skipped anchor = %s, want the later 2020-03-15", s.Date.Format("2006-01-02"))
	}
	if s.Reason != "period already classified by an earlier anchor" {
		t.Errorf("skip reason = %q", s.Reason)
	}
}

func TestClassifyThresholdDerivationErrors(t *testing.T) {
	cases := []struct {
		name  string
		rates []float64
		want  string
	}{
		{"single pair", []float64{5.00, 5.25}, "fewer than two adjacent observation pairs"},
		{"constant series", []float64{5.00, 5.00, 5.00, 5.00}, "first differences have zero variance"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			table := rateTable(domain.Date(2024, 1, 1), tc.rates...)
			c, err := New(Config{
				RateSeries: "fed_funds",
				Anchors:    []time.Time{domain.Date(2024, 2, 15)},
			})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			_, err = c.Classify(table)
			if err == nil {
				t.Fatal("expected threshold derivation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %q, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestClassifyDerivesThreshold(t *testing.T) {
	// Diffs: +0.25, 0, -0.50, 0. Sample stddev (n-1) of the diffs is the
	// derived threshold.
	table := rateTable(domain.Date(2024, 1, 1), 5.00, 5.25, 5.25, 4.75, 4.75)

	c, err := New(Config{
		RateSeries: "fed_funds",
		Anchors:    []time.Time{domain.Date(2024, 2, 15)},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := c.Classify(table)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	want := DefaultThreshold(table.Columns["fed_funds"])
	if want <= 0 {
		t.Fatal("derived threshold should be positive")
	}
	if res.Threshold != want {
		t.Errorf("applied threshold = %v, want derived %v", res.Threshold, want)
	}
}

func TestDefaultThreshold(t *testing.T) {
	rates := []float64{1, 2, 4, 8}
	// Diffs 1, 2, 4: compare against the sample stddev computed by hand.
	got := DefaultThreshold(rates)
	mean := (1.0 + 2.0 + 4.0) / 3
	variance := ((1-mean)*(1-mean) + (2-mean)*(2-mean) + (4-mean)*(4-mean)) / 2
	if math.Abs(got-math.Sqrt(variance)) > 1e-12 {
		t.Errorf("DefaultThreshold = %v, want %v", got, math.Sqrt(variance))
	}

	if DefaultThreshold([]float64{1, 2}) != 0 {
		t.Error("single diff cannot yield a threshold")
	}
	if DefaultThreshold([]float64{1, domain.Missing, 2}) != 0 {
		t.Error("missing slots break adjacency; no diffs remain")
	}
}
