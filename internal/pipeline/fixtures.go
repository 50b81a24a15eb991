package pipeline

import (
	"context"
	"time"

	"policy-shock-lab/internal/align"
	"policy-shock-lab/internal/domain"
	"policy-shock-lab/internal/storage"
)

// Fixture identifiers, shared by --use-memory cmds and tests.
const (
	FixtureRateSeries    = "DFF"
	FixtureOutcomeSeries = "SPX_RET"
	FixtureSpreadSeries  = "T10Y2Y"
	FixtureCalendar      = "FOMC"
)

// FixtureConfig returns a runner configuration matching the fixture data:
// monthly alignment of the policy rate, equity returns and the yield spread,
// classified on the FOMC calendar.
func FixtureConfig() Config {
	return Config{
		Series:         []string{FixtureRateSeries, FixtureOutcomeSeries, FixtureSpreadSeries},
		Target:         domain.FrequencyMonthly,
		Fill:           align.FillForward,
		MaxGap:         3,
		AnchorCalendar: FixtureCalendar,
		RateSeries:     FixtureRateSeries,
		Threshold:      0.10,
		ModelType:      domain.ModelTypeOLS,
		OutcomeSeries:  FixtureOutcomeSeries,
		ShockLags:      []int{0, 1},
		Controls:       []string{FixtureSpreadSeries, domain.ControlLaggedOutcome},
	}
}

// LoadFixtures populates stores with the 2022-12 through 2024-12 sample:
// month-end policy rate, S&P 500 monthly return, 10Y-2Y spread, and the
// FOMC decision calendar over the same span.
func LoadFixtures(
	ctx context.Context,
	metadata storage.SeriesMetadataStore,
	observations storage.ObservationStore,
	anchors storage.AnchorStore,
) error {
	if err := loadMetadata(ctx, metadata); err != nil {
		return err
	}
	if err := loadObservations(ctx, observations); err != nil {
		return err
	}
	return loadAnchors(ctx, anchors)
}

func loadMetadata(ctx context.Context, store storage.SeriesMetadataStore) error {
	series := []*domain.SeriesMetadata{
		{
			SeriesID:  FixtureRateSeries,
			Name:      "Federal funds target rate, upper bound",
			Frequency: domain.FrequencyMonthly,
			Units:     "percent",
			Source:    "FRED",
		},
		{
			SeriesID:  FixtureOutcomeSeries,
			Name:      "S&P 500 monthly return",
			Frequency: domain.FrequencyMonthly,
			Units:     "ratio",
			Source:    "SPX",
		},
		{
			SeriesID:  FixtureSpreadSeries,
			Name:      "10-year minus 2-year Treasury spread",
			Frequency: domain.FrequencyMonthly,
			Units:     "percentage points",
			Source:    "FRED",
		},
	}
	for _, m := range series {
		if err := store.Insert(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func loadObservations(ctx context.Context, store storage.ObservationStore) error {
	// Month-end values, 2022-12 through 2024-12. Rate path follows the
	// 2023 hiking cycle and the 2024 cutting cycle.
	months := []struct {
		year   int
		month  time.Month
		rate   float64
		ret    float64
		spread float64
	}{
		{2022, time.December, 4.50, -0.059, -0.55},
		{2023, time.January, 4.50, 0.062, -0.69},
		{2023, time.February, 4.75, -0.026, -0.89},
		{2023, time.March, 5.00, 0.035, -0.58},
		{2023, time.April, 5.00, 0.015, -0.61},
		{2023, time.May, 5.25, 0.002, -0.76},
		{2023, time.June, 5.25, 0.065, -1.06},
		{2023, time.July, 5.50, 0.031, -0.91},
		{2023, time.August, 5.50, -0.018, -0.72},
		{2023, time.September, 5.50, -0.049, -0.44},
		{2023, time.October, 5.50, -0.022, -0.19},
		{2023, time.November, 5.50, 0.089, -0.37},
		{2023, time.December, 5.50, 0.044, -0.35},
		{2024, time.January, 5.50, 0.016, -0.28},
		{2024, time.February, 5.50, 0.052, -0.37},
		{2024, time.March, 5.50, 0.031, -0.39},
		{2024, time.April, 5.50, -0.041, -0.35},
		{2024, time.May, 5.50, 0.048, -0.38},
		{2024, time.June, 5.50, 0.035, -0.35},
		{2024, time.July, 5.50, 0.011, -0.22},
		{2024, time.August, 5.50, 0.023, -0.02},
		{2024, time.September, 5.00, 0.020, 0.14},
		{2024, time.October, 5.00, -0.010, 0.13},
		{2024, time.November, 4.75, 0.057, 0.06},
		{2024, time.December, 4.50, -0.025, 0.25},
	}

	obs := make([]*domain.Observation, 0, 3*len(months))
	for _, m := range months {
		date := monthEnd(m.year, m.month)
		obs = append(obs,
			&domain.Observation{SeriesID: FixtureRateSeries, Date: date, Value: m.rate},
			&domain.Observation{SeriesID: FixtureOutcomeSeries, Date: date, Value: m.ret},
			&domain.Observation{SeriesID: FixtureSpreadSeries, Date: date, Value: m.spread},
		)
	}
	return store.InsertBulk(ctx, obs)
}

// ReferenceFOMCAnchors returns the FOMC announcement calendar from 2020-01
// through 2025-12, including the two March 2020 meetings that share a month.
func ReferenceFOMCAnchors() []*domain.AnchorDate {
	decisions := []struct {
		year  int
		month time.Month
		day   int
		note  string
	}{
		{2020, time.January, 29, "hold"},
		{2020, time.March, 3, "-50bp"},
		{2020, time.March, 15, "-100bp"},
		{2020, time.April, 29, "hold"},
		{2020, time.June, 10, "hold"},
		{2020, time.July, 29, "hold"},
		{2020, time.September, 16, "hold"},
		{2020, time.November, 5, "hold"},
		{2020, time.December, 16, "hold"},
		{2021, time.January, 27, "hold"},
		{2021, time.March, 17, "hold"},
		{2021, time.April, 28, "hold"},
		{2021, time.June, 16, "hold"},
		{2021, time.July, 28, "hold"},
		{2021, time.September, 22, "hold"},
		{2021, time.November, 3, "hold"},
		{2021, time.December, 15, "hold"},
		{2022, time.January, 26, "hold"},
		{2022, time.March, 16, "+25bp"},
		{2022, time.May, 4, "+50bp"},
		{2022, time.June, 15, "+75bp"},
		{2022, time.July, 27, "+75bp"},
		{2022, time.September, 21, "+75bp"},
		{2022, time.November, 2, "+75bp"},
		{2022, time.December, 14, "+50bp"},
		{2023, time.February, 1, "+25bp"},
		{2023, time.March, 22, "+25bp"},
		{2023, time.May, 3, "+25bp"},
		{2023, time.June, 14, "hold"},
		{2023, time.July, 26, "+25bp"},
		{2023, time.September, 20, "hold"},
		{2023, time.November, 1, "hold"},
		{2023, time.December, 13, "hold"},
		{2024, time.January, 31, "hold"},
		{2024, time.March, 20, "hold"},
		{2024, time.May, 1, "hold"},
		{2024, time.June, 12, "hold"},
		{2024, time.July, 31, "hold"},
		{2024, time.September, 18, "-50bp"},
		{2024, time.November, 7, "-25bp"},
		{2024, time.December, 18, "-25bp"},
		{2025, time.January, 29, "hold"},
		{2025, time.March, 19, "hold"},
		{2025, time.May, 7, "hold"},
		{2025, time.June, 18, "hold"},
		{2025, time.July, 30, "hold"},
		{2025, time.September, 17, "-25bp"},
		{2025, time.October, 29, "-25bp"},
		{2025, time.December, 10, "-25bp"},
	}

	anchors := make([]*domain.AnchorDate, len(decisions))
	for i, d := range decisions {
		anchors[i] = &domain.AnchorDate{
			Calendar: FixtureCalendar,
			Date:     domain.Date(d.year, d.month, d.day),
			Note:     d.note,
		}
	}
	return anchors
}

// loadAnchors stores the slice of the reference calendar covered by the
// fixture observation span.
func loadAnchors(ctx context.Context, store storage.AnchorStore) error {
	from := domain.Date(2023, time.January, 1)
	to := domain.Date(2025, time.January, 1)

	var anchors []*domain.AnchorDate
	for _, a := range ReferenceFOMCAnchors() {
		if a.Date.Before(from) || !a.Date.Before(to) {
			continue
		}
		anchors = append(anchors, a)
	}
	return store.InsertBulk(ctx, anchors)
}

func monthEnd(year int, month time.Month) time.Time {
	return domain.FrequencyMonthly.Truncate(domain.Date(year, month, 1))
}
