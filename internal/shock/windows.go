package shock

import (
	"time"

	"policy-shock-lab/internal/domain"
)

// WindowPoint is one outcome observation inside an event window,
// offset in target periods from the anchor (0 = announcement slot).
type WindowPoint struct {
	Offset    int
	Outcome   float64
	CumReturn float64 // compounded cumulative outcome since window start
}

// EventWindow is the outcome path around one shock event.
type EventWindow struct {
	EventDate time.Time
	Class     domain.ShockClass
	Points    []WindowPoint
}

// BuildEventWindows extracts [-before, +after] period windows of the outcome
// series around each event. Missing outcome slots are skipped; the cumulative
// return compounds only over observed slots.
func BuildEventWindows(table *domain.AlignedTable, outcomeSeries string, events []domain.ShockEvent, before, after int) []EventWindow {
	var windows []EventWindow
	for _, ev := range events {
		center, found := table.Index(ev.Date)
		if !found {
			continue
		}

		w := EventWindow{EventDate: ev.Date, Class: ev.Class}
		cum := 1.0
		for off := -before; off <= after; off++ {
			i := center + off
			if i < 0 || i >= table.Len() {
				continue
			}
			v, ok := table.Value(outcomeSeries, i)
			if !ok {
				continue
			}
			cum *= 1 + v
			w.Points = append(w.Points, WindowPoint{
				Offset:    off,
				Outcome:   v,
				CumReturn: cum - 1,
			})
		}
		if len(w.Points) > 0 {
			windows = append(windows, w)
		}
	}
	return windows
}

// AverageCumReturnByOffset pools windows of one class and averages the
// cumulative return per offset. Offsets with no observations are absent.
func AverageCumReturnByOffset(windows []EventWindow, class domain.ShockClass) map[int]float64 {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, w := range windows {
		if w.Class != class {
			continue
		}
		for _, p := range w.Points {
			sums[p.Offset] += p.CumReturn
			counts[p.Offset]++
		}
	}

	avg := make(map[int]float64, len(sums))
	for off, sum := range sums {
		avg[off] = sum / float64(counts[off])
	}
	return avg
}
