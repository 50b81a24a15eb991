package reporting

import (
	"fmt"
	"strings"

	"policy-shock-lab/internal/domain"
)

// RenderShockEventsCSV renders classified events as CSV.
func RenderShockEventsCSV(rows []ShockEventRow) string {
	var sb strings.Builder
	sb.WriteString("date,rate_before,rate_after,delta,class\n")
	for _, ev := range rows {
		sb.WriteString(fmt.Sprintf("%s,%.6f,%.6f,%.6f,%s\n",
			ev.Date.Format(dateLayout), ev.RateBefore, ev.RateAfter, ev.Delta, ev.Class))
	}
	return sb.String()
}

// RenderCoefficientsCSV renders the coefficient table as CSV.
func RenderCoefficientsCSV(rows []CoefficientRow) string {
	var sb strings.Builder
	sb.WriteString("regressor,estimate,std_err,t_stat\n")
	for _, c := range rows {
		sb.WriteString(fmt.Sprintf("%s,%.6f,%.6f,%.6f\n", c.Name, c.Estimate, c.StdErr, c.TStat))
	}
	return sb.String()
}

// RenderEventPathsCSV renders the pooled event-window averages as CSV.
func RenderEventPathsCSV(rows []EventPathRow) string {
	var sb strings.Builder
	sb.WriteString("class,offset,avg_cum_return\n")
	for _, p := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%.6f\n", p.Class, p.Offset, p.AvgCumReturn))
	}
	return sb.String()
}

// RenderProjectionCSV renders one scenario projection as CSV.
func RenderProjectionCSV(p *domain.Projection) string {
	var sb strings.Builder
	sb.WriteString("scenario,date,value,cumulative\n")
	for _, pt := range p.Points {
		sb.WriteString(fmt.Sprintf("%s,%s,%.6f,%.6f\n",
			p.ScenarioName, pt.Date.Format(dateLayout), pt.Value, pt.Cumulative))
	}
	return sb.String()
}
