package reporting

import (
	"fmt"
	"strings"
	"time"

	"policy-shock-lab/internal/domain"
)

const dateLayout = "2006-01-02"

// RenderMarkdown renders the report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Policy Shock Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Shock threshold: %.4f\n\n", r.Threshold))

	sb.WriteString("## Shock Events\n\n")
	if len(r.ShockEvents) > 0 {
		sb.WriteString("| Date | Before | After | Delta | Class |\n")
		sb.WriteString("|------|--------|-------|-------|-------|\n")
		for _, ev := range r.ShockEvents {
			sb.WriteString(fmt.Sprintf("| %s | %.4f | %.4f | %+.4f | %s |\n",
				ev.Date.Format(dateLayout), ev.RateBefore, ev.RateAfter, ev.Delta, ev.Class))
		}
	} else {
		sb.WriteString("No shock events classified.\n")
	}
	sb.WriteString("\n")

	if len(r.Skipped) > 0 {
		sb.WriteString("## Skipped Anchors\n\n")
		sb.WriteString("| Date | Reason |\n")
		sb.WriteString("|------|--------|\n")
		for _, s := range r.Skipped {
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", s.Date.Format(dateLayout), s.Reason))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Model\n\n")
	if r.Model.ModelID != "" {
		m := r.Model
		sb.WriteString("| Field | Value |\n")
		sb.WriteString("|-------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Model ID | %s |\n", m.ModelID))
		sb.WriteString(fmt.Sprintf("| Type | %s |\n", m.ModelType))
		sb.WriteString(fmt.Sprintf("| Frequency | %s |\n", m.Frequency))
		sb.WriteString(fmt.Sprintf("| Outcome | %s |\n", m.OutcomeSeries))
		sb.WriteString(fmt.Sprintf("| Rate series | %s |\n", m.RateSeries))
		sb.WriteString(fmt.Sprintf("| Sample | %s to %s |\n",
			m.SampleStart.Format(dateLayout), m.SampleEnd.Format(dateLayout)))
		sb.WriteString(fmt.Sprintf("| Observations | %d |\n", m.NObs))
		sb.WriteString(fmt.Sprintf("| Excluded rows | %d |\n", m.ExcludedRows))
		sb.WriteString(fmt.Sprintf("| R-squared | %.4f |\n", m.RSquared))
		sb.WriteString(fmt.Sprintf("| Residual variance | %.6f |\n", m.ResidualVariance))
		sb.WriteString("\n")

		sb.WriteString("### Coefficients\n\n")
		sb.WriteString("| Regressor | Estimate | Std. Err. | t-stat |\n")
		sb.WriteString("|-----------|----------|-----------|--------|\n")
		for _, c := range r.Coefficients {
			sb.WriteString(fmt.Sprintf("| %s | %+.6f | %.6f | %+.3f |\n",
				c.Name, c.Estimate, c.StdErr, c.TStat))
		}
		sb.WriteString("\n")

		if len(r.FixedEffects) > 0 {
			sb.WriteString("### Entity Fixed Effects\n\n")
			sb.WriteString("| Entity | Intercept |\n")
			sb.WriteString("|--------|-----------|\n")
			for _, fe := range r.FixedEffects {
				sb.WriteString(fmt.Sprintf("| %s | %+.6f |\n", fe.EntityID, fe.Intercept))
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("No model fitted.\n\n")
	}

	sb.WriteString("## Average Outcome Path Around Events\n\n")
	if len(r.EventPaths) > 0 {
		sb.WriteString("| Class | Offset | Avg. Cum. Return |\n")
		sb.WriteString("|-------|--------|------------------|\n")
		for _, p := range r.EventPaths {
			sb.WriteString(fmt.Sprintf("| %s | %+d | %+.6f |\n", p.Class, p.Offset, p.AvgCumReturn))
		}
	} else {
		sb.WriteString("No event windows available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// RenderProjectionMarkdown renders one scenario projection as Markdown.
func RenderProjectionMarkdown(p *domain.Projection) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Scenario: %s\n\n", p.ScenarioName))
	sb.WriteString(fmt.Sprintf("Model: %s\n\n", p.ModelID))
	if p.Noisy {
		sb.WriteString(fmt.Sprintf("Noise: enabled (seed %d)\n\n", p.Seed))
	} else {
		sb.WriteString("Noise: disabled\n\n")
	}

	sb.WriteString("| Date | Projected | Cumulative |\n")
	sb.WriteString("|------|-----------|------------|\n")
	for _, pt := range p.Points {
		sb.WriteString(fmt.Sprintf("| %s | %+.6f | %+.6f |\n",
			pt.Date.Format(dateLayout), pt.Value, pt.Cumulative))
	}
	sb.WriteString("\n")

	return sb.String()
}
