// Package analyzer implements the three aggregation pipelines over survey
// rows: simple NPS filtering, the senior-gap cohort analysis, and the
// period-over-period comparison. Every call returns an independent
// ResultBundle; degraded conditions produce explanatory empty bundles, not
// errors.
package analyzer

import (
	"fmt"

	"nps-signal-finder/internal/types"
)

// ApplyScope narrows raw rows to the month/team/dealer/store scope of a
// FilterSpec. All analyzers run on identically scoped data; none of them
// re-filters by scope internally.
func ApplyScope(rows []types.SurveyRow, f types.FilterSpec) []types.SurveyRow {
	monthFilter := f.AnalysisMonth != "" && f.AnalysisMonth != types.MonthAll
	out := make([]types.SurveyRow, 0, len(rows))
	for _, r := range rows {
		if monthFilter {
			if !r.HasDate || r.Date.Format(types.MonthLabelLayout) != f.AnalysisMonth {
				continue
			}
		}
		if f.Team != "" && r.Team != f.Team {
			continue
		}
		if f.DealerName != "" && r.Dealer != f.DealerName {
			continue
		}
		if f.StoreName != "" && r.Store != f.StoreName {
			continue
		}
		out = append(out, r)
	}
	return out
}

// statusFor classifies a vs-store delta into the four operational bands.
// Bands are half-open and total: +5 is 우수, 0 is 양호, -5 is 주의.
func statusFor(delta float64) string {
	switch {
	case delta >= 5:
		return "우수"
	case delta >= 0:
		return "양호"
	case delta >= -5:
		return "주의"
	default:
		return "개선필요"
	}
}

// validScores collects the coercible recommendation scores of a row set.
// Rows with a failed score coercion still count as responses but cannot be
// bucketed, matching the upstream contract.
func validScores(rows []types.SurveyRow) []float64 {
	scores := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.HasScore {
			scores = append(scores, r.Score)
		}
	}
	return scores
}

func countPromoters(rows []types.SurveyRow) (promoters, detractors int) {
	for _, r := range rows {
		if !r.HasScore {
			continue
		}
		switch {
		case r.Score >= 9:
			promoters++
		case r.Score <= 6:
			detractors++
		}
	}
	return promoters, detractors
}

func countSenior(rows []types.SurveyRow) int {
	n := 0
	for _, r := range rows {
		if r.Senior {
			n++
		}
	}
	return n
}

func seniorScores(rows []types.SurveyRow) []float64 {
	scores := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.Senior && r.HasScore {
			scores = append(scores, r.Score)
		}
	}
	return scores
}

func pct1(v float64) string { return fmt.Sprintf("%.1f%%", v) }

// signedPct1 renders a delta with an explicit sign for positive values.
func signedPct1(v float64) string {
	if v > 0 {
		return fmt.Sprintf("+%.1f%%", v)
	}
	return fmt.Sprintf("%.1f%%", v)
}

func itoa(n int) string { return fmt.Sprintf("%d", n) }

// meetTarget applies an NPS threshold with its comparison direction:
// below keeps values strictly under the target, above keeps values at or
// over it.
func meetTarget(nps, target float64, cmp types.NPSComparison) bool {
	if cmp == types.CompareAbove {
		return nps >= target
	}
	return nps < target
}
