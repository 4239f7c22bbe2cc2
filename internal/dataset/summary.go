package dataset

import (
	"fmt"

	"nps-signal-finder/internal/types"
)

// Summarize produces the dataset overview shown on /summary. The 평균 NPS
// line is the promoter rate over all loaded rows, two decimals, mirroring
// the report this feed replaced.
func Summarize(rows []types.SurveyRow) []types.SummaryItem {
	teams := map[string]bool{}
	stores := map[string]bool{}
	agents := map[string]bool{}
	promoters := 0
	var minDate, maxDate string
	for _, r := range rows {
		teams[r.Team] = true
		stores[r.Store] = true
		agents[r.AgentID] = true
		if r.HasScore && r.Score >= 9 {
			promoters++
		}
		if r.HasDate {
			d := r.Date.Format("2006-01-02")
			if minDate == "" || d < minDate {
				minDate = d
			}
			if d > maxDate {
				maxDate = d
			}
		}
	}

	period := "N/A"
	if minDate != "" {
		period = minDate + " ~ " + maxDate
	}
	rate := "N/A"
	if len(rows) > 0 {
		rate = fmt.Sprintf("%.2f%%", float64(promoters)/float64(len(rows))*100)
	}

	return []types.SummaryItem{
		{Label: "총 데이터 수", Value: fmt.Sprintf("%d", len(rows))},
		{Label: "데이터 기간", Value: period},
		{Label: "팀 수", Value: fmt.Sprintf("%d", len(teams))},
		{Label: "매장 수", Value: fmt.Sprintf("%d", len(stores))},
		{Label: "T크루 수", Value: fmt.Sprintf("%d", len(agents))},
		{Label: "평균 NPS", Value: rate},
	}
}
