package analyzer

import (
	"fmt"
	"math"
	"sort"

	"nps-signal-finder/internal/metrics"
	"nps-signal-finder/internal/types"
)

// SeniorGap surfaces agents (and their stores) whose senior respondent share
// is elevated while satisfaction lags. The filter pipeline narrows in a
// fixed order against baselines computed on the full scoped population
// before any narrowing.
type SeniorGap struct {
	rows []types.SurveyRow
}

func NewSeniorGap(rows []types.SurveyRow) *SeniorGap {
	return &SeniorGap{rows: rows}
}

type seniorAgentRow struct {
	Agent, AgentID        string
	Dealer, Store         string
	Responses             int
	Promoters, Detractors int
	SeniorResponses       int
	NPS                   float64 // shared 2-decimal metric
	SeniorNPS             float64 // 0 when no senior rows
	SeniorShare           float64 // senior responses / total, %
}

type seniorStoreRow struct {
	Team, Dealer, Store   string
	Responses             int
	Promoters, Detractors int
	SeniorResponses       int
	NPS, SeniorNPS        float64
	SeniorShare           float64
}

func (a *SeniorGap) Analyze(f types.FilterSpec) *types.ResultBundle {
	agents := a.aggregateAgents()
	if len(agents) == 0 {
		return &types.ResultBundle{
			StoreDetail: map[string]types.Table{},
			Insights:    []string{"조건을 만족하는 데이터가 없습니다."},
			Summary: []types.SummaryItem{
				{Label: "조건 만족 T크루", Value: "0"},
				{Label: "NPS 목표", Value: "N/A"},
				{Label: "필터 조건Y 시니어 비중", Value: "N/A"},
				{Label: "조건 만족 T크루 NPS", Value: "N/A"},
			},
		}
	}

	// Population baselines, fixed before any per-agent filtering. Changing
	// response floors later must not move these.
	totalResponses := len(a.rows)
	totalSenior := countSenior(a.rows)
	avgSeniorRate := 0.0
	if totalResponses > 0 {
		avgSeniorRate = float64(totalSenior) / float64(totalResponses) * 100
	}
	avgNPS := metrics.NPS(validScores(a.rows))

	threshold := f.SeniorThreshold
	if threshold == nil {
		// this analyzer always applies a senior filter
		threshold = &types.SeniorThreshold{Kind: types.SeniorAverage}
	}
	target, cmp := f.ResolveTarget()
	minResponses := f.EffectiveMinResponses()

	// The senior-share threshold narrows first; the comparative baseline is
	// the mean senior NPS of the agents that cleared it, at display
	// precision, recomputed here and nowhere else.
	var shareFiltered []seniorAgentRow
	for _, r := range agents {
		if meetSeniorThreshold(r.SeniorShare, threshold, avgSeniorRate) {
			shareFiltered = append(shareFiltered, r)
		}
	}
	seniorSum, seniorN := 0.0, 0
	for _, r := range shareFiltered {
		if r.SeniorResponses > 0 {
			seniorSum += metrics.Round1(r.SeniorNPS)
			seniorN++
		}
	}
	avgSeniorNPS := 0.0
	if seniorN > 0 {
		avgSeniorNPS = seniorSum / float64(seniorN)
	}

	var result []seniorAgentRow
	for _, r := range shareFiltered {
		// comparative senior filter: agents without senior responses cannot
		// be compared, the rest must lag the share-filtered mean strictly
		if r.SeniorResponses == 0 {
			continue
		}
		if metrics.Round1(r.SeniorNPS) >= avgSeniorNPS {
			continue
		}
		if !meetTarget(r.NPS, target, cmp) {
			continue
		}
		if r.Responses < minResponses || r.SeniorResponses < 1 {
			continue
		}
		result = append(result, r)
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.SeniorShare != b.SeniorShare {
			return a.SeniorShare > b.SeniorShare
		}
		return a.NPS < b.NPS
	})

	survivors := make(map[string]bool, len(result))
	for _, r := range result {
		survivors[r.AgentID] = true
	}
	var survivorRows []types.SurveyRow
	for _, r := range a.rows {
		if survivors[r.AgentID] {
			survivorRows = append(survivorRows, r)
		}
	}

	stores := aggregateSeniorStores(survivorRows, threshold, avgSeniorRate, target, cmp, minResponses)
	detail := seniorStoreDetail(survivorRows)

	weightedNPS := "N/A"
	if len(result) > 0 {
		weightedNPS = pct1(metrics.NPS(validScores(survivorRows)))
	}

	summary := []types.SummaryItem{
		{Label: "조건 만족 T크루", Value: itoa(len(result))},
		{Label: "조건 만족 매장", Value: itoa(len(stores))},
		{Label: "NPS 목표", Value: fmt.Sprintf("%.0f%%", target)},
		{Label: "필터 조건Y 시니어 비중", Value: fmt.Sprintf("%.1f%% (%d/%d)", avgSeniorRate, totalSenior, totalResponses)},
		{Label: "조건 만족 T크루 NPS", Value: weightedNPS},
	}
	if f.AnalysisMonth != "" {
		summary = append(summary, types.SummaryItem{Label: "분석월", Value: f.AnalysisMonth})
	}

	bundle := &types.ResultBundle{
		ByAgent:     seniorAgentTable(result),
		ByStore:     seniorStoreTable(stores),
		StoreDetail: detail,
		Summary:     summary,
		Insights:    seniorInsights(result, avgSeniorRate, avgNPS, target, cmp),
	}
	for _, s := range stores {
		bundle.StoreOrder = append(bundle.StoreOrder, s.Store)
	}
	return bundle
}

// aggregateAgents folds the scoped rows by (agent, agent id); dealer and
// store come from the agent's first row.
func (a *SeniorGap) aggregateAgents() []seniorAgentRow {
	type key struct{ agent, agentID string }
	groups := map[key][]types.SurveyRow{}
	var order []key
	for _, r := range a.rows {
		k := key{r.Agent, r.AgentID}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	var rows []seniorAgentRow
	for _, k := range order {
		g := groups[k]
		promoters, detractors := countPromoters(g)
		total := len(g)
		seniorResponses := countSenior(g)
		seniorNPS := 0.0
		if seniorResponses > 0 {
			seniorNPS = metrics.NPS(seniorScores(g))
		}
		rows = append(rows, seniorAgentRow{
			Agent: k.agent, AgentID: k.agentID,
			Dealer: g[0].Dealer, Store: g[0].Store,
			Responses: total, Promoters: promoters, Detractors: detractors,
			SeniorResponses: seniorResponses,
			NPS:             metrics.NPS(validScores(g)),
			SeniorNPS:       seniorNPS,
			SeniorShare:     float64(seniorResponses) / float64(total) * 100,
		})
	}
	return rows
}

func meetSeniorThreshold(share float64, t *types.SeniorThreshold, avgSeniorRate float64) bool {
	switch t.Kind {
	case types.SeniorBelowAverage:
		return share < avgSeniorRate
	case types.SeniorCustom:
		return share >= t.Value
	default:
		return share >= avgSeniorRate
	}
}

// aggregateSeniorStores mirrors the per-agent pipeline for the stores of the
// surviving agents, reapplying the same resolved thresholds (not recomputed
// per store).
func aggregateSeniorStores(rows []types.SurveyRow, threshold *types.SeniorThreshold,
	avgSeniorRate, target float64, cmp types.NPSComparison, minResponses int) []seniorStoreRow {

	type key struct{ team, dealer, store string }
	groups := map[key][]types.SurveyRow{}
	var order []key
	for _, r := range rows {
		k := key{r.Team, r.Dealer, r.Store}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	var out []seniorStoreRow
	for _, k := range order {
		g := groups[k]
		promoters, detractors := countPromoters(g)
		total := len(g)
		seniorResponses := countSenior(g)
		nps := metrics.NPS(validScores(g))
		seniorNPS := 0.0
		if seniorResponses > 0 {
			seniorNPS = metrics.NPS(seniorScores(g))
		}
		share := float64(seniorResponses) / float64(total) * 100

		if !meetTarget(nps, target, cmp) {
			continue
		}
		if !meetSeniorThreshold(share, threshold, avgSeniorRate) {
			continue
		}
		if total < minResponses || seniorResponses < 1 {
			continue
		}
		out = append(out, seniorStoreRow{
			Team: k.team, Dealer: k.dealer, Store: k.store,
			Responses: total, Promoters: promoters, Detractors: detractors,
			SeniorResponses: seniorResponses,
			NPS:             nps, SeniorNPS: seniorNPS, SeniorShare: share,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SeniorShare != b.SeniorShare {
			return a.SeniorShare > b.SeniorShare
		}
		return a.NPS < b.NPS
	})
	return out
}

// seniorStoreDetail drills into the surviving agents only, unlike the simple
// filter's full-population detail.
func seniorStoreDetail(rows []types.SurveyRow) map[string]types.Table {
	if len(rows) == 0 {
		return map[string]types.Table{}
	}

	storeScores := map[string][]float64{}
	type key struct{ store, agent, agentID string }
	groups := map[key][]types.SurveyRow{}
	var order []key
	for _, r := range rows {
		if r.HasScore {
			storeScores[r.Store] = append(storeScores[r.Store], r.Score)
		}
		k := key{r.Store, r.Agent, r.AgentID}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	type detailRow struct {
		agent                 string
		responses             int
		promoters, detractors int
		seniorResponses       int
		nps, seniorShare      float64
		seniorNPS             float64
		vs                    float64
		status                string
	}
	byStore := map[string][]detailRow{}
	for _, k := range order {
		g := groups[k]
		promoters, detractors := countPromoters(g)
		total := len(g)
		seniorResponses := countSenior(g)
		nps := metrics.NPS(validScores(g))
		seniorNPS := 0.0
		if seniorResponses > 0 {
			seniorNPS = metrics.NPS(seniorScores(g))
		}
		storeNPS := metrics.NPS(storeScores[k.store])
		vs := metrics.Round1(nps - storeNPS)
		byStore[k.store] = append(byStore[k.store], detailRow{
			agent:     k.agent,
			responses: total, promoters: promoters, detractors: detractors,
			seniorResponses: seniorResponses,
			nps:             nps,
			seniorShare:     float64(seniorResponses) / float64(total) * 100,
			seniorNPS:       seniorNPS,
			vs:              vs,
			status:          statusFor(vs),
		})
	}

	out := make(map[string]types.Table, len(byStore))
	for store, drows := range byStore {
		sort.SliceStable(drows, func(i, j int) bool { return drows[i].nps < drows[j].nps })
		t := types.Table{Columns: []string{"T크루명", "응답수", "추천수", "비추천수", "시니어응답수", "NPS(%)", "시니어비중(%)", "시니어NPS(%)", "vs매장", "상태"}}
		for _, r := range drows {
			t.Rows = append(t.Rows, []string{
				r.agent, itoa(r.responses), itoa(r.promoters), itoa(r.detractors),
				itoa(r.seniorResponses), pct1(r.nps), pct1(r.seniorShare), pct1(r.seniorNPS),
				pct1(r.vs), r.status,
			})
		}
		out[store] = t
	}
	return out
}

func seniorAgentTable(rows []seniorAgentRow) types.Table {
	t := types.Table{Columns: []string{"담당자", "담당자ID", "대리점명", "매장명", "응답수", "추천수", "비추천수", "시니어응답수", "NPS(%)", "시니어비중(%)", "시니어NPS(%)"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Agent, r.AgentID, r.Dealer, r.Store,
			itoa(r.Responses), itoa(r.Promoters), itoa(r.Detractors), itoa(r.SeniorResponses),
			pct1(r.NPS), pct1(r.SeniorShare), pct1(r.SeniorNPS),
		})
	}
	return t
}

func seniorStoreTable(rows []seniorStoreRow) types.Table {
	t := types.Table{Columns: []string{"마케팅팀명", "대리점명", "매장명", "응답수", "추천수", "비추천수", "시니어응답수", "NPS(%)", "시니어비중(%)", "시니어NPS(%)"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Team, r.Dealer, r.Store,
			itoa(r.Responses), itoa(r.Promoters), itoa(r.Detractors), itoa(r.SeniorResponses),
			pct1(r.NPS), pct1(r.SeniorShare), pct1(r.SeniorNPS),
		})
	}
	return t
}

func seniorInsights(result []seniorAgentRow, avgSeniorRate, avgNPS, target float64, cmp types.NPSComparison) []string {
	if len(result) == 0 {
		insights := []string{"조건을 만족하는 T크루가 없습니다."}
		if cmp == types.CompareBelow {
			insights = append(insights, fmt.Sprintf("모든 T크루가 NPS 목표(%.0f%%)를 달성했습니다!", target))
		} else {
			insights = append(insights, "필터 조건을 완화해보세요!")
		}
		return insights
	}

	var insights []string
	insights = append(insights, fmt.Sprintf("총 %d명의 T크루가 조건을 만족합니다", len(result)))
	if cmp == types.CompareBelow {
		insights = append(insights, fmt.Sprintf("NPS 목표 %.0f%% 미달 T크루입니다", target))
	} else {
		insights = append(insights, fmt.Sprintf("NPS 목표 %.0f%% 달성 T크루입니다", target))
	}

	shareSum, npsSum := 0.0, 0.0
	for _, r := range result {
		shareSum += r.SeniorShare
		npsSum += r.NPS
	}
	n := float64(len(result))
	insights = append(insights, fmt.Sprintf("필터 조건Y 비중: %.1f%% (전체 평균: %.1f%%)", shareSum/n, avgSeniorRate))
	insights = append(insights, fmt.Sprintf("평균 NPS: %.1f (전체 평균: %.1f%%)", npsSum/n, avgNPS))

	top := result[0]
	insights = append(insights, fmt.Sprintf(
		"%s T크루: 시니어 비중 %s, NPS %s, 시니어NPS %s",
		top.Agent, pct1(top.SeniorShare), pct1(top.NPS), pct1(top.SeniorNPS)))

	highSenior := 0
	largeGap := 0
	for _, r := range result {
		if r.SeniorShare >= 30 {
			highSenior++
		}
		if math.Abs(r.NPS-metrics.Round1(r.SeniorNPS)) >= 10 {
			largeGap++
		}
	}
	if highSenior > 0 {
		insights = append(insights, fmt.Sprintf("시니어 비중 30%% 이상인 T크루가 %d명입니다", highSenior))
	}
	if largeGap > 0 {
		insights = append(insights, fmt.Sprintf("시니어 NPS와 전체 NPS 차이가 10%% 이상인 T크루가 %d명입니다", largeGap))
	}

	if cmp == types.CompareBelow {
		insights = append(insights, "시니어 고객 응대 개선이 NPS 목표 달성의 핵심입니다!")
	}
	return insights
}
