package analyzer

import (
	"fmt"
	"math"
	"sort"
	"time"

	"nps-signal-finder/internal/logger"
	"nps-signal-finder/internal/metrics"
	"nps-signal-finder/internal/types"
)

// PeriodComparison joins two time-windowed aggregates of the same dataset
// and computes per-agent and per-store NPS deltas. Agents present in only
// one window are dropped: a partial comparison is meaningless.
type PeriodComparison struct {
	rows []types.SurveyRow
	log  *logger.Logger
}

func NewPeriodComparison(rows []types.SurveyRow) *PeriodComparison {
	return &PeriodComparison{
		rows: rows,
		log:  logger.New().WithComponent("analyzer.period"),
	}
}

type periodAgentRow struct {
	Agent, AgentID string
	Dealer, Store  string
	Responses      int
	NPS            float64
}

type periodStoreRow struct {
	Team, Dealer, Store string
	Responses           int
	NPS                 float64
}

type joinedAgentRow struct {
	Agent, AgentID         string
	Dealer, Store          string
	Responses1, Responses2 int
	NPS1, NPS2             float64
	Delta                  float64
}

type joinedStoreRow struct {
	Team, Dealer, Store    string
	Responses1, Responses2 int
	NPS1, NPS2             float64
	Delta                  float64
}

func (a *PeriodComparison) Analyze(f types.FilterSpec) *types.ResultBundle {
	if !a.hasUsableDates() {
		return emptyPeriodBundle("처리일 컬럼이 없습니다.", "N/A", "N/A")
	}

	cp := f.ComparisonPeriods
	if cp != nil && cp.Err != "" {
		return emptyPeriodBundle(cp.Err, "N/A", "N/A")
	}
	if cp == nil {
		// fallback for callers that never attempted period extraction
		cp = &types.ComparisonPeriods{
			Period1Start: time.Date(types.BaseYear, 9, 1, 0, 0, 0, 0, time.UTC),
			Period1End:   time.Date(types.BaseYear, 12, 31, 0, 0, 0, 0, time.UTC),
			Period2Start: time.Date(types.BaseYear+1, 1, 1, 0, 0, 0, 0, time.UTC),
			Period2End:   time.Date(types.BaseYear+1, 1, 31, 0, 0, 0, 0, time.UTC),
			Period1Label: "9~12월",
			Period2Label: "1월",
		}
	}

	period1 := partition(a.rows, cp.Period1Start, cp.Period1End)
	period2 := partition(a.rows, cp.Period2Start, cp.Period2End)
	a.log.WithField("period1_rows", len(period1)).WithField("period2_rows", len(period2)).
		Debug("partitioned comparison windows")

	agents1 := aggregatePeriodAgents(period1)
	if len(agents1) == 0 {
		b := emptyPeriodBundle(
			fmt.Sprintf("기준 기간(%s)에 응답 데이터가 없습니다.", cp.Period1Label),
			cp.Period1Label, cp.Period2Label,
			"분석월 필터를 '전체'로 변경해보세요.")
		// the baseline window produced nothing, so no delta line at all
		b.Summary = b.Summary[:len(b.Summary)-1]
		return b
	}
	agents2 := aggregatePeriodAgents(period2)
	if len(agents2) == 0 {
		return emptyPeriodBundle(
			fmt.Sprintf("비교 기간(%s)에 응답 데이터가 없습니다.", cp.Period2Label),
			cp.Period1Label, cp.Period2Label,
			"분석월 필터를 '전체'로 변경해보세요.")
	}

	joined := joinAgents(agents1, agents2)
	a.log.WithField("joined_agents", len(joined)).Debug("inner join complete")
	if len(joined) == 0 {
		return emptyPeriodBundle(
			"두 기간 모두 데이터가 있는 T크루가 없습니다.",
			cp.Period1Label, cp.Period2Label,
			"분석월 필터를 '전체'로 변경해보세요.")
	}

	result := filterJoinedAgents(joined, f)
	sort.SliceStable(result, func(i, j int) bool {
		return deltaLess(f.Trend, result[i].Delta, result[j].Delta)
	})

	stores := a.analyzeStores(period1, period2, f)
	detail := periodStoreDetail(period1, period2, result)

	avgDelta := "N/A"
	if len(result) > 0 {
		sum := 0.0
		for _, r := range result {
			sum += r.Delta
		}
		avgDelta = fmt.Sprintf("%.1f%%", sum/float64(len(result)))
	}

	bundle := &types.ResultBundle{
		ByAgent:     periodAgentTable(result, cp.Period1Label, cp.Period2Label),
		ByStore:     periodStoreTable(stores, cp.Period1Label, cp.Period2Label),
		StoreDetail: detail,
		Summary: []types.SummaryItem{
			{Label: "조건 만족 T크루", Value: itoa(len(result))},
			{Label: "조건 만족 매장", Value: itoa(len(stores))},
			{Label: "기준 기간", Value: cp.Period1Label},
			{Label: "비교 기간", Value: cp.Period2Label},
			{Label: "평균 NPS 증감", Value: avgDelta},
		},
		Insights: periodInsights(result, f.Trend),
	}
	for _, s := range stores {
		bundle.StoreOrder = append(bundle.StoreOrder, s.Store)
	}
	return bundle
}

func (a *PeriodComparison) hasUsableDates() bool {
	for _, r := range a.rows {
		if r.HasDate {
			return true
		}
	}
	return false
}

// partition keeps rows whose date falls inside the closed day range; rows
// with an unusable date never qualify.
func partition(rows []types.SurveyRow, start, end time.Time) []types.SurveyRow {
	var out []types.SurveyRow
	for _, r := range rows {
		if !r.HasDate {
			continue
		}
		if r.Date.Before(start) || r.Date.After(end.AddDate(0, 0, 1).Add(-time.Nanosecond)) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func aggregatePeriodAgents(rows []types.SurveyRow) []periodAgentRow {
	type key struct{ agent, agentID string }
	groups := map[key][]types.SurveyRow{}
	var order []key
	for _, r := range rows {
		k := key{r.Agent, r.AgentID}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}
	var out []periodAgentRow
	for _, k := range order {
		g := groups[k]
		out = append(out, periodAgentRow{
			Agent: k.agent, AgentID: k.agentID,
			Dealer: g[0].Dealer, Store: g[0].Store,
			Responses: len(g),
			NPS:       metrics.NPS(validScores(g)),
		})
	}
	return out
}

func aggregatePeriodStores(rows []types.SurveyRow) []periodStoreRow {
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
	var out []periodStoreRow
	for _, k := range order {
		g := groups[k]
		out = append(out, periodStoreRow{
			Team: k.team, Dealer: k.dealer, Store: k.store,
			Responses: len(g),
			NPS:       metrics.NPS(validScores(g)),
		})
	}
	return out
}

// joinAgents inner-joins the two period aggregates on the full grouping key.
func joinAgents(p1, p2 []periodAgentRow) []joinedAgentRow {
	type key struct{ agent, agentID, dealer, store string }
	second := make(map[key]periodAgentRow, len(p2))
	for _, r := range p2 {
		second[key{r.Agent, r.AgentID, r.Dealer, r.Store}] = r
	}
	var out []joinedAgentRow
	for _, r1 := range p1 {
		r2, ok := second[key{r1.Agent, r1.AgentID, r1.Dealer, r1.Store}]
		if !ok {
			continue
		}
		out = append(out, joinedAgentRow{
			Agent: r1.Agent, AgentID: r1.AgentID,
			Dealer: r1.Dealer, Store: r1.Store,
			Responses1: r1.Responses, Responses2: r2.Responses,
			NPS1: r1.NPS, NPS2: r2.NPS,
			Delta: r2.NPS - r1.NPS,
		})
	}
	return out
}

func filterJoinedAgents(joined []joinedAgentRow, f types.FilterSpec) []joinedAgentRow {
	min1 := f.EffectiveMinResponsesPeriod1()
	min2 := f.EffectiveMinResponsesPeriod2()
	var out []joinedAgentRow
	for _, r := range joined {
		if f.Trend == types.TrendDecrease && r.Delta >= 0 {
			continue
		}
		if f.Trend == types.TrendIncrease && r.Delta <= 0 {
			continue
		}
		// the target applies to the comparison-period value only
		if f.NPSTarget != nil && !meetTarget(r.NPS2, *f.NPSTarget, f.NPSComparison) {
			continue
		}
		if r.Responses1 < min1 || r.Responses2 < min2 {
			continue
		}
		out = append(out, r)
	}
	return out
}

// deltaLess orders results so the most relevant movement comes first:
// largest drop for decrease questions, largest gain for increase questions,
// largest absolute change otherwise.
func deltaLess(trend types.Trend, di, dj float64) bool {
	switch trend {
	case types.TrendDecrease:
		return di < dj
	case types.TrendIncrease:
		return di > dj
	default:
		return math.Abs(di) > math.Abs(dj)
	}
}

// analyzeStores runs the same join/filter discipline independently at store
// grain.
func (a *PeriodComparison) analyzeStores(period1, period2 []types.SurveyRow, f types.FilterSpec) []joinedStoreRow {
	s1 := aggregatePeriodStores(period1)
	s2 := aggregatePeriodStores(period2)
	if len(s1) == 0 || len(s2) == 0 {
		return nil
	}
	type key struct{ team, dealer, store string }
	second := make(map[key]periodStoreRow, len(s2))
	for _, r := range s2 {
		second[key{r.Team, r.Dealer, r.Store}] = r
	}
	min1 := f.EffectiveMinResponsesPeriod1()
	min2 := f.EffectiveMinResponsesPeriod2()
	var out []joinedStoreRow
	for _, r1 := range s1 {
		r2, ok := second[key{r1.Team, r1.Dealer, r1.Store}]
		if !ok {
			continue
		}
		row := joinedStoreRow{
			Team: r1.Team, Dealer: r1.Dealer, Store: r1.Store,
			Responses1: r1.Responses, Responses2: r2.Responses,
			NPS1: r1.NPS, NPS2: r2.NPS,
			Delta: r2.NPS - r1.NPS,
		}
		if f.Trend == types.TrendDecrease && row.Delta >= 0 {
			continue
		}
		if f.Trend == types.TrendIncrease && row.Delta <= 0 {
			continue
		}
		if f.NPSTarget != nil && !meetTarget(row.NPS2, *f.NPSTarget, f.NPSComparison) {
			continue
		}
		if row.Responses1 < min1 || row.Responses2 < min2 {
			continue
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return deltaLess(f.Trend, out[i].Delta, out[j].Delta)
	})
	return out
}

// periodStoreDetail drills into the surviving agents: per store, each
// agent's delta, their share of the store's comparison-period responses, and
// how the delta compares to the store's own delta.
func periodStoreDetail(period1, period2 []types.SurveyRow, survivors []joinedAgentRow) map[string]types.Table {
	ids := make(map[string]bool, len(survivors))
	for _, r := range survivors {
		ids[r.AgentID] = true
	}
	var rows1, rows2 []types.SurveyRow
	for _, r := range period1 {
		if ids[r.AgentID] {
			rows1 = append(rows1, r)
		}
	}
	for _, r := range period2 {
		if ids[r.AgentID] {
			rows2 = append(rows2, r)
		}
	}
	if len(rows1) == 0 || len(rows2) == 0 {
		return map[string]types.Table{}
	}

	storeTotals2 := map[string]int{}
	storeScores1 := map[string][]float64{}
	storeScores2 := map[string][]float64{}
	for _, r := range rows1 {
		if r.HasScore {
			storeScores1[r.Store] = append(storeScores1[r.Store], r.Score)
		}
	}
	for _, r := range rows2 {
		storeTotals2[r.Store]++
		if r.HasScore {
			storeScores2[r.Store] = append(storeScores2[r.Store], r.Score)
		}
	}

	type agentKey struct{ agent, agentID string }
	group := func(rows []types.SurveyRow) (map[string]map[agentKey][]types.SurveyRow, []string) {
		byStore := map[string]map[agentKey][]types.SurveyRow{}
		var storeOrder []string
		for _, r := range rows {
			if _, ok := byStore[r.Store]; !ok {
				byStore[r.Store] = map[agentKey][]types.SurveyRow{}
				storeOrder = append(storeOrder, r.Store)
			}
			byStore[r.Store][agentKey{r.Agent, r.AgentID}] = append(byStore[r.Store][agentKey{r.Agent, r.AgentID}], r)
		}
		return byStore, storeOrder
	}
	byStore1, storeOrder := group(rows1)
	byStore2, _ := group(rows2)

	type detailRow struct {
		agent     string
		delta     float64
		responses int
		share     float64
		vs        float64
		status    string
	}
	out := make(map[string]types.Table)
	for _, store := range storeOrder {
		agents2, ok := byStore2[store]
		if !ok {
			continue
		}
		storeDelta := 0.0
		if s1, ok1 := storeScores1[store]; ok1 {
			if s2, ok2 := storeScores2[store]; ok2 {
				storeDelta = metrics.NPS(s2) - metrics.NPS(s1)
			}
		}

		var drows []detailRow
		var agentOrder []agentKey
		for k := range agents2 {
			agentOrder = append(agentOrder, k)
		}
		sort.Slice(agentOrder, func(i, j int) bool {
			if agentOrder[i].agent != agentOrder[j].agent {
				return agentOrder[i].agent < agentOrder[j].agent
			}
			return agentOrder[i].agentID < agentOrder[j].agentID
		})
		for _, k := range agentOrder {
			g1, present := byStore1[store][k]
			if !present {
				continue
			}
			g2 := agents2[k]
			delta := metrics.NPS(validScores(g2)) - metrics.NPS(validScores(g1))
			share := 0.0
			if t := storeTotals2[store]; t > 0 {
				share = float64(len(g2)) / float64(t) * 100
			}
			vs := delta - storeDelta
			drows = append(drows, detailRow{
				agent:     k.agent,
				delta:     metrics.Round1(delta),
				responses: len(g2),
				share:     metrics.Round1(share),
				vs:        metrics.Round1(vs),
				status:    statusFor(vs),
			})
		}
		if len(drows) == 0 {
			continue
		}
		// worst decline first
		sort.SliceStable(drows, func(i, j int) bool { return drows[i].delta < drows[j].delta })
		t := types.Table{Columns: []string{"T크루명", "NPS증감", "응답수", "비중(%)", "vs매장", "상태"}}
		for _, r := range drows {
			t.Rows = append(t.Rows, []string{
				r.agent, fmt.Sprintf("%.1f", r.delta), itoa(r.responses),
				fmt.Sprintf("%.1f", r.share), fmt.Sprintf("%.1f", r.vs), r.status,
			})
		}
		out[store] = t
	}
	return out
}

func periodAgentTable(rows []joinedAgentRow, label1, label2 string) types.Table {
	t := types.Table{Columns: []string{
		"담당자", "담당자ID", "대리점명", "매장명",
		label1 + " NPS", label1 + " 응답수",
		label2 + " NPS", label2 + " 응답수",
		"NPS 증감",
	}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Agent, r.AgentID, r.Dealer, r.Store,
			pct1(r.NPS1), itoa(r.Responses1),
			pct1(r.NPS2), itoa(r.Responses2),
			signedPct1(r.Delta),
		})
	}
	return t
}

func periodStoreTable(rows []joinedStoreRow, label1, label2 string) types.Table {
	t := types.Table{Columns: []string{
		"마케팅팀명", "대리점명", "매장명",
		label1 + " NPS", label1 + " 응답수",
		label2 + " NPS", label2 + " 응답수",
		"NPS 증감",
	}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Team, r.Dealer, r.Store,
			pct1(r.NPS1), itoa(r.Responses1),
			pct1(r.NPS2), itoa(r.Responses2),
			signedPct1(r.Delta),
		})
	}
	return t
}

func periodInsights(result []joinedAgentRow, trend types.Trend) []string {
	if len(result) == 0 {
		return []string{"조건을 만족하는 T크루가 없습니다."}
	}

	sum := 0.0
	for _, r := range result {
		sum += r.Delta
	}
	avg := sum / float64(len(result))

	var insights []string
	switch trend {
	case types.TrendDecrease:
		insights = append(insights, fmt.Sprintf("총 %d명의 T크루가 NPS 하락했습니다", len(result)))
		insights = append(insights, fmt.Sprintf("평균 하락폭: %.1f%%p", math.Abs(avg)))
	case types.TrendIncrease:
		insights = append(insights, fmt.Sprintf("총 %d명의 T크루가 NPS 상승했습니다", len(result)))
		insights = append(insights, fmt.Sprintf("평균 상승폭: %.1f%%p", avg))
	default:
		insights = append(insights, fmt.Sprintf("총 %d명의 T크루 데이터가 있습니다", len(result)))
		insights = append(insights, fmt.Sprintf("평균 NPS 변화: %+.1f%%p", avg))
	}

	top := result[0]
	switch trend {
	case types.TrendDecrease:
		insights = append(insights, fmt.Sprintf(
			"%s T크루: 최대 하락 %.1f%%p (%.1f%% → %.1f%%)", top.Agent, math.Abs(top.Delta), top.NPS1, top.NPS2))
	case types.TrendIncrease:
		insights = append(insights, fmt.Sprintf(
			"%s T크루: 최대 상승 %.1f%%p (%.1f%% → %.1f%%)", top.Agent, top.Delta, top.NPS1, top.NPS2))
	default:
		insights = append(insights, fmt.Sprintf(
			"%s T크루: 최대 변화 %+.1f%%p (%.1f%% → %.1f%%)", top.Agent, top.Delta, top.NPS1, top.NPS2))
	}

	large := 0
	for _, r := range result {
		switch trend {
		case types.TrendDecrease:
			if r.Delta <= -10 {
				large++
			}
		case types.TrendIncrease:
			if r.Delta >= 10 {
				large++
			}
		default:
			if math.Abs(r.Delta) >= 10 {
				large++
			}
		}
	}
	if large > 0 {
		switch trend {
		case types.TrendDecrease:
			insights = append(insights, fmt.Sprintf("NPS 10%%p 이상 하락한 T크루가 %d명입니다", large))
		case types.TrendIncrease:
			insights = append(insights, fmt.Sprintf("NPS 10%%p 이상 상승한 T크루가 %d명입니다", large))
		default:
			insights = append(insights, fmt.Sprintf("NPS 변화가 10%%p 이상인 T크루가 %d명입니다", large))
		}
	}
	return insights
}

func emptyPeriodBundle(message, label1, label2 string, extra ...string) *types.ResultBundle {
	return &types.ResultBundle{
		StoreDetail: map[string]types.Table{},
		Insights:    append([]string{message}, extra...),
		Summary: []types.SummaryItem{
			{Label: "조건 만족 T크루", Value: "0"},
			{Label: "조건 만족 매장", Value: "0"},
			{Label: "기준 기간", Value: label1},
			{Label: "비교 기간", Value: label2},
			{Label: "평균 NPS 증감", Value: "N/A"},
		},
	}
}
