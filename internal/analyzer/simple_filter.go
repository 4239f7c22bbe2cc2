package analyzer

import (
	"fmt"
	"sort"

	"nps-signal-finder/internal/metrics"
	"nps-signal-finder/internal/types"
)

// SimpleFilter answers questions that only carry an NPS threshold and a
// response-count floor. The rows it receives are already scoped by
// month/team/dealer/store; no date handling happens here.
type SimpleFilter struct {
	rows []types.SurveyRow
}

func NewSimpleFilter(rows []types.SurveyRow) *SimpleFilter {
	return &SimpleFilter{rows: rows}
}

// simpleAgentRow keeps the numeric values next to nothing: display strings
// are derived once at table-build time and never parsed back.
type simpleAgentRow struct {
	Team, Dealer, Store, Agent string
	Responses                  int
	Promoters, Detractors      int
	NPS                        float64 // this analyzer displays at 1 decimal
	Share                      float64 // share of the store's responses, %
}

type simpleStoreRow struct {
	Team, Dealer, Store   string
	Responses             int
	Promoters, Detractors int
	NPS                   float64
}

func (a *SimpleFilter) Analyze(f types.FilterSpec) *types.ResultBundle {
	agents, npsValues := a.aggregateAgents(f)
	stores := a.aggregateStores(f)
	detail := a.storeDetail()

	avgNPS := "N/A"
	if len(npsValues) > 0 {
		sum := 0.0
		for _, v := range npsValues {
			sum += v
		}
		avgNPS = pct1(sum / float64(len(npsValues)))
	}

	bundle := &types.ResultBundle{
		ByAgent:     simpleAgentTable(agents),
		ByStore:     simpleStoreTable(stores),
		StoreDetail: detail,
		Summary: []types.SummaryItem{
			{Label: "담당자 수", Value: itoa(len(agents))},
			{Label: "매장 수", Value: itoa(len(stores))},
			{Label: "평균 NPS", Value: avgNPS},
		},
		Insights: simpleInsights(agents, stores, npsValues),
	}
	for _, s := range stores {
		bundle.StoreOrder = append(bundle.StoreOrder, s.Store)
	}
	return bundle
}

// aggregateAgents groups by (team, dealer, store, agent), applies the
// response floor and the optional NPS target, and sorts ascending by the
// grouping keys then NPS. Ties keep first-encounter order; there is no
// secondary tiebreak on agent name.
func (a *SimpleFilter) aggregateAgents(f types.FilterSpec) ([]simpleAgentRow, []float64) {
	type key struct{ team, dealer, store, agent string }
	groups := map[key][]types.SurveyRow{}
	var order []key
	storeTotals := map[[3]string]int{}
	for _, r := range a.rows {
		k := key{r.Team, r.Dealer, r.Store, r.Agent}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
		storeTotals[[3]string{r.Team, r.Dealer, r.Store}]++
	}

	var rows []simpleAgentRow
	for _, k := range order {
		g := groups[k]
		promoters, detractors := countPromoters(g)
		total := len(g)
		nps := metrics.Round1(float64(promoters-detractors) / float64(total) * 100)
		storeTotal := storeTotals[[3]string{k.team, k.dealer, k.store}]
		rows = append(rows, simpleAgentRow{
			Team: k.team, Dealer: k.dealer, Store: k.store, Agent: k.agent,
			Responses: total, Promoters: promoters, Detractors: detractors,
			NPS:   nps,
			Share: metrics.Round1(float64(total) / float64(storeTotal) * 100),
		})
	}

	minResponses := f.EffectiveMinResponsesPeriod1()
	filtered := rows[:0:0]
	for _, r := range rows {
		if r.Responses < minResponses {
			continue
		}
		if f.NPSTarget != nil && !meetTarget(r.NPS, *f.NPSTarget, f.NPSComparison) {
			continue
		}
		filtered = append(filtered, r)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if a.Team != b.Team {
			return a.Team < b.Team
		}
		if a.Dealer != b.Dealer {
			return a.Dealer < b.Dealer
		}
		if a.Store != b.Store {
			return a.Store < b.Store
		}
		return a.NPS < b.NPS
	})

	npsValues := make([]float64, len(filtered))
	for i, r := range filtered {
		npsValues[i] = r.NPS
	}
	return filtered, npsValues
}

// aggregateStores is the same pipeline one grouping level up.
func (a *SimpleFilter) aggregateStores(f types.FilterSpec) []simpleStoreRow {
	type key struct{ team, dealer, store string }
	groups := map[key][]types.SurveyRow{}
	var order []key
	for _, r := range a.rows {
		k := key{r.Team, r.Dealer, r.Store}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	minResponses := f.EffectiveMinResponsesPeriod1()
	var rows []simpleStoreRow
	for _, k := range order {
		g := groups[k]
		promoters, detractors := countPromoters(g)
		total := len(g)
		nps := metrics.Round1(float64(promoters-detractors) / float64(total) * 100)
		if total < minResponses {
			continue
		}
		if f.NPSTarget != nil && !meetTarget(nps, *f.NPSTarget, f.NPSComparison) {
			continue
		}
		rows = append(rows, simpleStoreRow{
			Team: k.team, Dealer: k.dealer, Store: k.store,
			Responses: total, Promoters: promoters, Detractors: detractors,
			NPS: nps,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Team != b.Team {
			return a.Team < b.Team
		}
		if a.Dealer != b.Dealer {
			return a.Dealer < b.Dealer
		}
		if a.Store != b.Store {
			return a.Store < b.Store
		}
		return a.NPS < b.NPS
	})
	return rows
}

// storeDetail builds the per-store agent drill-down from the full scoped
// dataset, independent of the filtered results: the detail always shows full
// context, including agents the thresholds removed.
func (a *SimpleFilter) storeDetail() map[string]types.Table {
	storeTotals := map[string]int{}
	storeProm := map[string]int{}
	storeDet := map[string]int{}
	type key struct{ store, agent string }
	groups := map[key][]types.SurveyRow{}
	var order []key
	for _, r := range a.rows {
		storeTotals[r.Store]++
		if r.HasScore {
			if r.Score >= 9 {
				storeProm[r.Store]++
			} else if r.Score <= 6 {
				storeDet[r.Store]++
			}
		}
		k := key{r.Store, r.Agent}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	type detailRow struct {
		agent  string
		nps    float64
		n      int
		share  float64
		vs     float64
		status string
	}
	byStore := map[string][]detailRow{}
	for _, k := range order {
		g := groups[k]
		promoters, detractors := countPromoters(g)
		total := len(g)
		nps := metrics.Round1(float64(promoters-detractors) / float64(total) * 100)
		storeNPS := float64(storeProm[k.store]-storeDet[k.store]) / float64(storeTotals[k.store]) * 100
		vs := metrics.Round1(nps - storeNPS)
		byStore[k.store] = append(byStore[k.store], detailRow{
			agent:  k.agent,
			nps:    nps,
			n:      total,
			share:  metrics.Round1(float64(total) / float64(storeTotals[k.store]) * 100),
			vs:     vs,
			status: statusFor(vs),
		})
	}

	out := make(map[string]types.Table, len(byStore))
	for store, rows := range byStore {
		// worst agents first
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].nps < rows[j].nps })
		t := types.Table{Columns: []string{"담당자", "NPS(%)", "응답수", "매장내 모수 비중(%)", "vs매장", "상태"}}
		for _, r := range rows {
			t.Rows = append(t.Rows, []string{
				r.agent, pct1(r.nps), itoa(r.n), pct1(r.share), pct1(r.vs), r.status,
			})
		}
		out[store] = t
	}
	return out
}

func simpleAgentTable(rows []simpleAgentRow) types.Table {
	t := types.Table{Columns: []string{"마케팅팀명", "대리점명", "매장명", "담당자", "NPS(%)", "응답수", "매장내 모수 비중(%)"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Team, r.Dealer, r.Store, r.Agent, pct1(r.NPS), itoa(r.Responses), pct1(r.Share),
		})
	}
	return t
}

func simpleStoreTable(rows []simpleStoreRow) types.Table {
	t := types.Table{Columns: []string{"마케팅팀명", "대리점명", "매장명", "NPS(%)", "응답수", "추천수", "비추천수"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Team, r.Dealer, r.Store, pct1(r.NPS), itoa(r.Responses), itoa(r.Promoters), itoa(r.Detractors),
		})
	}
	return t
}

// simpleInsights names the single worst agent and store. Ties at the minimum
// are never silently collapsed: the first row (by the applied sort) is named
// together with how many others share the value.
func simpleInsights(agents []simpleAgentRow, stores []simpleStoreRow, npsValues []float64) []string {
	var insights []string

	if len(agents) > 0 {
		minNPS := agents[0].NPS
		for _, r := range agents[1:] {
			if r.NPS < minNPS {
				minNPS = r.NPS
			}
		}
		var worst *simpleAgentRow
		tied := 0
		for i := range agents {
			if agents[i].NPS == minNPS {
				if worst == nil {
					worst = &agents[i]
				}
				tied++
			}
		}
		if tied == 1 {
			insights = append(insights, fmt.Sprintf(
				"%s (%s)의 NPS가 %s로 가장 낮습니다.", worst.Agent, worst.Store, pct1(worst.NPS)))
		} else {
			insights = append(insights, fmt.Sprintf(
				"%s (%s) 외 %d명의 NPS가 %s로 가장 낮습니다.", worst.Agent, worst.Store, tied-1, pct1(worst.NPS)))
		}

		if len(npsValues) > 0 {
			minV, maxV := npsValues[0], npsValues[0]
			for _, v := range npsValues[1:] {
				if v < minV {
					minV = v
				}
				if v > maxV {
					maxV = v
				}
			}
			insights = append(insights, fmt.Sprintf(
				"NPS 범위: %.1f%% ~ %.1f%% (편차 %.1f%%p)", minV, maxV, maxV-minV))
		}
	}

	if len(stores) > 0 {
		minNPS := stores[0].NPS
		for _, r := range stores[1:] {
			if r.NPS < minNPS {
				minNPS = r.NPS
			}
		}
		var worst *simpleStoreRow
		tied := 0
		for i := range stores {
			if stores[i].NPS == minNPS {
				if worst == nil {
					worst = &stores[i]
				}
				tied++
			}
		}
		if tied == 1 {
			insights = append(insights, fmt.Sprintf(
				"%s의 NPS가 %s로 가장 낮습니다.", worst.Store, pct1(worst.NPS)))
		} else {
			insights = append(insights, fmt.Sprintf(
				"%s 외 %d개 매장의 NPS가 %s로 가장 낮습니다.", worst.Store, tied-1, pct1(worst.NPS)))
		}
	}

	return insights
}
