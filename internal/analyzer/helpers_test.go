package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"nps-signal-finder/internal/types"
)

func mkRow(team, dealer, store, agent, agentID string, score float64, senior bool, day string) types.SurveyRow {
	r := types.SurveyRow{
		Team: team, Dealer: dealer, Store: store,
		Agent: agent, AgentID: agentID,
		Score: score, HasScore: true,
		Senior: senior,
	}
	if day != "" {
		d, err := time.Parse("20060102", day)
		if err != nil {
			panic(err)
		}
		r.Date = d
		r.HasDate = true
	}
	return r
}

func TestStatusBands(t *testing.T) {
	assert.Equal(t, "우수", statusFor(12.0))
	assert.Equal(t, "우수", statusFor(5.0))
	assert.Equal(t, "양호", statusFor(4.9))
	assert.Equal(t, "양호", statusFor(0.0))
	assert.Equal(t, "주의", statusFor(-0.1))
	assert.Equal(t, "주의", statusFor(-5.0))
	assert.Equal(t, "개선필요", statusFor(-5.1))
}

func TestMeetTarget(t *testing.T) {
	assert.True(t, meetTarget(86.9, 87, types.CompareBelow))
	assert.False(t, meetTarget(87.0, 87, types.CompareBelow))
	assert.True(t, meetTarget(87.0, 87, types.CompareAbove))
	assert.False(t, meetTarget(86.9, 87, types.CompareAbove))
}

func TestApplyScope(t *testing.T) {
	rows := []types.SurveyRow{
		mkRow("인천마케팅팀", "D1", "강남점", "김철수", "A01", 10, false, "20260115"),
		mkRow("남부마케팅팀", "D2", "서초점", "박민수", "A10", 9, false, "20251210"),
		mkRow("인천마케팅팀", "D1", "강남점", "김철수", "A01", 8, false, ""),
	}

	scoped := ApplyScope(rows, types.FilterSpec{AnalysisMonth: "2026년 01월"})
	assert.Len(t, scoped, 1)
	assert.Equal(t, "A01", scoped[0].AgentID)

	// rows without a usable date never match a month filter
	scoped = ApplyScope(rows, types.FilterSpec{AnalysisMonth: "2025년 12월"})
	assert.Len(t, scoped, 1)
	assert.Equal(t, "A10", scoped[0].AgentID)

	// the all-months sentinel disables the month filter
	scoped = ApplyScope(rows, types.FilterSpec{AnalysisMonth: types.MonthAll})
	assert.Len(t, scoped, 3)

	scoped = ApplyScope(rows, types.FilterSpec{Team: "남부마케팅팀"})
	assert.Len(t, scoped, 1)

	scoped = ApplyScope(rows, types.FilterSpec{StoreName: "강남점"})
	assert.Len(t, scoped, 2)
}

func TestDispatchUnsupportedTypes(t *testing.T) {
	b := Run(nil, types.FilterSpec{AnalysisType: types.AnalysisStore})
	assert.Contains(t, b.Insights[0], "매장별 상세 분석")
	assert.True(t, b.ByAgent.Empty())

	b = Run(nil, types.FilterSpec{AnalysisType: types.AnalysisGeneral})
	assert.Contains(t, b.Insights[0], "질문 유형을 인식할 수 없습니다")
}
