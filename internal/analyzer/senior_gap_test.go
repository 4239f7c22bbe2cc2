package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nps-signal-finder/internal/types"
)

// 박민수 carries an elevated senior share with lagging senior satisfaction;
// 정수현 shares the elevated senior mix but keeps those customers happy, and
// 최지훈's low senior share keeps the population baseline honest.
func seniorFixture() []types.SurveyRow {
	var rows []types.SurveyRow
	// 박민수: 3 senior detractors/passives, 2 promoters -> NPS -20, senior NPS -100
	for _, s := range []float64{2, 3, 6} {
		rows = append(rows, mkRow("남부마케팅팀", "D2", "서초점", "박민수", "A10", s, true, ""))
	}
	for _, s := range []float64{10, 10} {
		rows = append(rows, mkRow("남부마케팅팀", "D2", "서초점", "박민수", "A10", s, false, ""))
	}
	// 정수현: same 60% senior share, senior NPS 100, overall NPS 80
	for _, s := range []float64{10, 10, 9} {
		rows = append(rows, mkRow("남부마케팅팀", "D2", "서초점", "정수현", "A12", s, true, ""))
	}
	for _, s := range []float64{9, 8} {
		rows = append(rows, mkRow("남부마케팅팀", "D2", "서초점", "정수현", "A12", s, false, ""))
	}
	// 최지훈: one happy senior, NPS 80, senior NPS 100
	rows = append(rows, mkRow("남부마케팅팀", "D2", "서초점", "최지훈", "A11", 10, true, ""))
	for _, s := range []float64{10, 9, 9, 8} {
		rows = append(rows, mkRow("남부마케팅팀", "D2", "서초점", "최지훈", "A11", s, false, ""))
	}
	return rows
}

func TestSeniorGapPipeline(t *testing.T) {
	b := NewSeniorGap(seniorFixture()).Analyze(types.FilterSpec{})

	// population senior share is 46.7% (7/15); 박민수 and 정수현 clear it,
	// and only 박민수 lags their mean senior NPS of 0
	require.Len(t, b.ByAgent.Rows, 1)
	row := b.ByAgent.Rows[0]
	assert.Equal(t, "박민수", row[0])
	assert.Equal(t, "A10", row[1])
	assert.Equal(t, "-20.0%", row[8])  // NPS
	assert.Equal(t, "60.0%", row[9])   // senior share
	assert.Equal(t, "-100.0%", row[10]) // senior NPS

	require.Len(t, b.ByStore.Rows, 1)
	assert.Equal(t, "서초점", b.ByStore.Rows[0][2])
	assert.Equal(t, []string{"서초점"}, b.StoreOrder)

	assert.Equal(t, types.SummaryItem{Label: "조건 만족 T크루", Value: "1"}, b.Summary[0])
	assert.Equal(t, types.SummaryItem{Label: "NPS 목표", Value: "87%"}, b.Summary[2])
	assert.Equal(t, types.SummaryItem{Label: "필터 조건Y 시니어 비중", Value: "46.7% (7/15)"}, b.Summary[3])
	assert.Equal(t, types.SummaryItem{Label: "조건 만족 T크루 NPS", Value: "-20.0%"}, b.Summary[4])

	assert.Equal(t, "총 1명의 T크루가 조건을 만족합니다", b.Insights[0])
	assert.Contains(t, b.Insights, "NPS 목표 87% 미달 T크루입니다")
}

func TestSeniorGapCustomThreshold(t *testing.T) {
	f := types.FilterSpec{
		SeniorThreshold: &types.SeniorThreshold{Kind: types.SeniorCustom, Value: 70},
	}
	b := NewSeniorGap(seniorFixture()).Analyze(f)

	// 박민수's 60% share misses the 70% cutoff
	assert.True(t, b.ByAgent.Empty())
	assert.Equal(t, "조건을 만족하는 T크루가 없습니다.", b.Insights[0])
}

func TestSeniorGapStoreDetail(t *testing.T) {
	b := NewSeniorGap(seniorFixture()).Analyze(types.FilterSpec{})

	detail, ok := b.StoreDetail["서초점"]
	require.True(t, ok)
	// detail only covers the surviving agent, not the full population
	require.Len(t, detail.Rows, 1)
	row := detail.Rows[0]
	assert.Equal(t, "박민수", row[0])
	// the survivor is the whole survivor-store population, so vs is 0
	assert.Equal(t, "0.0%", row[8])
	assert.Equal(t, "양호", row[9])
}

func TestSeniorGapAllOnTarget(t *testing.T) {
	// a lone high performer: comparative senior filter leaves nobody
	var rows []types.SurveyRow
	rows = append(rows, mkRow("강서마케팅팀", "D5", "목동점", "정우성", "A30", 10, true, ""))
	for _, s := range []float64{10, 10, 9, 9} {
		rows = append(rows, mkRow("강서마케팅팀", "D5", "목동점", "정우성", "A30", s, false, ""))
	}

	b := NewSeniorGap(rows).Analyze(types.FilterSpec{})

	assert.True(t, b.ByAgent.Empty())
	assert.Equal(t, "조건을 만족하는 T크루가 없습니다.", b.Insights[0])
	assert.Contains(t, b.Insights, "모든 T크루가 NPS 목표(87%)를 달성했습니다!")
}

// The comparative senior-NPS baseline comes from the agents that cleared the
// share threshold, not the whole population: a low-share outlier with a
// terrible senior NPS must not drag the cutoff down for everyone else.
func TestSeniorGapBaselineUsesShareSurvivors(t *testing.T) {
	var rows []types.SurveyRow
	// 엑스: 50% senior share, senior NPS 60, overall NPS 30
	for _, s := range []float64{10, 10, 9, 9, 2} {
		rows = append(rows, mkRow("수원마케팅팀", "D7", "영통점", "엑스", "A40", s, true, ""))
	}
	for i := 0; i < 5; i++ {
		rows = append(rows, mkRow("수원마케팅팀", "D7", "영통점", "엑스", "A40", 7, false, ""))
	}
	// 와이: 10% senior share, senior NPS -100; removed by the share threshold
	rows = append(rows, mkRow("수원마케팅팀", "D7", "영통점", "와이", "A41", 2, true, ""))
	for i := 0; i < 9; i++ {
		rows = append(rows, mkRow("수원마케팅팀", "D7", "영통점", "와이", "A41", 7, false, ""))
	}
	// 지웅: 50% senior share, senior NPS 80
	for _, s := range []float64{10, 10, 9, 9, 7} {
		rows = append(rows, mkRow("수원마케팅팀", "D7", "영통점", "지웅", "A42", s, true, ""))
	}
	for i := 0; i < 5; i++ {
		rows = append(rows, mkRow("수원마케팅팀", "D7", "영통점", "지웅", "A42", 7, false, ""))
	}

	b := NewSeniorGap(rows).Analyze(types.FilterSpec{})

	// share survivors are 엑스 and 지웅, mean senior NPS 70: 엑스 (60) lags
	// it, 지웅 (80) does not. A whole-population mean (13.3, pulled down by
	// 와이) would wrongly drop 엑스.
	names := []string{}
	for _, row := range b.ByAgent.Rows {
		names = append(names, row[0])
	}
	assert.Equal(t, []string{"엑스"}, names)
}

// The population baselines are computed before any per-agent filtering, so
// tightening the response floor must not move them.
func TestSeniorGapBaselineStableUnderResponseFloor(t *testing.T) {
	baseline := func(f types.FilterSpec) string {
		b := NewSeniorGap(seniorFixture()).Analyze(f)
		for _, item := range b.Summary {
			if item.Label == "필터 조건Y 시니어 비중" {
				return item.Value
			}
		}
		return ""
	}

	assert.Equal(t, "46.7% (7/15)", baseline(types.FilterSpec{}))
	assert.Equal(t, "46.7% (7/15)", baseline(types.FilterSpec{MinResponses: 100}))
}

func TestSeniorGapNoData(t *testing.T) {
	b := NewSeniorGap(nil).Analyze(types.FilterSpec{})

	assert.Equal(t, "조건을 만족하는 데이터가 없습니다.", b.Insights[0])
	assert.Equal(t, types.SummaryItem{Label: "조건 만족 T크루", Value: "0"}, b.Summary[0])
}
