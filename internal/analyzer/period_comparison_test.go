package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nps-signal-finder/internal/types"
)

func decVsJanPeriods() *types.ComparisonPeriods {
	return &types.ComparisonPeriods{
		Period1Start: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		Period1End:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		Period2Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Period2End:   time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		Period1Label: "12월",
		Period2Label: "1월",
	}
}

func periodFixture() []types.SurveyRow {
	var rows []types.SurveyRow
	// 한송이: December NPS 80, January NPS -20
	for _, s := range []float64{10, 10, 10, 9, 7} {
		rows = append(rows, mkRow("강서마케팅팀", "D3", "판교점", "한송이", "A20", s, false, "20251210"))
	}
	for _, s := range []float64{10, 2, 2, 7, 7} {
		rows = append(rows, mkRow("강서마케팅팀", "D3", "판교점", "한송이", "A20", s, false, "20260110"))
	}
	// 오자람: flat at 80 across both windows
	for _, s := range []float64{9, 9, 9, 9, 7} {
		rows = append(rows, mkRow("강서마케팅팀", "D3", "판교점", "오자람", "A21", s, false, "20251215"))
	}
	for _, s := range []float64{10, 10, 9, 9, 8} {
		rows = append(rows, mkRow("강서마케팅팀", "D3", "판교점", "오자람", "A21", s, false, "20260120"))
	}
	return rows
}

func TestPeriodComparisonDecrease(t *testing.T) {
	f := types.FilterSpec{
		Trend:             types.TrendDecrease,
		ComparisonPeriods: decVsJanPeriods(),
	}
	b := NewPeriodComparison(periodFixture()).Analyze(f)

	// 오자람's delta is 0, which a decrease question excludes
	require.Len(t, b.ByAgent.Rows, 1)
	row := b.ByAgent.Rows[0]
	assert.Equal(t, "한송이", row[0])
	assert.Equal(t, "80.0%", row[4])    // 12월 NPS
	assert.Equal(t, "5", row[5])        // 12월 응답수
	assert.Equal(t, "-20.0%", row[6])   // 1월 NPS
	assert.Equal(t, "-100.0%", row[8])  // delta
	assert.Equal(t, "12월 NPS", b.ByAgent.Columns[4])

	// store level: December 80 vs January 30
	require.Len(t, b.ByStore.Rows, 1)
	assert.Equal(t, "판교점", b.ByStore.Rows[0][2])
	assert.Equal(t, "-50.0%", b.ByStore.Rows[0][7])

	assert.Equal(t, types.SummaryItem{Label: "기준 기간", Value: "12월"}, b.Summary[2])
	assert.Equal(t, types.SummaryItem{Label: "평균 NPS 증감", Value: "-100.0%"}, b.Summary[4])

	assert.Equal(t, "총 1명의 T크루가 NPS 하락했습니다", b.Insights[0])
	assert.Equal(t, "평균 하락폭: 100.0%p", b.Insights[1])
	assert.Contains(t, b.Insights, "한송이 T크루: 최대 하락 100.0%p (80.0% → -20.0%)")
	assert.Contains(t, b.Insights, "NPS 10%p 이상 하락한 T크루가 1명입니다")
}

func TestPeriodComparisonIncreaseFindsNobody(t *testing.T) {
	f := types.FilterSpec{
		Trend:             types.TrendIncrease,
		ComparisonPeriods: decVsJanPeriods(),
	}
	b := NewPeriodComparison(periodFixture()).Analyze(f)

	assert.True(t, b.ByAgent.Empty())
	assert.Equal(t, "조건을 만족하는 T크루가 없습니다.", b.Insights[0])
	assert.Equal(t, types.SummaryItem{Label: "평균 NPS 증감", Value: "N/A"}, b.Summary[4])
}

func TestPeriodComparisonStoreDetail(t *testing.T) {
	f := types.FilterSpec{
		Trend:             types.TrendDecrease,
		ComparisonPeriods: decVsJanPeriods(),
	}
	b := NewPeriodComparison(periodFixture()).Analyze(f)

	detail, ok := b.StoreDetail["판교점"]
	require.True(t, ok)
	require.Len(t, detail.Rows, 1)
	row := detail.Rows[0]
	assert.Equal(t, "한송이", row[0])
	assert.Equal(t, "-100.0", row[1]) // own delta
	// the survivor is the whole survivor-store population, so vs is 0
	assert.Equal(t, "0.0", row[4])
	assert.Equal(t, "양호", row[5])
}

func TestPeriodComparisonEmptyBasePeriod(t *testing.T) {
	cp := decVsJanPeriods()
	// shift the base window to an empty month
	cp.Period1Start = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	cp.Period1End = time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC)
	cp.Period1Label = "7월"

	b := NewPeriodComparison(periodFixture()).Analyze(types.FilterSpec{ComparisonPeriods: cp})

	assert.Equal(t, "기준 기간(7월)에 응답 데이터가 없습니다.", b.Insights[0])
	assert.Equal(t, "분석월 필터를 '전체'로 변경해보세요.", b.Insights[1])
	// no delta line when the baseline itself is missing
	require.Len(t, b.Summary, 4)
}

func TestPeriodComparisonEmptyComparePeriod(t *testing.T) {
	cp := decVsJanPeriods()
	cp.Period2Start = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cp.Period2End = time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	cp.Period2Label = "3월"

	b := NewPeriodComparison(periodFixture()).Analyze(types.FilterSpec{ComparisonPeriods: cp})

	assert.Equal(t, "비교 기간(3월)에 응답 데이터가 없습니다.", b.Insights[0])
	assert.Equal(t, types.SummaryItem{Label: "평균 NPS 증감", Value: "N/A"}, b.Summary[4])
}

func TestPeriodComparisonErrSentinel(t *testing.T) {
	f := types.FilterSpec{
		ComparisonPeriods: &types.ComparisonPeriods{
			Err:          "분석월을 선택해주세요",
			Period1Label: "오류",
			Period2Label: "오류",
		},
	}
	b := NewPeriodComparison(periodFixture()).Analyze(f)

	assert.Equal(t, "분석월을 선택해주세요", b.Insights[0])
	assert.True(t, b.ByAgent.Empty())
}

func TestPeriodComparisonNoUsableDates(t *testing.T) {
	rows := []types.SurveyRow{
		mkRow("강서마케팅팀", "D3", "판교점", "한송이", "A20", 10, false, ""),
	}
	b := NewPeriodComparison(rows).Analyze(types.FilterSpec{ComparisonPeriods: decVsJanPeriods()})

	assert.Equal(t, "처리일 컬럼이 없습니다.", b.Insights[0])
}

// An agent with rows in only one window never reaches the result, however
// permissive the other filters are.
func TestPeriodComparisonInnerJoin(t *testing.T) {
	rows := periodFixture()
	for _, s := range []float64{2, 2, 2, 2, 2} {
		rows = append(rows, mkRow("강서마케팅팀", "D3", "판교점", "신입이", "A22", s, false, "20251205"))
	}
	f := types.FilterSpec{
		ComparisonPeriods: decVsJanPeriods(),
		MinResponses:      1,
	}
	b := NewPeriodComparison(rows).Analyze(f)

	for _, row := range b.ByAgent.Rows {
		assert.NotEqual(t, "신입이", row[0])
	}
}

func TestPeriodComparisonLargestDropSortsFirst(t *testing.T) {
	rows := periodFixture()
	// 오자람 replaced by a milder decliner: December 80 -> January 40
	filtered := rows[:10]
	for _, s := range []float64{9, 9, 9, 9, 7} {
		filtered = append(filtered, mkRow("강서마케팅팀", "D3", "판교점", "오자람", "A21", s, false, "20251215"))
	}
	for _, s := range []float64{10, 10, 9, 2, 7} {
		filtered = append(filtered, mkRow("강서마케팅팀", "D3", "판교점", "오자람", "A21", s, false, "20260120"))
	}
	f := types.FilterSpec{
		Trend:             types.TrendDecrease,
		ComparisonPeriods: decVsJanPeriods(),
	}
	b := NewPeriodComparison(filtered).Analyze(f)

	require.Len(t, b.ByAgent.Rows, 2)
	assert.Equal(t, "한송이", b.ByAgent.Rows[0][0]) // -100 before -40
	assert.Equal(t, "오자람", b.ByAgent.Rows[1][0])
}

func TestPeriodComparisonResponseFloors(t *testing.T) {
	rows := periodFixture()
	f := types.FilterSpec{
		Trend:               types.TrendDecrease,
		ComparisonPeriods:   decVsJanPeriods(),
		MinResponsesPeriod1: 6, // 한송이 has only 5 December responses
	}
	b := NewPeriodComparison(rows).Analyze(f)

	assert.True(t, b.ByAgent.Empty())
}
