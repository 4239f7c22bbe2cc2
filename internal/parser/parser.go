// Package parser turns a free-text question (Korean, with latin "NPS"
// tokens) into a FilterSpec. Everything is deterministic keyword/regex
// matching against fixed tables; there is no I/O and no state.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"nps-signal-finder/internal/types"
)

// Team keyword table. Iteration order is significant: the first keyword
// contained in the question wins.
var teamKeywords = []struct {
	keyword string
	team    string
}{
	{"인천", "인천마케팅팀"},
	{"남부", "남부마케팅팀"},
	{"강서", "강서마케팅팀"},
	{"수원", "수원마케팅팀"},
}

var (
	reStoreName  = regexp.MustCompile(`([가-힣]+점)`)
	reStoreCode  = regexp.MustCompile(`매장[^0-9]*([0-9]{4})`)
	reDealerCode = regexp.MustCompile(`(?i)대리점[^0-9A-Za-z가-힣_]*([A-Z0-9]+)`)
	reDealerID   = regexp.MustCompile(`(?i)대리점[^0-9A-Za-z가-힣_]*(D[0-9]+)`)

	reNPSBelow = regexp.MustCompile(`nps[^0-9]*([0-9]+)%?[^0-9]*(미만|이하|낮은|아래)`)
	reNPSAbove = regexp.MustCompile(`nps[^0-9]*([0-9]+)%?[^0-9]*(이상|초과|넘는|넘은|높은|위)`)

	reSeniorCustom = regexp.MustCompile(`시니어[^0-9]*비중[^0-9]*([0-9]+)%?[^0-9]*(이상|넘는)`)

	reMinResponses = regexp.MustCompile(`응답[^0-9]*([0-9]+)건`)

	// "12월 대비 1월" — the base month must not be the tail of a "9~12월"
	// range, otherwise the range pattern below would never fire.
	reMonthVsMonth = regexp.MustCompile(`(?:^|[^0-9~])([0-9]+)월\s*대비\s*([0-9]+)월`)
	// "9~12월 대비 1월"
	reRangeVsMonth = regexp.MustCompile(`([0-9]+)~([0-9]+)월\s*대비\s*([0-9]+)월`)
	// "2일 누적 대비 5일" (needs an analysis month for the year/month context)
	reDayVsDay = regexp.MustCompile(`([0-9]+)일\s*(?:누적\s*)?대비\s*([0-9]+)일`)

	reAnalysisMonth = regexp.MustCompile(`([0-9]{4})년\s*([0-9]{1,2})월`)
)

var npsLowKeywords = []string{"낮은", "낮고", "낮으면서", "낮음", "낮아"}
var npsHighKeywords = []string{"높은", "높고", "높으면서", "높음", "높아"}

var seniorHighKeywords = []string{"비중이 높은", "비중 높은", "많은", "높고", "높으면서"}
var seniorLowKeywords = []string{"비중이 낮은", "비중 낮은", "적은", "낮으면서"}

var seniorIntentKeywords = []string{"비중", "높은", "높고", "높으면서", "낮은", "낮고", "낮으면서", "많은", "적은"}

// ErrMonthRequired is surfaced when a day-range comparison is asked without
// an analysis month; the caller must show it and run nothing.
const ErrMonthRequired = "분석월을 선택해주세요"

// Parse extracts every filter condition a question carries. Unmatched
// patterns degrade to absent fields, never errors.
func Parse(question string) types.FilterSpec {
	lower := strings.ToLower(question)

	spec := types.FilterSpec{
		Team:         extractTeam(question),
		StoreName:    firstGroup(reStoreName, question),
		StoreCode:    firstGroup(reStoreCode, question),
		DealerCode:   strings.ToUpper(firstGroup(reDealerCode, question)),
		DealerID:     firstGroup(reDealerID, question),
		MinResponses: extractMinResponses(question),
		Trend:        detectTrend(question),
		AnalysisType: detectAnalysisType(lower),
	}

	if target, cmp, ok := extractNPSTarget(lower); ok {
		spec.NPSTarget = &target
		spec.NPSComparison = cmp
	}
	spec.SeniorThreshold = extractSeniorThreshold(lower)

	// No analysis month is known at parse time; the day-range pattern still
	// has to produce its explicit error sentinel here.
	spec.ComparisonPeriods = ComparisonPeriods(question, spec.AnalysisMonth)

	return spec
}

func extractTeam(question string) string {
	for _, entry := range teamKeywords {
		if strings.Contains(question, entry.keyword) {
			return entry.team
		}
	}
	return ""
}

// extractNPSTarget resolves the three-tier NPS condition: explicit
// "NPS N% below-ish", explicit "NPS N% above-ish", then a bare sentiment
// keyword with the default target. No NPS mention at all means absent.
func extractNPSTarget(lower string) (float64, types.NPSComparison, bool) {
	if !strings.Contains(lower, "nps") {
		return 0, "", false
	}
	if m := reNPSBelow.FindStringSubmatch(lower); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return v, types.CompareBelow, true
	}
	if m := reNPSAbove.FindStringSubmatch(lower); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return v, types.CompareAbove, true
	}
	if containsAny(lower, npsLowKeywords) {
		return types.DefaultNPSTarget, types.CompareBelow, true
	}
	if containsAny(lower, npsHighKeywords) {
		return types.DefaultNPSTarget, types.CompareAbove, true
	}
	return 0, "", false
}

// extractSeniorThreshold only fires when the question mentions seniors at
// all; a bare mention defaults to the population-average cutoff.
func extractSeniorThreshold(lower string) *types.SeniorThreshold {
	if !strings.Contains(lower, "시니어") {
		return nil
	}
	if m := reSeniorCustom.FindStringSubmatch(lower); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return &types.SeniorThreshold{Kind: types.SeniorCustom, Value: v}
	}
	if containsAny(lower, seniorHighKeywords) {
		return &types.SeniorThreshold{Kind: types.SeniorAverage}
	}
	if containsAny(lower, seniorLowKeywords) {
		return &types.SeniorThreshold{Kind: types.SeniorBelowAverage}
	}
	return &types.SeniorThreshold{Kind: types.SeniorAverage}
}

func extractMinResponses(question string) int {
	if m := reMinResponses.FindStringSubmatch(question); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return types.DefaultMinResponses
}

func detectTrend(question string) types.Trend {
	if strings.Contains(question, "하락") || strings.Contains(question, "낮아진") || strings.Contains(question, "떨어진") {
		return types.TrendDecrease
	}
	if strings.Contains(question, "상승") || strings.Contains(question, "높아진") || strings.Contains(question, "올라간") {
		return types.TrendIncrease
	}
	return types.TrendNone
}

// detectAnalysisType is an ordered rule cascade over the raw text, first
// match wins. It deliberately ignores which sub-extractions succeeded.
func detectAnalysisType(lower string) types.AnalysisType {
	if strings.Contains(lower, "nps") &&
		!strings.Contains(lower, "시니어") &&
		!strings.Contains(lower, "대비") &&
		!strings.Contains(lower, "비교") {
		return types.AnalysisSimpleFilter
	}
	if strings.Contains(lower, "시니어") && strings.Contains(lower, "nps") {
		if containsAny(lower, seniorIntentKeywords) ||
			strings.Contains(lower, "gap") || strings.Contains(lower, "차이") {
			return types.AnalysisSeniorGap
		}
	}
	if strings.Contains(lower, "기간") || strings.Contains(lower, "대비") || strings.Contains(lower, "비교") {
		if strings.Contains(lower, "상승") || strings.Contains(lower, "하락") {
			return types.AnalysisPeriodComparison
		}
	}
	if strings.Contains(lower, "매장") || strings.Contains(lower, "대리점") {
		return types.AnalysisStore
	}
	return types.AnalysisGeneral
}

// ComparisonPeriods resolves the period-over-period windows of a question.
// Four mutually exclusive patterns are tried in order; no match returns nil.
// analysisMonth ("YYYY년 MM월") is required context for the day-range form:
// without it that form yields the explicit error sentinel, while a day bound
// past the month's real length is treated as no match.
func ComparisonPeriods(question, analysisMonth string) *types.ComparisonPeriods {
	if m := reMonthVsMonth.FindStringSubmatch(question); m != nil {
		baseMonth, _ := strconv.Atoi(m[1])
		compareMonth, _ := strconv.Atoi(m[2])
		return monthWindows(baseMonth, baseMonth, compareMonth, fmt.Sprintf("%d월", baseMonth))
	}

	if m := reRangeVsMonth.FindStringSubmatch(question); m != nil {
		startMonth, _ := strconv.Atoi(m[1])
		endMonth, _ := strconv.Atoi(m[2])
		compareMonth, _ := strconv.Atoi(m[3])
		return monthWindows(startMonth, endMonth, compareMonth, fmt.Sprintf("%d~%d월", startMonth, endMonth))
	}

	if m := reDayVsDay.FindStringSubmatch(question); m != nil {
		baseDay, _ := strconv.Atoi(m[1])
		compareDay, _ := strconv.Atoi(m[2])
		if analysisMonth == "" {
			return &types.ComparisonPeriods{
				Err:          ErrMonthRequired,
				Period1Label: "오류",
				Period2Label: "오류",
			}
		}
		ym := reAnalysisMonth.FindStringSubmatch(analysisMonth)
		if ym == nil {
			return nil
		}
		year, _ := strconv.Atoi(ym[1])
		month, _ := strconv.Atoi(ym[2])
		last := lastDayOfMonth(year, month)
		if baseDay > last || compareDay > last {
			// malformed question, not a recoverable condition
			return nil
		}
		first := date(year, month, 1)
		return &types.ComparisonPeriods{
			Period1Start: first,
			Period1End:   date(year, month, baseDay),
			Period2Start: first,
			Period2End:   date(year, month, compareDay),
			Period1Label: fmt.Sprintf("%d월 %d일 누적", month, baseDay),
			Period2Label: fmt.Sprintf("%d월 %d일 누적", month, compareDay),
		}
	}

	return nil
}

// monthWindows builds the two full-month (or month-range) windows under the
// base-year rule: comparison months Jan-Mar belong to the following year.
func monthWindows(startMonth, endMonth, compareMonth int, period1Label string) *types.ComparisonPeriods {
	baseYear := types.BaseYear
	compareYear := types.BaseYear
	if compareMonth <= 3 {
		compareYear = types.BaseYear + 1
	}
	return &types.ComparisonPeriods{
		Period1Start: date(baseYear, startMonth, 1),
		Period1End:   date(baseYear, endMonth, lastDayOfMonth(baseYear, endMonth)),
		Period2Start: date(compareYear, compareMonth, 1),
		Period2End:   date(compareYear, compareMonth, lastDayOfMonth(compareYear, compareMonth)),
		Period1Label: period1Label,
		Period2Label: fmt.Sprintf("%d월", compareMonth),
	}
}

// FilterSummary renders the active filter fields as a pipe-joined list in a
// fixed order. Presentational only.
func FilterSummary(f types.FilterSpec) string {
	var parts []string

	if f.AnalysisMonth != "" {
		parts = append(parts, "분석월: "+f.AnalysisMonth)
	}
	if f.Team != "" {
		parts = append(parts, "팀: "+f.Team)
	}
	if f.NPSTarget != nil {
		comparison := "미만"
		if f.NPSComparison == types.CompareAbove {
			comparison = "이상"
		}
		parts = append(parts, fmt.Sprintf("NPS 목표: %s%% %s", formatNumber(*f.NPSTarget), comparison))
	}
	if st := f.SeniorThreshold; st != nil {
		switch st.Kind {
		case types.SeniorAverage:
			parts = append(parts, "시니어 비중: 평균 이상")
		case types.SeniorBelowAverage:
			parts = append(parts, "시니어 비중: 평균 이하")
		case types.SeniorCustom:
			parts = append(parts, fmt.Sprintf("시니어 비중: %s%% 이상", formatNumber(st.Value)))
		}
	}
	if f.MinResponses > 0 {
		parts = append(parts, fmt.Sprintf("최소 응답수: %d건", f.MinResponses))
	}
	if f.StoreName != "" {
		parts = append(parts, "매장: "+f.StoreName)
	}
	if name, ok := analysisTypeNames[f.AnalysisType]; ok {
		parts = append(parts, "분석 유형: "+name)
	}

	if len(parts) == 0 {
		return "조건 없음"
	}
	return strings.Join(parts, " | ")
}

var analysisTypeNames = map[types.AnalysisType]string{
	types.AnalysisSeniorGap:        "시니어 GAP 분석",
	types.AnalysisPeriodComparison: "기간별 비교",
	types.AnalysisSimpleFilter:     "단순 필터 분석",
	types.AnalysisStore:            "매장 분석",
	types.AnalysisGeneral:          "일반 분석",
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func firstGroup(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func lastDayOfMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
