package analyzer

import (
	"nps-signal-finder/internal/types"
)

// Run scopes the raw rows once and routes to the analyzer the classified
// question calls for. Unsupported question types come back as explanatory
// bundles so the caller renders them the same way as real results.
func Run(rows []types.SurveyRow, f types.FilterSpec) *types.ResultBundle {
	scoped := ApplyScope(rows, f)

	switch f.AnalysisType {
	case types.AnalysisSimpleFilter:
		return NewSimpleFilter(scoped).Analyze(f)
	case types.AnalysisSeniorGap:
		return NewSeniorGap(scoped).Analyze(f)
	case types.AnalysisPeriodComparison:
		return NewPeriodComparison(scoped).Analyze(f)
	case types.AnalysisStore:
		return &types.ResultBundle{
			StoreDetail: map[string]types.Table{},
			Insights: []string{
				"매장별 상세 분석은 다음 버전에서 지원 예정입니다!",
				"현재는 시니어 GAP 분석과 단순 필터 분석만 지원됩니다. 질문을 다시 입력해주세요.",
			},
		}
	default:
		return &types.ResultBundle{
			StoreDetail: map[string]types.Table{},
			Insights: []string{
				"질문 유형을 인식할 수 없습니다.",
				"지원되는 질문 예시:",
				`- "NPS 87% 미만인 곳은?"`,
				`- "시니어 비중이 높으면서 NPS가 낮은 T크루는? (필터 조건 ▶분석월)"`,
				`- "12월 대비 1월 NPS 상승한 곳은?"`,
			},
		}
	}
}
