package types

import "time"

// SurveyRow is one respondent record from the NPS raw sheet.
// Rows flagged as excluded are dropped by the loader and never reach here.
type SurveyRow struct {
	Date     time.Time `json:"date"`      // 처리일, zero when coercion failed
	HasDate  bool      `json:"has_date"`  // false = unusable for date-bounded queries
	Score    float64   `json:"score"`     // 추천지수, 0-10
	HasScore bool      `json:"has_score"` // false = cannot be bucketed for NPS
	Agent    string    `json:"agent"`     // 담당자 display name, may collide
	AgentID  string    `json:"agent_id"`  // 담당자ID, authoritative key
	Dealer   string    `json:"dealer"`    // 대리점명
	Store    string    `json:"store"`     // 매장명
	Team     string    `json:"team"`      // 마케팅팀명
	Senior   bool      `json:"senior"`    // 시니어여부 == "Y"
}

type NPSComparison string

const (
	CompareBelow NPSComparison = "below"
	CompareAbove NPSComparison = "above"
)

type Trend string

const (
	TrendNone     Trend = ""
	TrendIncrease Trend = "increase"
	TrendDecrease Trend = "decrease"
)

type SeniorThresholdKind string

const (
	SeniorAverage      SeniorThresholdKind = "avg"
	SeniorBelowAverage SeniorThresholdKind = "below_avg"
	SeniorCustom       SeniorThresholdKind = "custom"
)

// SeniorThreshold is the tagged senior-proportion cutoff extracted from a
// question. Value is only meaningful when Kind == SeniorCustom.
type SeniorThreshold struct {
	Kind  SeniorThresholdKind `json:"kind"`
	Value float64             `json:"value,omitempty"`
}

type AnalysisType string

const (
	AnalysisSimpleFilter     AnalysisType = "simple_filter"
	AnalysisSeniorGap        AnalysisType = "senior_gap"
	AnalysisPeriodComparison AnalysisType = "period_comparison"
	AnalysisStore            AnalysisType = "store_analysis"
	AnalysisGeneral          AnalysisType = "general"
)

// ComparisonPeriods carries the two resolved date windows of a
// period-over-period question. Err is set instead of the windows when the
// day-range pattern matched but no analysis month was available; callers must
// surface Err and run nothing.
type ComparisonPeriods struct {
	Period1Start time.Time `json:"period1_start"`
	Period1End   time.Time `json:"period1_end"`
	Period2Start time.Time `json:"period2_start"`
	Period2End   time.Time `json:"period2_end"`
	Period1Label string    `json:"period1_label"`
	Period2Label string    `json:"period2_label"`
	Err          string    `json:"error,omitempty"`
}

// FilterSpec is the structured form of a question. Optional numeric fields
// are pointers so "absent" stays distinct from zero.
type FilterSpec struct {
	Team          string `json:"team,omitempty"`
	StoreName     string `json:"store_name,omitempty"`
	StoreCode     string `json:"store_code,omitempty"`
	DealerCode    string `json:"dealer_code,omitempty"`
	DealerID      string `json:"dealer_id,omitempty"`
	DealerName    string `json:"dealer_name,omitempty"`
	AnalysisMonth string `json:"analysis_month,omitempty"` // "YYYY년 MM월" or MonthAll

	NPSTarget     *float64      `json:"nps_target,omitempty"`
	NPSComparison NPSComparison `json:"nps_comparison,omitempty"`

	SeniorThreshold *SeniorThreshold `json:"senior_threshold,omitempty"`

	MinResponses        int `json:"min_responses"`
	MinResponsesPeriod1 int `json:"min_responses_period1,omitempty"`
	MinResponsesPeriod2 int `json:"min_responses_period2,omitempty"`

	Trend             Trend              `json:"trend,omitempty"`
	ComparisonPeriods *ComparisonPeriods `json:"comparison_periods,omitempty"`
	AnalysisType      AnalysisType       `json:"analysis_type"`
}

// EffectiveMinResponses resolves the generic response floor.
func (f FilterSpec) EffectiveMinResponses() int {
	if f.MinResponses > 0 {
		return f.MinResponses
	}
	return DefaultMinResponses
}

// EffectiveMinResponsesPeriod1 falls back to the generic floor.
func (f FilterSpec) EffectiveMinResponsesPeriod1() int {
	if f.MinResponsesPeriod1 > 0 {
		return f.MinResponsesPeriod1
	}
	return f.EffectiveMinResponses()
}

// EffectiveMinResponsesPeriod2 falls back to the generic floor.
func (f FilterSpec) EffectiveMinResponsesPeriod2() int {
	if f.MinResponsesPeriod2 > 0 {
		return f.MinResponsesPeriod2
	}
	return f.EffectiveMinResponses()
}

// ResolveTarget returns the NPS threshold and direction to apply, using the
// shared default only when the question carried no explicit target.
func (f FilterSpec) ResolveTarget() (float64, NPSComparison) {
	if f.NPSTarget != nil {
		cmp := f.NPSComparison
		if cmp == "" {
			cmp = CompareBelow
		}
		return *f.NPSTarget, cmp
	}
	return DefaultNPSTarget, CompareBelow
}
