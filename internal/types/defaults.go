package types

import "time"

// Shared defaults. These used to live as magic numbers inside each analyzer
// and the parser; keeping them in one place keeps "default" and "explicitly
// absent" from drifting apart per component.
const (
	// DefaultNPSTarget is applied when a question implies an NPS condition
	// without naming a number.
	DefaultNPSTarget = 87.0

	// DefaultMinResponses is the response-count floor for every aggregate.
	DefaultMinResponses = 5

	// BaseYear anchors month-only period expressions; months Jan-Mar roll
	// over to BaseYear+1.
	BaseYear = 2025

	// MonthAll is the "no month filter" sentinel used by the analysis-month
	// field.
	MonthAll = "전체"

	// MonthLabelLayout renders a date as the analysis-month label.
	MonthLabelLayout = "2006년 01월"

	// DefaultCacheTTL bounds how long a raw dataset snapshot is reused.
	DefaultCacheTTL = time.Hour
)
