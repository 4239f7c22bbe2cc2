// Package metrics holds the NPS computation shared by every analyzer so
// cross-analyzer results stay comparable.
package metrics

import "math"

// NPS returns promoter percentage minus detractor percentage over the given
// recommendation scores, rounded to 2 decimals. Empty input yields 0.
// Promoter: score >= 9. Detractor: score <= 6.
func NPS(scores []float64) float64 {
	total := len(scores)
	if total == 0 {
		return 0
	}
	promoters, detractors := 0, 0
	for _, s := range scores {
		switch {
		case s >= 9:
			promoters++
		case s <= 6:
			detractors++
		}
	}
	return Round2(float64(promoters-detractors) / float64(total) * 100)
}

func Round1(x float64) float64 { return math.Round(x*10) / 10 }

func Round2(x float64) float64 { return math.Round(x*100) / 100 }
