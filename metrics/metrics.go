// Package metrics holds the pure computations that compare planned targets
// with actual behavior. Nothing here performs I/O or mutates its inputs.
package metrics

import (
	"math"

	"github.com/thomasfsr/fitpipe/plan"
)

// MacroDelta is actual minus target per field. Sign is preserved: negative
// means a deficit against the target.
func MacroDelta(target plan.MacroTargets, actual plan.Macros) plan.Macros {
	return plan.Macros{
		Calories: actual.Calories - target.Calories,
		Protein:  actual.Protein - target.ProteinG,
		Carbs:    actual.Carbs - target.CarbsG,
		Fats:     actual.Fats - target.FatsG,
	}
}

// CompletionPct is the completed share of planned exercise volume
// (sets x reps), rounded and clamped to [0,100]. Zero planned volume yields
// 0, matching the tracker's treatment of slots with nothing prescribed.
func CompletionPct(plannedSets, plannedReps, completedSets, completedReps int) int {
	planned := plannedSets * plannedReps
	if planned <= 0 {
		return 0
	}
	ratio := float64(completedSets*completedReps) / float64(planned)
	if ratio > 1 {
		ratio = 1
	}
	if ratio < 0 {
		ratio = 0
	}
	return int(math.Round(ratio * 100))
}

// AggregateDailyMacros sums actual macros across every success slot.
// Slots with any other status are excluded entirely rather than counted as
// zero, so a failed slot cannot depress the daily total.
func AggregateDailyMacros(mp *plan.MealPlan) plan.Macros {
	var total plan.Macros
	if mp == nil {
		return total
	}
	for _, meal := range mp.Meals {
		if meal.Status != plan.MealStatusSuccess || meal.ActualMacros == nil {
			continue
		}
		total.Calories += meal.ActualMacros.Calories
		total.Protein += meal.ActualMacros.Protein
		total.Carbs += meal.ActualMacros.Carbs
		total.Fats += meal.ActualMacros.Fats
	}
	return total
}

// OverallAdherence is the unweighted mean of per-exercise completion
// percentages. Zero records yields 0.
func OverallAdherence(records []plan.ExerciseFeedback) float64 {
	if len(records) == 0 {
		return 0
	}
	sum := 0
	for _, r := range records {
		sum += r.CompletionPct
	}
	return float64(sum) / float64(len(records))
}
