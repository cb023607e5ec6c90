package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thomasfsr/fitpipe/plan"
)

func TestMacroDelta(t *testing.T) {
	target := plan.MacroTargets{Calories: 1600, ProteinG: 150, CarbsG: 120, FatsG: 53}
	actual := plan.Macros{Calories: 1482, Protein: 155, Carbs: 101, Fats: 49}

	d := MacroDelta(target, actual)
	assert.Equal(t, float64(-118), d.Calories)
	assert.Equal(t, float64(5), d.Protein)
	assert.Equal(t, float64(-19), d.Carbs)
	assert.Equal(t, float64(-4), d.Fats)
}

func TestCompletionPct(t *testing.T) {
	tests := []struct {
		name                       string
		pSets, pReps, cSets, cReps int
		want                       int
	}{
		{"exact completion", 3, 10, 3, 10, 100},
		{"over-completion clamps", 3, 10, 3, 12, 100},
		{"nothing completed", 3, 10, 0, 0, 0},
		{"partial rounds", 3, 10, 2, 8, 53},
		{"zero planned volume", 0, 0, 5, 5, 0},
		{"zero planned reps only", 3, 0, 3, 10, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CompletionPct(tc.pSets, tc.pReps, tc.cSets, tc.cReps))
		})
	}
}

func TestAggregateDailyMacrosExcludesFailedSlots(t *testing.T) {
	breakfast := plan.Macros{Calories: 400, Protein: 35, Carbs: 30, Fats: 13}
	dinner := plan.Macros{Calories: 500, Protein: 45, Carbs: 40, Fats: 15}
	mp := &plan.MealPlan{
		Meals: map[string]plan.Meal{
			"breakfast": {Status: plan.MealStatusSuccess, ActualMacros: &breakfast},
			"lunch":     {Status: plan.MealStatusFailed, Attempts: 3},
			"dinner":    {Status: plan.MealStatusSuccess, ActualMacros: &dinner},
		},
	}

	total := AggregateDailyMacros(mp)
	assert.Equal(t, float64(900), total.Calories)
	assert.Equal(t, float64(80), total.Protein)
	assert.Equal(t, float64(70), total.Carbs)
	assert.Equal(t, float64(28), total.Fats)
}

func TestAggregateDailyMacrosNilPlan(t *testing.T) {
	assert.Equal(t, plan.Macros{}, AggregateDailyMacros(nil))
}

func TestOverallAdherence(t *testing.T) {
	records := []plan.ExerciseFeedback{
		{CompletionPct: 100},
		{CompletionPct: 50},
		{CompletionPct: 0},
	}
	assert.InDelta(t, 50.0, OverallAdherence(records), 0.001)
	assert.Equal(t, 0.0, OverallAdherence(nil))
}
