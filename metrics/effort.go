package metrics

import (
	"math"

	"github.com/thomasfsr/fitpipe/plan"
)

// Deficits is the day's energy balance against the plan's targets.
// CalorieDeficit is burn-adjusted: target calories minus consumed plus
// calories burnt in the workout, so a positive value means the day ended in
// deficit.
type Deficits struct {
	CalorieDeficit float64 `json:"calorie_deficit"`
	Protein        float64 `json:"protein"`
	Carbs          float64 `json:"carbs"`
	Fats           float64 `json:"fats"`
}

// DailyDeficits computes the burn-adjusted calorie deficit and per-macro
// shortfalls of consumed against target.
func DailyDeficits(target plan.MacroTargets, consumed plan.Macros, caloriesBurnt float64) Deficits {
	return Deficits{
		CalorieDeficit: target.Calories - consumed.Calories + caloriesBurnt,
		Protein:        target.ProteinG - consumed.Protein,
		Carbs:          target.CarbsG - consumed.Carbs,
		Fats:           target.FatsG - consumed.Fats,
	}
}

// CardioCompletion is the mean completed/planned distance ratio across
// cardio blocks, each capped at 1.2 to allow slight overachievement. No
// cardio at all is neutral (1.0).
func CardioCompletion(blocks []plan.CardioFeedback) float64 {
	if len(blocks) == 0 {
		return 1.0
	}
	sum := 0.0
	for _, b := range blocks {
		if b.PlannedDistanceKm <= 0 {
			sum += 1.0
			continue
		}
		ratio := b.CompletedDistanceKm / b.PlannedDistanceKm
		if ratio > 1.2 {
			ratio = 1.2
		}
		sum += ratio
	}
	return sum / float64(len(blocks))
}

// Effort is the combined execution score for a tracked day.
type Effort struct {
	StrengthCompletionPct float64 `json:"strength_completion_pct"`
	CardioCompletionPct   float64 `json:"cardio_completion_pct"`
	IntensityMultiplier   float64 `json:"intensity_multiplier"`
	EffortScore           float64 `json:"effort_score"`
}

// WorkoutEffort combines strength completion (total completed reps over
// total planned reps, clamped at 1), cardio completion and a time-based
// intensity multiplier (planned over actual minutes) into a single effort
// score. Zero planned reps is treated as fully completed; a missing actual
// time leaves the multiplier at 1.
func WorkoutEffort(plannedReps, completedReps int, plannedMinutes, actualMinutes float64, cardio []plan.CardioFeedback) Effort {
	strength := 1.0
	if plannedReps > 0 {
		strength = math.Min(float64(completedReps)/float64(plannedReps), 1.0)
	}
	cardioCompletion := CardioCompletion(cardio)

	multiplier := 1.0
	if actualMinutes > 0 && plannedMinutes > 0 {
		multiplier = math.Max(0, plannedMinutes/actualMinutes)
	}

	completion := (strength + cardioCompletion) / 2
	return Effort{
		StrengthCompletionPct: round2(strength * 100),
		CardioCompletionPct:   round2(cardioCompletion * 100),
		IntensityMultiplier:   round2(multiplier),
		EffortScore:           round3(completion * multiplier),
	}
}

// TotalPlannedReps sums planned volume across feedback records.
func TotalPlannedReps(records []plan.ExerciseFeedback) int {
	total := 0
	for _, r := range records {
		total += r.PlannedSets * r.PlannedReps
	}
	return total
}

// TotalCompletedReps sums completed volume across feedback records.
func TotalCompletedReps(records []plan.ExerciseFeedback) int {
	total := 0
	for _, r := range records {
		total += r.CompletedSets * r.CompletedReps
	}
	return total
}

// TrackerDecision is the threshold evaluation handed to the tracking stage:
// goal-specific flags for what must change, positives for what worked, and
// the metric snapshot both were derived from.
type TrackerDecision struct {
	Goal      plan.Goal             `json:"goal"`
	Status    string                `json:"status"`
	Flags     []string              `json:"negatives"`
	Positives []string              `json:"positives"`
	Metrics   plan.MetricsReference `json:"metrics"`
	Intensity string                `json:"intensity"`
}

// EvaluateThresholds applies the goal-specific bands to the day's deficits
// and effort. Thresholds mirror the tracker's calibration: fat loss wants a
// 200-700 kcal deficit and met protein, muscle gain wants a surplus and
// higher strength execution.
func EvaluateThresholds(goal plan.Goal, d Deficits, e Effort, intensity string) TrackerDecision {
	dec := TrackerDecision{
		Goal:      goal,
		Status:    "on_track",
		Intensity: intensity,
		Metrics: plan.MetricsReference{
			CalorieDeficit:        d.CalorieDeficit,
			ProteinDeficit:        d.Protein,
			StrengthCompletionPct: e.StrengthCompletionPct,
			CardioCompletionPct:   e.CardioCompletionPct,
			IntensityMultiplier:   e.IntensityMultiplier,
			EffortScore:           e.EffortScore,
		},
	}

	flag := func(s string) { dec.Flags = append(dec.Flags, s) }
	positive := func(s string) { dec.Positives = append(dec.Positives, s) }

	switch goal {
	case plan.GoalMuscleGain:
		if d.CalorieDeficit > 0 {
			flag("calorie_deficit_present")
		} else {
			positive("calorie_intake_supports_growth")
		}
		// Growth wants a clear protein surplus: at least 10g over target,
		// which shows up as a deficit of -10 or lower.
		if d.Protein > -10 {
			flag("insufficient_protein_for_growth")
		} else {
			positive("protein_target_exceeded")
		}
		if e.StrengthCompletionPct < 85 {
			flag("low_strength_completion")
		} else {
			positive("strength_training_executed_well")
		}
		if e.EffortScore < 0.8 {
			flag("low_training_effort")
		} else {
			positive("high_training_effort")
		}
		if e.IntensityMultiplier < 1.0 {
			flag("training_intensity_below_target")
		} else if e.IntensityMultiplier > 1.5 {
			flag("training_intensity_too_easy")
		} else {
			positive("training_intensity_on_point")
		}
	default: // fat loss
		if d.CalorieDeficit <= 200 {
			flag("calorie_deficit_too_low")
		} else if d.CalorieDeficit >= 700 {
			flag("calorie_deficit_too_high")
		} else {
			positive("calorie_deficit_in_optimal_range")
		}
		if d.Protein > 0 {
			flag("protein_intake_insufficient")
		} else {
			positive("protein_intake_adequate")
		}
		if e.StrengthCompletionPct < 75 {
			flag("low_strength_completion")
		} else {
			positive("strength_training_completed_well")
		}
		if e.EffortScore < 0.8 {
			flag("low_overall_effort")
		} else {
			positive("good_overall_effort")
		}
		if e.IntensityMultiplier < 0.7 {
			flag("training_intensity_low")
		} else {
			positive("training_intensity_adequate")
		}
	}

	if e.CardioCompletionPct < 70 {
		flag("low_cardio_completion")
	} else {
		positive("cardio_target_met")
	}

	if len(dec.Flags) > 0 {
		dec.Status = "needs_adjustment"
	}
	return dec
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
