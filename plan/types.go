// Package plan defines the structured artifacts exchanged between the
// generation stages: the workout plan produced by stage 1, the meal plan
// produced by stage 2 and the tracking report produced by stage 3. The
// jsonschema tags double as the structured-output contract for the
// generation LLMs.
package plan

type Goal string

const (
	GoalFatLoss    Goal = "fat_loss"
	GoalMuscleGain Goal = "muscle_gain"
)

type Experience string

const (
	ExperienceBeginner     Experience = "beginner"
	ExperienceIntermediate Experience = "intermediate"
	ExperiencePro          Experience = "pro"
)

// ProfileInput is collected once at session start and is immutable for the
// rest of the session.
type ProfileInput struct {
	Name          string     `json:"name"`
	Weight        float64    `json:"weight"`
	NutritionGoal Goal       `json:"nutrition_goal" jsonschema:"enum=fat_loss,enum=muscle_gain"`
	Experience    Experience `json:"experience" jsonschema:"enum=beginner,enum=intermediate,enum=pro"`
}

// MacroTargets are prescribed daily or per-meal macro targets. Field names
// carry the _g suffix used by the workout generator.
type MacroTargets struct {
	Calories float64 `json:"calories" jsonschema_description:"Target calories in kcal"`
	ProteinG float64 `json:"protein_g" jsonschema_description:"Target protein in grams"`
	CarbsG   float64 `json:"carbs_g" jsonschema_description:"Target carbohydrates in grams"`
	FatsG    float64 `json:"fats_g" jsonschema_description:"Target fats in grams"`
}

// Macros are macros as actually composed or consumed. The meal generator
// emits these without the _g suffix, so the two shapes stay distinct types.
type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
}

type Cardio struct {
	Type               string  `json:"type" jsonschema_description:"Cardio activity, e.g. Walking, Running, Cycling"`
	DurationMinutes    int     `json:"duration_minutes"`
	DistanceKm         float64 `json:"distance_km"`
	Intensity          string  `json:"intensity" jsonschema:"enum=low,enum=moderate,enum=high"`
	TargetHeartRateBPM string  `json:"target_heart_rate_bpm" jsonschema_description:"Target heart rate range, e.g. 120-140"`
}

type WorkoutSplit struct {
	Name             string   `json:"name"`
	PrimaryMuscles   []string `json:"primary_muscles"`
	SecondaryMuscles []string `json:"secondary_muscles"`
	Style            string   `json:"style" jsonschema_description:"Training style, e.g. motor_learning, hypertrophy, strength, endurance"`
	Cardio           Cardio   `json:"cardio"`
}

type Exercise struct {
	Name        string `json:"name"`
	Sets        int    `json:"sets"`
	Reps        Reps   `json:"reps"`
	TimeMinutes int    `json:"time_minutes" jsonschema_description:"Estimated minutes including rest between sets"`
}

// WorkoutPlan is the stage 1 artifact. Produced once per session and
// immutable afterwards; later stages only read it.
type WorkoutPlan struct {
	Date                string       `json:"date"`
	UserGoal            Goal         `json:"user_goal" jsonschema:"enum=fat_loss,enum=muscle_gain"`
	DailyMacros         MacroTargets `json:"daily_macros"`
	WorkoutSplit        WorkoutSplit `json:"workout_split"`
	Exercises           []Exercise   `json:"exercises"`
	TimeRequiredMinutes int          `json:"time_required_minutes"`
	DietRationale       string       `json:"diet_rationale"`
	WorkoutRationale    string       `json:"workout_rationale"`
	CurrentWeight       float64      `json:"current_weight"`
	WorkoutIntensity    string       `json:"workout_intensity" jsonschema:"enum=low,enum=moderate,enum=high"`
	CaloriesBurnt       float64      `json:"calories_burnt"`
}

type DietType string

const (
	DietVegetarian    DietType = "vegetarian"
	DietNonVegetarian DietType = "non_vegetarian"
)

// MealPreferences are user-editable until the meal stage fires.
type MealPreferences struct {
	DietType             DietType `json:"diet_type" jsonschema:"enum=vegetarian,enum=non_vegetarian"`
	CookingSkill         string   `json:"cooking_skill" jsonschema:"enum=basic,enum=intermediate,enum=pro"`
	AvailableIngredients []string `json:"available_ingredients"`
}

type IngredientQuantity struct {
	Item      string  `json:"item"`
	QuantityG float64 `json:"quantity_g"`
}

type Recipe struct {
	RecipeName  string               `json:"recipe_name"`
	Ingredients []IngredientQuantity `json:"ingredients"`
	Steps       []string             `json:"steps"`
}

// MealStatusSuccess marks a slot whose recipe was generated and whose actual
// macros were computed. Any other status means the slot failed generation and
// its actual macros are not reliable.
const (
	MealStatusSuccess = "success"
	MealStatusFailed  = "failed"
)

type Meal struct {
	Recipe       Recipe       `json:"recipe"`
	TargetMacros MacroTargets `json:"target_macros"`
	ActualMacros *Macros      `json:"actual_macros,omitempty"`
	Status       string       `json:"status"`
	Attempts     int          `json:"attempts"`
}

// MealPlan is the stage 2 artifact. Slot keys (breakfast, lunch, dinner,
// post_workout, ...) are an open set, not an enum.
type MealPlan struct {
	Date          string          `json:"date"`
	NutritionGoal Goal            `json:"nutrition_goal"`
	Meals         map[string]Meal `json:"meals"`
	DailyActual   *Macros         `json:"daily_actual_macros,omitempty"`
}

// ExerciseFeedback is one per-exercise tracking record, derived from the
// workout plan at tracking entry and mutated by user input. PlannedReps is
// the lower bound of the plan's rep range.
type ExerciseFeedback struct {
	Name          string `json:"name"`
	PlannedSets   int    `json:"planned_sets"`
	PlannedReps   int    `json:"planned_reps"`
	CompletedSets int    `json:"completed_sets"`
	CompletedReps int    `json:"completed_reps"`
	CompletionPct int    `json:"completion_pct"`
}

// CardioFeedback is completed versus planned distance for one cardio block,
// reported by the user at tracking time.
type CardioFeedback struct {
	PlannedDistanceKm   float64 `json:"planned_distance_km"`
	CompletedDistanceKm float64 `json:"completed_distance_km"`
	CompletedMinutes    float64 `json:"completed_minutes"`
}

// AdjustmentGuidance breaks the required changes into the dimensions the
// workout generator understands.
type AdjustmentGuidance struct {
	IntensityGuidance        string `json:"intensity_guidance"`
	VolumeGuidance           string `json:"volume_guidance"`
	CardioVsStrengthEmphasis string `json:"cardio_vs_strength_emphasis"`
	RecoveryConsiderations   string `json:"recovery_considerations"`
}

// MetricsReference is the numeric snapshot the next day's workout generation
// anchors on.
type MetricsReference struct {
	CalorieDeficit        float64 `json:"calorie_deficit"`
	ProteinDeficit        float64 `json:"protein_deficit"`
	StrengthCompletionPct float64 `json:"strength_completion_pct"`
	CardioCompletionPct   float64 `json:"cardio_completion_pct"`
	IntensityMultiplier   float64 `json:"intensity_multiplier"`
	EffortScore           float64 `json:"effort_score"`
}

// AdjustmentReport is the structured half of the stage 3 artifact. It feeds
// back into workout generation for the next cycle.
type AdjustmentReport struct {
	ReportID          string             `json:"report_id"`
	Goal              Goal               `json:"goal"`
	OverallStatus     string             `json:"overall_status"`
	Strengths         []string           `json:"strengths"`
	Adjustments       AdjustmentGuidance `json:"adjustments"`
	ProtectedElements []string           `json:"protected_elements"`
	MetricsReference  MetricsReference   `json:"metrics_reference"`
}

// TrackingReport is the stage 3 artifact: a coach-style textual summary plus
// the structured adjustment report. The core stores and displays it without
// interpreting the summary.
type TrackingReport struct {
	Summary     string           `json:"summary" jsonschema_description:"Coach-style prose summary of the day"`
	Adjustments AdjustmentReport `json:"adjustments"`
}
