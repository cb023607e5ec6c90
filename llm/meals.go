package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"

	"github.com/thomasfsr/fitpipe/metrics"
	"github.com/thomasfsr/fitpipe/nutrition"
	"github.com/thomasfsr/fitpipe/pipeline"
	"github.com/thomasfsr/fitpipe/plan"
)

const recipePrompt = `You are the recipe agent of a fitness meal planner.
Create one recipe for the requested meal slot that hits the target macros as
closely as possible. Rules:
- prefer the user's available ingredients; respect the diet type strictly
- ingredient quantities are raw weights in grams
- steps must match the user's cooking skill
- do not repeat recipes you were told were already used today`

const (
	maxRecipeAttempts = 3
	calorieTolerance  = 0.10
	proteinFloor      = 0.90
)

// MealLLM generates the stage 2 meal plan: it splits the day's macro
// targets across meal slots, asks the recipe agent for each slot, computes
// the actual macros of every recipe from the nutrition table, and retries
// slots that land too far from target.
type MealLLM struct {
	client openai.Client
	model  string
	db     *nutrition.DB
	logger *slog.Logger
}

func NewMealLLM(client openai.Client, model string, db *nutrition.DB, logger *slog.Logger) *MealLLM {
	if logger == nil {
		logger = slog.Default()
	}
	return &MealLLM{client: client, model: model, db: db, logger: logger}
}

func (m *MealLLM) GenerateMeals(ctx context.Context, req pipeline.MealRequest) (json.RawMessage, error) {
	slots := mealSlots(req.WorkoutContext.TimeRequiredMinutes)
	fractions := mealFractions(slots)

	out := plan.MealPlan{
		Date:          time.Now().Format("02/01/2006"),
		NutritionGoal: req.WorkoutContext.UserGoal,
		Meals:         make(map[string]plan.Meal, len(slots)),
	}

	var used []string
	for _, slot := range slots {
		target := scaleTargets(req.WorkoutContext.DailyMacros, fractions[slot])
		meal := m.generateSlot(ctx, slot, target, req.UserFoodContext, used)
		if meal.Status == plan.MealStatusSuccess {
			used = append(used, meal.Recipe.RecipeName)
		}
		out.Meals[slot] = meal
	}

	daily := metrics.AggregateDailyMacros(&out)
	out.DailyActual = &daily

	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode meal plan: %w", err)
	}
	return raw, nil
}

func (m *MealLLM) generateSlot(ctx context.Context, slot string, target plan.MacroTargets, prefs plan.MealPreferences, used []string) plan.Meal {
	meal := plan.Meal{TargetMacros: target}
	var lastRecipe *plan.Recipe
	var lastActual plan.Macros

	for attempt := 1; attempt <= maxRecipeAttempts; attempt++ {
		meal.Attempts = attempt
		recipe, err := m.requestRecipe(ctx, slot, target, prefs, used)
		if err != nil {
			m.logger.Warn("recipe generation failed", "slot", slot, "attempt", attempt, "error", err)
			continue
		}
		actual, err := m.db.RecipeMacros(ctx, *recipe)
		if err != nil {
			m.logger.Warn("recipe macros unresolvable", "slot", slot, "attempt", attempt, "error", err)
			continue
		}
		lastRecipe, lastActual = recipe, actual
		if withinTolerance(actual, target) {
			break
		}
		m.logger.Debug("recipe off target, retrying", "slot", slot, "attempt", attempt,
			"target_kcal", target.Calories, "actual_kcal", actual.Calories)
	}

	if lastRecipe == nil {
		// Every attempt failed outright; the slot is recorded as failed and
		// stays out of the daily aggregate.
		meal.Status = plan.MealStatusFailed
		return meal
	}
	// An off-target but computable recipe is still a success; the actual
	// macros tell the tracking stage how far off the day landed.
	meal.Recipe = *lastRecipe
	meal.ActualMacros = &lastActual
	meal.Status = plan.MealStatusSuccess
	return meal
}

func (m *MealLLM) requestRecipe(ctx context.Context, slot string, target plan.MacroTargets, prefs plan.MealPreferences, used []string) (*plan.Recipe, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "recipe",
		Description: openai.String("One recipe with gram quantities and preparation steps"),
		Schema:      RecipeSchema,
		Strict:      openai.Bool(true),
	}
	userMsg := fmt.Sprintf(`Meal slot: %s
Target macros: %.0f kcal, %.0fg protein, %.0fg carbs, %.0fg fats
Diet type: %s
Cooking skill: %s
Available ingredients: %s
Already used today: %s`,
		slot, target.Calories, target.ProteinG, target.CarbsG, target.FatsG,
		prefs.DietType, prefs.CookingSkill,
		joinOrNone(prefs.AvailableIngredients), joinOrNone(used))

	chat, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: m.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(recipePrompt),
			openai.UserMessage(userMsg),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("recipe call failed: %w", err)
	}
	var recipe plan.Recipe
	if err := json.Unmarshal([]byte(cleanJSONResponse(chat.Choices[0].Message.Content)), &recipe); err != nil {
		return nil, fmt.Errorf("recipe response is not valid JSON: %w", err)
	}
	if recipe.RecipeName == "" || len(recipe.Ingredients) == 0 || len(recipe.Steps) == 0 {
		return nil, fmt.Errorf("recipe response is incomplete")
	}
	return &recipe, nil
}

// mealSlots decides the day's structure: long sessions earn a post-workout
// meal alongside the standard three.
func mealSlots(workoutMinutes int) []string {
	if workoutMinutes >= 45 {
		return []string{"breakfast", "lunch", "post_workout", "dinner"}
	}
	return []string{"breakfast", "lunch", "dinner"}
}

func mealFractions(slots []string) map[string]float64 {
	if len(slots) == 4 {
		return map[string]float64{"breakfast": 0.25, "lunch": 0.25, "post_workout": 0.30, "dinner": 0.20}
	}
	return map[string]float64{"breakfast": 0.30, "lunch": 0.35, "dinner": 0.35}
}

func scaleTargets(daily plan.MacroTargets, frac float64) plan.MacroTargets {
	return plan.MacroTargets{
		Calories: math.Round(daily.Calories * frac),
		ProteinG: math.Round(daily.ProteinG * frac),
		CarbsG:   math.Round(daily.CarbsG * frac),
		FatsG:    math.Round(daily.FatsG * frac),
	}
}

func withinTolerance(actual plan.Macros, target plan.MacroTargets) bool {
	if target.Calories <= 0 {
		return false
	}
	calorieOK := math.Abs(actual.Calories-target.Calories)/target.Calories <= calorieTolerance
	proteinOK := actual.Protein >= target.ProteinG*proteinFloor
	return calorieOK && proteinOK
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none specified)"
	}
	return strings.Join(items, ", ")
}
