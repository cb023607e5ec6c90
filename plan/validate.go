package plan

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ValidationError reports every structural problem found in a stage
// response, not just the first, so the caller can surface all of them at
// once. Validation is shape-only: numeric values are never judged for
// nutritional or programming sense.
type ValidationError struct {
	Stage    string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s response failed contract: %s", e.Stage, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// ValidateWorkoutPlan checks a raw workout generator response against the
// shape the meal and tracking stages dereference: a non-empty exercise
// sequence with usable set/rep counts and a fully populated daily macro
// record.
func ValidateWorkoutPlan(raw []byte) (*WorkoutPlan, error) {
	verr := &ValidationError{Stage: "workout"}
	var p WorkoutPlan
	if err := json.Unmarshal(raw, &p); err != nil {
		verr.add("invalid JSON: %v", err)
		return nil, verr
	}
	if p.WorkoutSplit.Name == "" {
		verr.add("workout_split.name is missing")
	}
	if len(p.Exercises) == 0 {
		verr.add("exercises is empty")
	}
	for i, ex := range p.Exercises {
		if ex.Name == "" {
			verr.add("exercises[%d].name is missing", i)
		}
		if ex.Sets <= 0 {
			verr.add("exercises[%d].sets must be positive", i)
		}
		if ex.Reps.Planned() <= 0 {
			verr.add("exercises[%d].reps must be positive", i)
		}
	}
	checkMacroTargets(verr, "daily_macros", p.DailyMacros)
	if p.TimeRequiredMinutes <= 0 {
		verr.add("time_required_minutes must be positive")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return &p, nil
}

// ValidateMealPlan checks a raw meal generator response: a non-empty meals
// mapping in which every slot carries a recipe with ingredients and steps,
// and every successful slot carries actual macros.
func ValidateMealPlan(raw []byte) (*MealPlan, error) {
	verr := &ValidationError{Stage: "meal"}
	var p MealPlan
	if err := json.Unmarshal(raw, &p); err != nil {
		verr.add("invalid JSON: %v", err)
		return nil, verr
	}
	if len(p.Meals) == 0 {
		verr.add("meals is empty")
	}
	for slot, meal := range p.Meals {
		if meal.Status == "" {
			verr.add("meals.%s.status is missing", slot)
		}
		if meal.Status != MealStatusSuccess {
			// A failed slot carries no reliable recipe or macros; nothing
			// downstream dereferences it.
			continue
		}
		if meal.Recipe.RecipeName == "" {
			verr.add("meals.%s.recipe.recipe_name is missing", slot)
		}
		if len(meal.Recipe.Ingredients) == 0 {
			verr.add("meals.%s.recipe.ingredients is empty", slot)
		}
		for i, ing := range meal.Recipe.Ingredients {
			if ing.Item == "" {
				verr.add("meals.%s.recipe.ingredients[%d].item is missing", slot, i)
			}
		}
		if len(meal.Recipe.Steps) == 0 {
			verr.add("meals.%s.recipe.steps is empty", slot)
		}
		if meal.ActualMacros == nil {
			verr.add("meals.%s.actual_macros is missing for a success slot", slot)
		}
		checkMacroTargets(verr, "meals."+slot+".target_macros", meal.TargetMacros)
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return &p, nil
}

func checkMacroTargets(verr *ValidationError, field string, m MacroTargets) {
	if m.Calories <= 0 {
		verr.add("%s.calories must be positive", field)
	}
	if m.ProteinG <= 0 {
		verr.add("%s.protein_g must be positive", field)
	}
	if m.CarbsG <= 0 {
		verr.add("%s.carbs_g must be positive", field)
	}
	if m.FatsG <= 0 {
		verr.add("%s.fats_g must be positive", field)
	}
}
