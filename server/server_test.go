package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasfsr/fitpipe/pipeline"
	"github.com/thomasfsr/fitpipe/plan"
)

type workoutFunc func(ctx context.Context, req pipeline.WorkoutRequest) (json.RawMessage, error)

func (f workoutFunc) GenerateWorkout(ctx context.Context, req pipeline.WorkoutRequest) (json.RawMessage, error) {
	return f(ctx, req)
}

type mealFunc func(ctx context.Context, req pipeline.MealRequest) (json.RawMessage, error)

func (f mealFunc) GenerateMeals(ctx context.Context, req pipeline.MealRequest) (json.RawMessage, error) {
	return f(ctx, req)
}

type trackingFunc func(ctx context.Context, req pipeline.TrackingRequest) (*plan.TrackingReport, error)

func (f trackingFunc) AnalyzeTracking(ctx context.Context, req pipeline.TrackingRequest) (*plan.TrackingReport, error) {
	return f(ctx, req)
}

func workoutFixture() json.RawMessage {
	p := plan.WorkoutPlan{
		Date:        "01/09/2026",
		UserGoal:    plan.GoalFatLoss,
		DailyMacros: plan.MacroTargets{Calories: 1600, ProteinG: 150, CarbsG: 120, FatsG: 53},
		WorkoutSplit: plan.WorkoutSplit{
			Name: "full_body", PrimaryMuscles: []string{"quads"}, Style: "motor_learning",
		},
		Exercises: []plan.Exercise{
			{Name: "Goblet Squat", Sets: 3, Reps: plan.RepsRange(10, 15), TimeMinutes: 8},
			{Name: "Push Up", Sets: 3, Reps: plan.FixedReps(12), TimeMinutes: 6},
		},
		TimeRequiredMinutes: 60,
		CurrentWeight:       65,
		WorkoutIntensity:    "low",
		CaloriesBurnt:       300,
	}
	raw, _ := json.Marshal(p)
	return raw
}

func mealFixture() json.RawMessage {
	actual := plan.Macros{Calories: 400, Protein: 38, Carbs: 30, Fats: 12}
	p := plan.MealPlan{
		Date:          "01/09/2026",
		NutritionGoal: plan.GoalFatLoss,
		Meals: map[string]plan.Meal{
			"breakfast": {
				Recipe: plan.Recipe{
					RecipeName:  "Oats Bowl",
					Ingredients: []plan.IngredientQuantity{{Item: "oats", QuantityG: 60}},
					Steps:       []string{"combine"},
				},
				TargetMacros: plan.MacroTargets{Calories: 400, ProteinG: 38, CarbsG: 30, FatsG: 13},
				ActualMacros: &actual,
				Status:       plan.MealStatusSuccess,
				Attempts:     1,
			},
		},
	}
	raw, _ := json.Marshal(p)
	return raw
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	w := workoutFunc(func(ctx context.Context, req pipeline.WorkoutRequest) (json.RawMessage, error) {
		return workoutFixture(), nil
	})
	m := mealFunc(func(ctx context.Context, req pipeline.MealRequest) (json.RawMessage, error) {
		return mealFixture(), nil
	})
	tr := trackingFunc(func(ctx context.Context, req pipeline.TrackingRequest) (*plan.TrackingReport, error) {
		return &plan.TrackingReport{Summary: "solid day"}, nil
	})
	return New(w, m, tr, nil, nil, nil)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/sessions", plan.ProfileInput{
		Name: "A", Weight: 65, NutritionGoal: plan.GoalFatLoss, Experience: plan.ExperienceBeginner,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var out struct {
		SessionID string `json:"session_id"`
		State     string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "idle", out.State)
	return out.SessionID
}

func TestCreateSessionRejectsBadProfile(t *testing.T) {
	h := newTestServer(t).Handler()
	rec := doJSON(t, h, http.MethodPost, "/api/sessions", plan.ProfileInput{Name: "", Weight: 65})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownSessionIs404(t *testing.T) {
	h := newTestServer(t).Handler()
	rec := doJSON(t, h, http.MethodGet, "/api/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMealsBeforeWorkoutIsConflict(t *testing.T) {
	h := newTestServer(t).Handler()
	id := createSession(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/meals", plan.MealPreferences{
		DietType: plan.DietNonVegetarian,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "meal stage requires a workout plan")
}

func TestFullCycleOverHTTP(t *testing.T) {
	h := newTestServer(t).Handler()
	id := createSession(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/workout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"workout_ready"`)

	rec = doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/meals", plan.MealPreferences{
		DietType: plan.DietNonVegetarian, CookingSkill: "basic",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"meals_ready"`)

	rec = doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/feedback/init", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPatch, "/api/sessions/"+id+"/feedback/0", map[string]any{
		"field": "completed_sets", "value": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, h, http.MethodPatch, "/api/sessions/"+id+"/feedback/0", map[string]any{
		"field": "completed_reps", "value": 12,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"completion_pct":100`)

	rec = doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/tracking", map[string]any{
		"actual_minutes": 70,
		"cardio_feedback": []map[string]any{
			{"planned_distance_km": 2, "completed_distance_km": 1.5, "completed_minutes": 18},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"tracking_complete"`)
	assert.Contains(t, rec.Body.String(), "solid day")

	rec = doJSON(t, h, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, "tracking_complete", snapshot["state"])
	assert.NotNil(t, snapshot["daily_actual_macros"])
	assert.NotNil(t, snapshot["macro_delta"])
}

func TestFeedbackBadIndexAndValue(t *testing.T) {
	h := newTestServer(t).Handler()
	id := createSession(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/workout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/feedback/init", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPatch, "/api/sessions/"+id+"/feedback/9", map[string]any{
		"field": "completed_sets", "value": 3,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPatch, "/api/sessions/"+id+"/feedback/0", map[string]any{
		"field": "completed_sets", "value": -1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPatch, "/api/sessions/"+id+"/feedback/abc", map[string]any{
		"field": "completed_sets", "value": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrackingRejectsNegativeActuals(t *testing.T) {
	h := newTestServer(t).Handler()
	id := createSession(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/workout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/meals", plan.MealPreferences{
		DietType: plan.DietNonVegetarian,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/tracking", map[string]any{
		"actual_minutes": -10,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWorkoutCollaboratorFailureIsBadGateway(t *testing.T) {
	w := workoutFunc(func(ctx context.Context, req pipeline.WorkoutRequest) (json.RawMessage, error) {
		return nil, fmt.Errorf("upstream timeout")
	})
	m := mealFunc(func(ctx context.Context, req pipeline.MealRequest) (json.RawMessage, error) {
		return mealFixture(), nil
	})
	tr := trackingFunc(func(ctx context.Context, req pipeline.TrackingRequest) (*plan.TrackingReport, error) {
		return &plan.TrackingReport{}, nil
	})
	h := New(w, m, tr, nil, nil, nil).Handler()
	id := createSession(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/sessions/"+id+"/workout", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "workout collaborator failed")
}

func TestDetectIngredientsWithoutVision(t *testing.T) {
	h := newTestServer(t).Handler()
	req := httptest.NewRequest(http.MethodPost, "/api/detect-ingredients", strings.NewReader(""))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestLatestPlanWithoutStore(t *testing.T) {
	h := newTestServer(t).Handler()
	rec := doJSON(t, h, http.MethodGet, "/api/plans/latest", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
