// Package pipeline drives the three-stage generation sequence
// workout -> meals -> tracking. Each stage invokes an external generation
// collaborator with the full accumulated context, gates the response through
// the structural validator, and only then commits it to the session store.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/thomasfsr/fitpipe/plan"
	"github.com/thomasfsr/fitpipe/session"
)

// State is the orchestrator's position in the stage sequence. Awaiting
// states represent an in-flight collaborator call; Failed states keep the
// last error visible while leaving the session untouched so a retry is
// always safe.
type State int

const (
	StateIdle State = iota
	StateAwaitingWorkout
	StateWorkoutFailed
	StateWorkoutReady
	StateAwaitingMeals
	StateMealsFailed
	StateMealsReady
	StateAwaitingTracking
	StateTrackingFailed
	StateTrackingComplete
)

var stateNames = map[State]string{
	StateIdle:             "idle",
	StateAwaitingWorkout:  "awaiting_workout",
	StateWorkoutFailed:    "workout_failed",
	StateWorkoutReady:     "workout_ready",
	StateAwaitingMeals:    "awaiting_meals",
	StateMealsFailed:      "meals_failed",
	StateMealsReady:       "meals_ready",
	StateAwaitingTracking: "awaiting_tracking",
	StateTrackingFailed:   "tracking_failed",
	StateTrackingComplete: "tracking_complete",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// WorkoutRequest is the stage 1 request shape. Adjustments carries the
// previous cycle's report when one exists; new users send only the profile.
type WorkoutRequest struct {
	Profile     plan.ProfileInput      `json:"profile"`
	Adjustments *plan.AdjustmentReport `json:"workout_adjustments,omitempty"`
}

// MealRequest is the stage 2 request shape: the full stage 1 output plus the
// user's food context.
type MealRequest struct {
	WorkoutContext  plan.WorkoutPlan     `json:"workout_context"`
	UserFoodContext plan.MealPreferences `json:"user_food_context"`
}

// TrackingRequest is the stage 3 request shape: both prior stage outputs,
// the per-exercise feedback, the executed-workout actuals, and an optional
// uploaded-image reference.
type TrackingRequest struct {
	WorkoutResponse plan.WorkoutPlan        `json:"workout_response"`
	MealsResponse   plan.MealPlan           `json:"meals_response"`
	Feedback        []plan.ExerciseFeedback `json:"feedback"`
	ActualMinutes   float64                 `json:"actual_minutes,omitempty"`
	Cardio          []plan.CardioFeedback   `json:"cardio_feedback,omitempty"`
	Image           string                  `json:"image,omitempty"`
}

// WorkoutGenerator produces a raw stage 1 response. The orchestrator never
// trusts its shape; everything passes through plan.ValidateWorkoutPlan.
type WorkoutGenerator interface {
	GenerateWorkout(ctx context.Context, req WorkoutRequest) (json.RawMessage, error)
}

// MealGenerator produces a raw stage 2 response.
type MealGenerator interface {
	GenerateMeals(ctx context.Context, req MealRequest) (json.RawMessage, error)
}

// TrackingAnalyzer produces the stage 3 report. Its output is opaque to the
// orchestrator beyond being stored.
type TrackingAnalyzer interface {
	AnalyzeTracking(ctx context.Context, req TrackingRequest) (*plan.TrackingReport, error)
}

// CollaboratorError wraps a transport or generation failure from an external
// collaborator. The session is guaranteed untouched when one is returned.
type CollaboratorError struct {
	Stage string
	Err   error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s collaborator failed: %v", e.Stage, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// Pipeline owns one session and sequences its stage calls. Methods are safe
// for concurrent use; at most one collaborator call is outstanding at a
// time, and a duplicate request while one is in flight is a no-op that
// reports the current state.
type Pipeline struct {
	mu    sync.Mutex
	state State
	sess  *session.Session

	workouts WorkoutGenerator
	meals    MealGenerator
	tracker  TrackingAnalyzer
	logger   *slog.Logger
}

// New creates a pipeline for a fresh session built from the profile.
func New(profile plan.ProfileInput, w WorkoutGenerator, m MealGenerator, t TrackingAnalyzer, logger *slog.Logger) (*Pipeline, error) {
	sess, err := session.New(profile)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		state:    StateIdle,
		sess:     sess,
		workouts: w,
		meals:    m,
		tracker:  t,
		logger:   logger,
	}, nil
}

// Session exposes the owned session for reads and feedback mutation.
func (p *Pipeline) Session() *session.Session { return p.sess }

// State reports the current pipeline state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// RequestWorkoutPlan runs stage 1. Legal from idle, workout_failed and
// workout_ready (regeneration); a call while one is already in flight is a
// no-op returning awaiting_workout.
func (p *Pipeline) RequestWorkoutPlan(ctx context.Context, adjustments *plan.AdjustmentReport) (State, error) {
	p.mu.Lock()
	switch p.state {
	case StateAwaitingWorkout:
		p.mu.Unlock()
		return StateAwaitingWorkout, nil
	case StateIdle, StateWorkoutFailed, StateWorkoutReady:
		p.state = StateAwaitingWorkout
	default:
		st := p.state
		p.mu.Unlock()
		return st, fmt.Errorf("%w: workout stage not available from %s", session.ErrInvalidStageOrder, st)
	}
	req := WorkoutRequest{Profile: p.sess.Profile(), Adjustments: adjustments}
	p.mu.Unlock()

	p.logger.Info("requesting workout plan", "goal", req.Profile.NutritionGoal, "experience", req.Profile.Experience)
	raw, err := p.workouts.GenerateWorkout(ctx, req)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.state = StateWorkoutFailed
		return p.state, &CollaboratorError{Stage: "workout", Err: err}
	}
	validated, err := plan.ValidateWorkoutPlan(raw)
	if err != nil {
		p.logger.Warn("workout response failed contract", "error", err)
		p.state = StateWorkoutFailed
		return p.state, err
	}
	if err := p.sess.SetWorkoutPlan(validated); err != nil {
		p.state = StateWorkoutFailed
		return p.state, err
	}
	p.state = StateWorkoutReady
	p.logger.Info("workout plan stored", "exercises", len(validated.Exercises), "calories", validated.DailyMacros.Calories)
	return p.state, nil
}

// RequestMealPlan runs stage 2. Only legal once a workout plan exists.
func (p *Pipeline) RequestMealPlan(ctx context.Context, prefs plan.MealPreferences) (State, error) {
	p.mu.Lock()
	switch p.state {
	case StateAwaitingMeals:
		p.mu.Unlock()
		return StateAwaitingMeals, nil
	case StateWorkoutReady, StateMealsFailed:
		p.state = StateAwaitingMeals
	default:
		st := p.state
		p.mu.Unlock()
		return st, fmt.Errorf("%w: meal stage requires a workout plan (state %s)", session.ErrInvalidStageOrder, st)
	}
	p.sess.SetMealPreferences(prefs)
	req := MealRequest{WorkoutContext: *p.sess.WorkoutPlan(), UserFoodContext: *p.sess.Preferences()}
	p.mu.Unlock()

	p.logger.Info("requesting meal plan", "diet", prefs.DietType, "ingredients", len(req.UserFoodContext.AvailableIngredients))
	raw, err := p.meals.GenerateMeals(ctx, req)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.state = StateMealsFailed
		return p.state, &CollaboratorError{Stage: "meal", Err: err}
	}
	validated, err := plan.ValidateMealPlan(raw)
	if err != nil {
		p.logger.Warn("meal response failed contract", "error", err)
		p.state = StateMealsFailed
		return p.state, err
	}
	if err := p.sess.SetMealPlan(validated); err != nil {
		p.state = StateMealsFailed
		return p.state, err
	}
	p.state = StateMealsReady
	p.logger.Info("meal plan stored", "slots", len(validated.Meals))
	return p.state, nil
}

// RequestTrackingAnalysis runs stage 3. Legal from meals_ready,
// tracking_failed and tracking_complete (resubmission). When records is nil
// the session's current feedback is used.
func (p *Pipeline) RequestTrackingAnalysis(ctx context.Context, records []plan.ExerciseFeedback, imageRef string) (State, error) {
	p.mu.Lock()
	switch p.state {
	case StateAwaitingTracking:
		p.mu.Unlock()
		return StateAwaitingTracking, nil
	case StateMealsReady, StateTrackingFailed, StateTrackingComplete:
		p.state = StateAwaitingTracking
	default:
		st := p.state
		p.mu.Unlock()
		return st, fmt.Errorf("%w: tracking stage requires a meal plan (state %s)", session.ErrInvalidStageOrder, st)
	}
	if records == nil {
		records = p.sess.Feedback()
	}
	if imageRef != "" {
		p.sess.SetImageRef(imageRef)
	}
	actualMinutes, cardio := p.sess.WorkoutActuals()
	req := TrackingRequest{
		WorkoutResponse: *p.sess.WorkoutPlan(),
		MealsResponse:   *p.sess.MealPlan(),
		Feedback:        records,
		ActualMinutes:   actualMinutes,
		Cardio:          cardio,
		Image:           p.sess.ImageRef(),
	}
	p.mu.Unlock()

	p.logger.Info("requesting tracking analysis", "records", len(records), "image", req.Image != "")
	report, err := p.tracker.AnalyzeTracking(ctx, req)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.state = StateTrackingFailed
		return p.state, &CollaboratorError{Stage: "tracking", Err: err}
	}
	if err := p.sess.SetTrackingReport(report); err != nil {
		p.state = StateTrackingFailed
		return p.state, err
	}
	p.state = StateTrackingComplete
	p.logger.Info("tracking report stored")
	return p.state, nil
}
