// Package session holds the accumulating state for one plan-and-track
// cycle. A Session is exclusively owned by a single pipeline run; there is
// no sharing across sessions and no ambient global state.
package session

import (
	"errors"
	"strings"
	"sync"

	"github.com/thomasfsr/fitpipe/metrics"
	"github.com/thomasfsr/fitpipe/plan"
)

var (
	// ErrInvalidStageOrder marks an operation attempted before its
	// prerequisite stage's data exists. Always a usage error, never retried
	// automatically.
	ErrInvalidStageOrder = errors.New("invalid stage order")
	// ErrMissingDependency marks a derivation whose source data is absent.
	ErrMissingDependency = errors.New("missing dependency")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrInvalidInput      = errors.New("invalid input")
)

// Session is the authoritative holder of one user's plan session. All
// mutation goes through its methods; a failed mutation leaves the session in
// its previous valid state. Methods are safe for concurrent use: the
// pipeline drives the stage fields while HTTP handlers read state and edit
// feedback from their own goroutines.
type Session struct {
	mu            sync.RWMutex
	profile       plan.ProfileInput
	prefs         *plan.MealPreferences
	workout       *plan.WorkoutPlan
	meals         *plan.MealPlan
	feedback      []plan.ExerciseFeedback
	actualMinutes float64
	cardio        []plan.CardioFeedback
	imageRef      string
	tracking      *plan.TrackingReport
}

// New creates a session from a profile. The profile is immutable for the
// session's lifetime.
func New(profile plan.ProfileInput) (*Session, error) {
	if strings.TrimSpace(profile.Name) == "" {
		return nil, errors.Join(ErrInvalidInput, errors.New("profile name is required"))
	}
	if profile.Weight <= 0 {
		return nil, errors.Join(ErrInvalidInput, errors.New("profile weight must be positive"))
	}
	return &Session{profile: profile}, nil
}

func (s *Session) Profile() plan.ProfileInput { return s.profile }

// WorkoutPlan returns the stored plan, or nil before the workout stage has
// completed.
func (s *Session) WorkoutPlan() *plan.WorkoutPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workout
}

func (s *Session) MealPlan() *plan.MealPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meals
}

func (s *Session) Preferences() *plan.MealPreferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

func (s *Session) TrackingReport() *plan.TrackingReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracking
}

func (s *Session) ImageRef() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.imageRef
}

// Feedback returns a copy of the tracking records; callers mutate through
// UpdateFeedback only.
func (s *Session) Feedback() []plan.ExerciseFeedback {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]plan.ExerciseFeedback, len(s.feedback))
	copy(out, s.feedback)
	return out
}

// WorkoutActuals returns the executed workout minutes and a copy of the
// reported cardio blocks.
func (s *Session) WorkoutActuals() (float64, []plan.CardioFeedback) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cardio := make([]plan.CardioFeedback, len(s.cardio))
	copy(cardio, s.cardio)
	return s.actualMinutes, cardio
}

// SetWorkoutPlan stores the validated stage 1 result. Overwriting a prior
// plan is allowed so a stage retry stays idempotent.
func (s *Session) SetWorkoutPlan(p *plan.WorkoutPlan) error {
	if p == nil {
		return errors.Join(ErrInvalidInput, errors.New("workout plan is nil"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workout = p
	return nil
}

// SetMealPreferences records the user's food context. Editable until the
// meal stage fires.
func (s *Session) SetMealPreferences(prefs plan.MealPreferences) {
	prefs.AvailableIngredients = dedupe(prefs.AvailableIngredients)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = &prefs
}

// SetMealPlan stores the validated stage 2 result. Meal generation depends
// on the workout context, so a meal plan cannot land before a workout plan.
func (s *Session) SetMealPlan(p *plan.MealPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workout == nil {
		return errors.Join(ErrInvalidStageOrder, errors.New("meal plan requires a workout plan"))
	}
	if p == nil {
		return errors.Join(ErrInvalidInput, errors.New("meal plan is nil"))
	}
	s.meals = p
	return nil
}

// InitFeedback derives one tracking record per planned exercise, with
// planned reps taken as the lower bound of the plan's rep range and nothing
// completed yet. Re-initializing discards prior records.
func (s *Session) InitFeedback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workout == nil {
		return errors.Join(ErrMissingDependency, errors.New("feedback requires a workout plan"))
	}
	records := make([]plan.ExerciseFeedback, len(s.workout.Exercises))
	for i, ex := range s.workout.Exercises {
		records[i] = plan.ExerciseFeedback{
			Name:        ex.Name,
			PlannedSets: ex.Sets,
			PlannedReps: ex.Reps.Planned(),
		}
	}
	s.feedback = records
	return nil
}

// FeedbackField selects which completed quantity UpdateFeedback mutates.
type FeedbackField string

const (
	FieldCompletedSets FeedbackField = "completed_sets"
	FieldCompletedReps FeedbackField = "completed_reps"
)

// UpdateFeedback mutates one record's completed sets or reps and recomputes
// its completion percentage. Negative values and unknown indexes are
// rejected without mutating state.
func (s *Session) UpdateFeedback(index int, field FeedbackField, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.feedback) {
		return errors.Join(ErrIndexOutOfRange, errors.New("no feedback record at index"))
	}
	if value < 0 {
		return errors.Join(ErrInvalidInput, errors.New("completed quantities cannot be negative"))
	}
	rec := &s.feedback[index]
	switch field {
	case FieldCompletedSets:
		rec.CompletedSets = value
	case FieldCompletedReps:
		rec.CompletedReps = value
	default:
		return errors.Join(ErrInvalidInput, errors.New("unknown feedback field"))
	}
	rec.CompletionPct = metrics.CompletionPct(rec.PlannedSets, rec.PlannedReps, rec.CompletedSets, rec.CompletedReps)
	return nil
}

// SetWorkoutActuals records the executed workout: total minutes actually
// trained and completed distance per cardio block. Negative quantities are
// rejected without mutating state.
func (s *Session) SetWorkoutActuals(minutes float64, cardio []plan.CardioFeedback) error {
	if minutes < 0 {
		return errors.Join(ErrInvalidInput, errors.New("actual minutes cannot be negative"))
	}
	for _, c := range cardio {
		if c.PlannedDistanceKm < 0 || c.CompletedDistanceKm < 0 || c.CompletedMinutes < 0 {
			return errors.Join(ErrInvalidInput, errors.New("cardio distances and minutes cannot be negative"))
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actualMinutes = minutes
	s.cardio = append([]plan.CardioFeedback(nil), cardio...)
	return nil
}

// SetImageRef attaches an optional uploaded-image reference for tracking.
func (s *Session) SetImageRef(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imageRef = ref
}

// SetTrackingReport stores the stage 3 result. Resubmission overwrites.
func (s *Session) SetTrackingReport(r *plan.TrackingReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meals == nil {
		return errors.Join(ErrInvalidStageOrder, errors.New("tracking requires a meal plan"))
	}
	if r == nil {
		return errors.Join(ErrInvalidInput, errors.New("tracking report is nil"))
	}
	s.tracking = r
	return nil
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
