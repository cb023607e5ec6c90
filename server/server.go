// Package server exposes the pipeline over HTTP. Each session gets its own
// pipeline instance addressed by id; all plan state lives in that session,
// never in the server.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/thomasfsr/fitpipe/database"
	"github.com/thomasfsr/fitpipe/metrics"
	"github.com/thomasfsr/fitpipe/pipeline"
	"github.com/thomasfsr/fitpipe/plan"
	"github.com/thomasfsr/fitpipe/session"
)

const maxImageBytes = 8 << 20

// IngredientDetector is the optional vision collaborator behind
// /detect-ingredients.
type IngredientDetector interface {
	DetectIngredients(ctx context.Context, image []byte, mimeType string) ([]string, error)
}

// Server routes HTTP requests to per-session pipelines.
type Server struct {
	workouts pipeline.WorkoutGenerator
	meals    pipeline.MealGenerator
	tracker  pipeline.TrackingAnalyzer
	vision   IngredientDetector
	store    *database.Store
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*pipeline.Pipeline
}

func New(w pipeline.WorkoutGenerator, m pipeline.MealGenerator, t pipeline.TrackingAnalyzer, vision IngredientDetector, store *database.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		workouts: w,
		meals:    m,
		tracker:  t,
		vision:   vision,
		store:    store,
		logger:   logger,
		sessions: make(map[string]*pipeline.Pipeline),
	}
}

// Handler builds the full HTTP handler: routes, request logging and CORS.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/sessions", s.createSession).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}", s.getSession).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}/workout", s.requestWorkout).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}/meals", s.requestMeals).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}/feedback/init", s.initFeedback).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}/feedback/{index}", s.updateFeedback).Methods(http.MethodPatch)
	r.HandleFunc("/api/sessions/{id}/tracking", s.requestTracking).Methods(http.MethodPost)
	r.HandleFunc("/api/plans/latest", s.latestPlan).Methods(http.MethodGet)
	r.HandleFunc("/api/detect-ingredients", s.detectIngredients).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(s.loggingMiddleware(r))
}

func (s *Server) pipelineFor(id string) (*pipeline.Pipeline, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.sessions[id]
	return p, ok
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var profile plan.ProfileInput
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}
	p, err := pipeline.New(profile, s.workouts, s.meals, s.tracker, s.logger)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = p
	s.mu.Unlock()
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": id,
		"state":      p.State().String(),
	})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	p, ok := s.pipelineFor(mux.Vars(r)["id"])
	if !ok {
		s.writeError(w, http.StatusNotFound, errors.New("session not found"))
		return
	}
	sess := p.Session()
	snapshot := map[string]any{
		"state":        p.State().String(),
		"profile":      sess.Profile(),
		"workout_plan": sess.WorkoutPlan(),
		"meal_plan":    sess.MealPlan(),
		"feedback":     sess.Feedback(),
		"tracking":     sess.TrackingReport(),
	}
	if records := sess.Feedback(); len(records) > 0 {
		snapshot["adherence_pct"] = metrics.OverallAdherence(records)
	}
	if mp := sess.MealPlan(); mp != nil {
		actual := metrics.AggregateDailyMacros(mp)
		snapshot["daily_actual_macros"] = actual
		if wp := sess.WorkoutPlan(); wp != nil {
			snapshot["macro_delta"] = metrics.MacroDelta(wp.DailyMacros, actual)
		}
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) requestWorkout(w http.ResponseWriter, r *http.Request) {
	p, ok := s.pipelineFor(mux.Vars(r)["id"])
	if !ok {
		s.writeError(w, http.StatusNotFound, errors.New("session not found"))
		return
	}
	var body struct {
		Adjustments *plan.AdjustmentReport `json:"workout_adjustments"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
			return
		}
	}
	state, err := p.RequestWorkoutPlan(r.Context(), body.Adjustments)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	if wp := p.Session().WorkoutPlan(); wp != nil && s.store != nil {
		if err := s.store.SaveWorkoutPlan(wp); err != nil {
			s.logger.Error("failed to persist workout plan", "error", err)
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"state":        state.String(),
		"workout_plan": p.Session().WorkoutPlan(),
	})
}

func (s *Server) requestMeals(w http.ResponseWriter, r *http.Request) {
	p, ok := s.pipelineFor(mux.Vars(r)["id"])
	if !ok {
		s.writeError(w, http.StatusNotFound, errors.New("session not found"))
		return
	}
	var prefs plan.MealPreferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}
	state, err := p.RequestMealPlan(r.Context(), prefs)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"state":     state.String(),
		"meal_plan": p.Session().MealPlan(),
	})
}

func (s *Server) initFeedback(w http.ResponseWriter, r *http.Request) {
	p, ok := s.pipelineFor(mux.Vars(r)["id"])
	if !ok {
		s.writeError(w, http.StatusNotFound, errors.New("session not found"))
		return
	}
	if err := p.Session().InitFeedback(); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"feedback": p.Session().Feedback()})
}

func (s *Server) updateFeedback(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	p, ok := s.pipelineFor(vars["id"])
	if !ok {
		s.writeError(w, http.StatusNotFound, errors.New("session not found"))
		return
	}
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid feedback index: %w", err))
		return
	}
	var body struct {
		Field session.FeedbackField `json:"field"`
		Value int                   `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return
	}
	if err := p.Session().UpdateFeedback(index, body.Field, body.Value); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"feedback":      p.Session().Feedback(),
		"adherence_pct": metrics.OverallAdherence(p.Session().Feedback()),
	})
}

func (s *Server) requestTracking(w http.ResponseWriter, r *http.Request) {
	p, ok := s.pipelineFor(mux.Vars(r)["id"])
	if !ok {
		s.writeError(w, http.StatusNotFound, errors.New("session not found"))
		return
	}
	var body struct {
		ImageRef      string                `json:"image_ref"`
		ActualMinutes float64               `json:"actual_minutes"`
		Cardio        []plan.CardioFeedback `json:"cardio_feedback"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
			return
		}
	}
	if body.ActualMinutes != 0 || len(body.Cardio) > 0 {
		if err := p.Session().SetWorkoutActuals(body.ActualMinutes, body.Cardio); err != nil {
			s.writeError(w, statusFor(err), err)
			return
		}
	}
	state, err := p.RequestTrackingAnalysis(r.Context(), nil, body.ImageRef)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"state":    state.String(),
		"tracking": p.Session().TrackingReport(),
	})
}

func (s *Server) latestPlan(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusNotFound, errors.New("plan store not configured"))
		return
	}
	p, err := s.store.LatestPlan()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if p == nil {
		s.writeError(w, http.StatusNotFound, errors.New("no plans stored yet"))
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) detectIngredients(w http.ResponseWriter, r *http.Request) {
	if s.vision == nil {
		s.writeError(w, http.StatusNotImplemented, errors.New("ingredient detection not configured"))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("image file required"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read image: %w", err))
		return
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	ingredients, err := s.vision.DetectIngredients(r.Context(), data, mimeType)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "awaiting_weights",
		"ingredients": ingredients,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps pipeline and session error kinds onto HTTP status codes:
// usage errors are the client's fault, contract and transport failures are
// the upstream collaborator's.
func statusFor(err error) int {
	var verr *plan.ValidationError
	var cerr *pipeline.CollaboratorError
	switch {
	case errors.Is(err, session.ErrInvalidStageOrder):
		return http.StatusConflict
	case errors.Is(err, session.ErrMissingDependency):
		return http.StatusConflict
	case errors.Is(err, session.ErrIndexOutOfRange),
		errors.Is(err, session.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.As(err, &verr), errors.As(err, &cerr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
