// Package database persists generated daily workout plans so the
// adjustments endpoint can read back the plan a tracked day was measured
// against. The pipeline itself never reads stored history; writes happen as
// a side effect after a plan passes validation.
package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/thomasfsr/fitpipe/plan"
)

const schema = `
CREATE TABLE IF NOT EXISTS daily_plans (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL,
	user_goal TEXT NOT NULL,
	calories REAL NOT NULL,
	protein_g REAL NOT NULL,
	carbs_g REAL NOT NULL,
	fats_g REAL NOT NULL,
	split_name TEXT NOT NULL,
	time_required_minutes INTEGER NOT NULL,
	workout_intensity TEXT NOT NULL,
	calories_burnt REAL NOT NULL,
	plan_json TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS exercises (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	daily_plan_id INTEGER NOT NULL REFERENCES daily_plans(id),
	name TEXT NOT NULL,
	sets INTEGER NOT NULL,
	reps TEXT NOT NULL,
	time_minutes INTEGER NOT NULL
);
`

// Store wraps the sqlite connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the plan database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveWorkoutPlan writes one validated plan and its exercises in a single
// transaction. The full JSON is kept alongside the flattened columns so the
// plan round-trips exactly.
func (s *Store) SaveWorkoutPlan(p *plan.WorkoutPlan) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO daily_plans
			(date, user_goal, calories, protein_g, carbs_g, fats_g,
			 split_name, time_required_minutes, workout_intensity, calories_burnt, plan_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		p.Date, string(p.UserGoal),
		p.DailyMacros.Calories, p.DailyMacros.ProteinG, p.DailyMacros.CarbsG, p.DailyMacros.FatsG,
		p.WorkoutSplit.Name, p.TimeRequiredMinutes, p.WorkoutIntensity, p.CaloriesBurnt, string(raw))
	if err != nil {
		return fmt.Errorf("failed to insert plan: %w", err)
	}
	planID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for _, ex := range p.Exercises {
		_, err := tx.Exec(`
			INSERT INTO exercises (daily_plan_id, name, sets, reps, time_minutes)
			VALUES (?, ?, ?, ?, ?);`,
			planID, ex.Name, ex.Sets, ex.Reps.String(), ex.TimeMinutes)
		if err != nil {
			return fmt.Errorf("failed to insert exercise: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LatestPlan returns the most recently stored plan, or nil when the store
// is empty.
func (s *Store) LatestPlan() (*plan.WorkoutPlan, error) {
	var raw string
	err := s.db.QueryRow(`SELECT plan_json FROM daily_plans ORDER BY id DESC LIMIT 1`).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest plan: %w", err)
	}
	var p plan.WorkoutPlan
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("failed to decode stored plan: %w", err)
	}
	return &p, nil
}

// PlanForDate returns the newest plan stored for the given date string, or
// nil when none exists.
func (s *Store) PlanForDate(date string) (*plan.WorkoutPlan, error) {
	var raw string
	err := s.db.QueryRow(`SELECT plan_json FROM daily_plans WHERE date = ? ORDER BY id DESC LIMIT 1`, date).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query plan for %s: %w", date, err)
	}
	var p plan.WorkoutPlan
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("failed to decode stored plan: %w", err)
	}
	return &p, nil
}
