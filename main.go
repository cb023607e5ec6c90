package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/thomasfsr/fitpipe/database"
	"github.com/thomasfsr/fitpipe/llm"
	"github.com/thomasfsr/fitpipe/nutrition"
	"github.com/thomasfsr/fitpipe/research"
	"github.com/thomasfsr/fitpipe/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment")
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	client, err := llm.NewTextClient()
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "fitpipe.db"
	}
	store, err := database.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open plan store: %w", err)
	}
	defer store.Close()

	nutritionDB, err := nutrition.Open(nutrition.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to load nutrition table: %w", err)
	}

	res := research.New(nil, logger)

	workouts := llm.NewWorkoutLLM(client, llm.ChatModel(), llm.PlannerModel(), res, logger)
	meals := llm.NewMealLLM(client, llm.PlannerModel(), nutritionDB, logger)
	tracker := llm.NewTrackingLLM(client, llm.PlannerModel(), logger)

	var vision server.IngredientDetector
	if os.Getenv("GEMINI_API_KEY") != "" {
		v, err := llm.NewVisionLLM(context.Background(), logger)
		if err != nil {
			return fmt.Errorf("failed to create vision client: %w", err)
		}
		vision = v
	} else {
		logger.Info("GEMINI_API_KEY not set, ingredient detection disabled")
	}

	srv := server.New(workouts, meals, tracker, vision, store, logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Info("listening", "port", port)
	return http.ListenAndServe(":"+port, srv.Handler())
}
