package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v2"

	"github.com/thomasfsr/fitpipe/metrics"
	"github.com/thomasfsr/fitpipe/pipeline"
	"github.com/thomasfsr/fitpipe/plan"
)

const trackingPrompt = `You are the adjustment agent of a fitness tracking system.
Convert the tracker decision you receive into a report with a coach-style prose
summary and a structured adjustment section. Rules:
- base everything on the provided decision: its negatives, positives, metrics,
  intensity and goal; never invent new goals, exercises or numeric targets
- link every adjustment to a specific flag or metric
- separate confirmed strengths, required adjustments and protected elements
- be precise, non-judgmental and coach-like
- copy the metrics snapshot into metrics_reference unchanged`

// TrackingLLM is the stage 3 collaborator: it derives the day's deficits
// and effort from the accumulated context, evaluates the goal thresholds,
// and has the adjustment agent turn the decision into a report.
type TrackingLLM struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

func NewTrackingLLM(client openai.Client, model string, logger *slog.Logger) *TrackingLLM {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrackingLLM{client: client, model: model, logger: logger}
}

func (t *TrackingLLM) AnalyzeTracking(ctx context.Context, req pipeline.TrackingRequest) (*plan.TrackingReport, error) {
	consumed := metrics.AggregateDailyMacros(&req.MealsResponse)
	deficits := metrics.DailyDeficits(req.WorkoutResponse.DailyMacros, consumed, req.WorkoutResponse.CaloriesBurnt)
	effort := metrics.WorkoutEffort(
		metrics.TotalPlannedReps(req.Feedback),
		metrics.TotalCompletedReps(req.Feedback),
		float64(req.WorkoutResponse.TimeRequiredMinutes), req.ActualMinutes, req.Cardio)
	decision := metrics.EvaluateThresholds(req.WorkoutResponse.UserGoal, deficits, effort, req.WorkoutResponse.WorkoutIntensity)

	decisionJSON, err := json.Marshal(decision)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tracker decision: %w", err)
	}
	t.logger.Info("tracker decision computed", "status", decision.Status, "flags", len(decision.Flags))

	userMsg := string(decisionJSON)
	if req.Image != "" {
		userMsg += fmt.Sprintf("\n\nThe user also uploaded a meal image (ref %s); mention that it was received.", req.Image)
	}

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "tracking_report",
		Description: openai.String("Day summary plus structured workout adjustments"),
		Schema:      TrackingReportSchema,
		Strict:      openai.Bool(true),
	}
	chat, err := t.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: t.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(trackingPrompt),
			openai.UserMessage(userMsg),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("tracking call failed: %w", err)
	}

	var report plan.TrackingReport
	if err := json.Unmarshal([]byte(cleanJSONResponse(chat.Choices[0].Message.Content)), &report); err != nil {
		return nil, fmt.Errorf("tracking response is not valid JSON: %w", err)
	}
	if report.Adjustments.ReportID == "" {
		report.Adjustments.ReportID = uuid.NewString()
	}
	// The decision's numbers are authoritative; the model only narrates.
	report.Adjustments.Goal = decision.Goal
	report.Adjustments.MetricsReference = decision.Metrics
	return &report, nil
}
