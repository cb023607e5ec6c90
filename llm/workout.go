package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v2"

	"github.com/thomasfsr/fitpipe/pipeline"
	"github.com/thomasfsr/fitpipe/plan"
	"github.com/thomasfsr/fitpipe/research"
)

const workoutAnalystPrompt = `You are the analysis agent of a fitness planning system.
Read the user's adjustment report and the research notes, then produce concise
programming instructions for today's workout: which muscles to train and at what
intensity, training style, total duration (60 minutes including cardio), cardio
requirements (type, duration, target heart rate) and daily nutrition targets
(calories, protein_g, carbs_g, fats_g) matched to the user's goal and weight.
For new users apply conservative programming: compound movements only, 10-15 rep
ranges, low-to-moderate intensity, form over load.
Respond with plain structured text, no markdown.`

const workoutBuilderPrompt = `You are the plan builder of a fitness planning system.
Turn the analyst's instructions into a complete daily workout plan. Rules:
- exercises must target the instructed muscles and match the experience level
- reps is a string: a fixed count or a range like "10-15"
- per-exercise time_minutes includes rest; exercise and cardio time sum to
  approximately time_required_minutes
- use the exact nutrition targets from the instructions
- write diet_rationale and workout_rationale as short coach explanations`

// WorkoutLLM generates the stage 1 workout plan in two phases: an analyst
// pass over the adjustment report and research notes, then a builder pass
// constrained to the WorkoutPlan schema.
type WorkoutLLM struct {
	client       openai.Client
	analystModel string
	builderModel string
	research     *research.Client
	logger       *slog.Logger
}

// NewWorkoutLLM wires the two-phase generator. The analyst pass is plain
// prose and can run on a cheaper model; the builder pass needs the
// structured-output model.
func NewWorkoutLLM(client openai.Client, analystModel, builderModel string, res *research.Client, logger *slog.Logger) *WorkoutLLM {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkoutLLM{client: client, analystModel: analystModel, builderModel: builderModel, research: res, logger: logger}
}

func (w *WorkoutLLM) GenerateWorkout(ctx context.Context, req pipeline.WorkoutRequest) (json.RawMessage, error) {
	report := req.Adjustments
	if report == nil {
		report = newUserReport(req.Profile)
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode adjustment report: %w", err)
	}

	query := fmt.Sprintf("%s %s workout plan guidelines", req.Profile.Experience, req.Profile.NutritionGoal)
	notes := w.research.PromptContext(ctx, query, 3)
	if notes == "" {
		notes = "(no research notes available)"
	}

	analysis := fmt.Sprintf(`USER PROFILE:
name: %s, weight_kg: %.1f, goal: %s, experience: %s

ADJUSTMENT REPORT:
%s

RESEARCH NOTES:
%s

Produce today's programming instructions.`,
		req.Profile.Name, req.Profile.Weight, req.Profile.NutritionGoal, req.Profile.Experience,
		reportJSON, notes)

	analystOut, err := w.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: w.analystModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(workoutAnalystPrompt),
			openai.UserMessage(analysis),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("workout analysis call failed: %w", err)
	}
	instructions := analystOut.Choices[0].Message.Content
	w.logger.Debug("workout instructions ready", "chars", len(instructions))

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "workout_plan",
		Description: openai.String("Complete daily workout plan with exercises, cardio and nutrition targets"),
		Schema:      WorkoutPlanSchema,
		Strict:      openai.Bool(true),
	}
	builderOut, err := w.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: w.builderModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(workoutBuilderPrompt),
			openai.UserMessage(fmt.Sprintf("Today is %s. Instructions:\n%s", time.Now().Format("02/01/2006"), instructions)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("workout build call failed: %w", err)
	}
	return json.RawMessage(cleanJSONResponse(builderOut.Choices[0].Message.Content)), nil
}

// newUserReport synthesizes a conservative first-cycle report for a profile
// with no tracking history.
func newUserReport(p plan.ProfileInput) *plan.AdjustmentReport {
	multiplier := 1.0
	if p.Experience == plan.ExperienceBeginner {
		multiplier = 0.8
	}
	return &plan.AdjustmentReport{
		ReportID:      fmt.Sprintf("new_user_%s_%s", p.NutritionGoal, p.Experience),
		Goal:          p.NutritionGoal,
		OverallStatus: "new_user_onboarding",
		Strengths: []string{
			"No previous workout history: blank slate for proper foundations",
		},
		Adjustments: plan.AdjustmentGuidance{
			IntensityGuidance:        fmt.Sprintf("Conservative intensity for a %s starting out", p.Experience),
			VolumeGuidance:           "Minimal volume, compound movements only",
			CardioVsStrengthEmphasis: cardioEmphasis(p.NutritionGoal),
			RecoveryConsiderations:   "Allow 2-3 days between similar muscle groups",
		},
		ProtectedElements: []string{
			"Form and technique take priority over load",
			"Gradual progression for the first weeks",
		},
		MetricsReference: plan.MetricsReference{
			IntensityMultiplier: multiplier,
			EffortScore:         0.7,
		},
	}
}

func cardioEmphasis(goal plan.Goal) string {
	if goal == plan.GoalMuscleGain {
		return "Emphasize strength training with minimal cardio"
	}
	return "Emphasize cardio with moderate strength training"
}
