// Package llm implements the three generation collaborators (workout,
// meals, tracking) against an OpenAI-compatible chat API with structured
// outputs, plus a Gemini vision client for ingredient detection.
package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1"

	// Structured-output stages want the stronger instruction follower;
	// prose summaries tolerate the cheaper model.
	defaultPlannerModel = "moonshotai/kimi-k2-instruct-0905"
	defaultChatModel    = "llama-3.3-70b-versatile"
)

// NewTextClient builds the chat client from the environment. GROQ_API_KEY
// is preferred, OPENAI_API_KEY accepted; OPENAI_BASE_URL overrides the
// default Groq endpoint.
func NewTextClient() (openai.Client, error) {
	key := os.Getenv("GROQ_API_KEY")
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		return openai.Client{}, fmt.Errorf("GROQ_API_KEY or OPENAI_API_KEY is required")
	}
	baseURL := os.Getenv("OPENAI_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := openai.NewClient(
		option.WithAPIKey(key),
		option.WithBaseURL(baseURL),
	)
	return client, nil
}

// PlannerModel returns the model used for structured generation, overridable
// via FITPIPE_PLANNER_MODEL.
func PlannerModel() string {
	if m := os.Getenv("FITPIPE_PLANNER_MODEL"); m != "" {
		return m
	}
	return defaultPlannerModel
}

// ChatModel returns the model used for prose summaries, overridable via
// FITPIPE_CHAT_MODEL.
func ChatModel() string {
	if m := os.Getenv("FITPIPE_CHAT_MODEL"); m != "" {
		return m
	}
	return defaultChatModel
}

// cleanJSONResponse strips markdown fences and surrounding prose, leaving
// the outermost JSON object. Models occasionally wrap structured output
// despite instructions.
func cleanJSONResponse(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)
	start := strings.IndexAny(s, "{[")
	end := strings.LastIndexAny(s, "}]")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
