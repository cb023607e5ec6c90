package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"google.golang.org/genai"

	"github.com/thomasfsr/fitpipe/nutrition"
)

const visionPrompt = `Identify all RAW food ingredients visible in this image.
Ignore cooked dishes, utensils and packaging.
Return ONLY a JSON array of ingredient names.`

const defaultVisionModel = "gemini-2.5-flash"

// VisionLLM detects raw ingredients in an uploaded meal image using Gemini
// vision.
type VisionLLM struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewVisionLLM builds the Gemini client from GEMINI_API_KEY.
func NewVisionLLM(ctx context.Context, logger *slog.Logger) (*VisionLLM, error) {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := os.Getenv("FITPIPE_VISION_MODEL")
	if model == "" {
		model = defaultVisionModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VisionLLM{client: client, model: model, logger: logger}, nil
}

// DetectIngredients returns normalized ingredient names found in the image.
func (v *VisionLLM) DetectIngredients(ctx context.Context, image []byte, mimeType string) ([]string, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("image data is empty")
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(visionPrompt),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}
	resp, err := v.client.Models.GenerateContent(ctx, v.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("vision call failed: %w", err)
	}
	var names []string
	if err := json.Unmarshal([]byte(cleanJSONResponse(resp.Text())), &names); err != nil {
		return nil, fmt.Errorf("vision response is not a JSON array: %w", err)
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if normalized := nutrition.Normalize(n); normalized != "" {
			out = append(out, normalized)
		}
	}
	v.logger.Info("ingredients detected", "count", len(out))
	return out, nil
}
