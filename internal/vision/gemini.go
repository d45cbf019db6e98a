package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/hawraz/carsell-flow/internal/marketplace"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash"

const carDetectionPrompt = `Analyze these photos of a car being listed for sale on a marketplace.

The photos show the same vehicle from different angles. Use all of them together to identify it.

Respond in JSON format with these fields:
- make: The manufacturer (e.g. "Toyota", "BMW"). Empty string if not identifiable.
- model: The model name (e.g. "Corolla", "X5"). Empty string if not identifiable.
- confidence: A number from 0.0 to 1.0 for how certain you are of the make and model together.

Example response:
{"make": "Toyota", "model": "Corolla", "confidence": 0.85}

Respond ONLY with the JSON object, no markdown or other text.`

// GeminiDetector identifies cars directly through the Gemini API, without
// going through the marketplace backend. Used when a backend vision
// endpoint is not configured.
type GeminiDetector struct {
	client *genai.Client
}

// NewGeminiDetector creates a Gemini-backed detector. It reads the
// GEMINI_API_KEY environment variable for authentication.
func NewGeminiDetector(ctx context.Context) (*GeminiDetector, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiDetector{client: client}, nil
}

// DetectCar implements the Detector interface using Gemini.
func (g *GeminiDetector) DetectCar(ctx context.Context, images []marketplace.ImageUpload) (*marketplace.VisionResult, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images provided")
	}

	parts := []*genai.Part{
		genai.NewPartFromText(carDetectionPrompt),
	}
	for _, img := range images {
		mimeType := http.DetectContentType(img.Data)
		if !strings.HasPrefix(mimeType, "image/") {
			mimeType = "image/jpeg"
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{Data: img.Data, MIMEType: mimeType},
		})
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, geminiModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	detection, err := parseDetection(result.Text())
	if err != nil {
		return nil, err
	}

	if result.UsageMetadata != nil {
		log.Info().
			Str("model", geminiModel).
			Int("imageCount", len(images)).
			Int("inputTokens", int(result.UsageMetadata.PromptTokenCount)).
			Int("outputTokens", int(result.UsageMetadata.CandidatesTokenCount)).
			Msg("car detection llm call")
	}

	return detection, nil
}

// extractJSONObject extracts a JSON object from text that may contain
// markdown code blocks or other formatting.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response: %s", text)
	}
	return text[start : end+1], nil
}

func parseDetection(text string) (*marketplace.VisionResult, error) {
	jsonStr, err := extractJSONObject(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	var res marketplace.VisionResult
	if err := json.Unmarshal([]byte(jsonStr), &res); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w (response: %s)", err, jsonStr)
	}

	return &res, nil
}
