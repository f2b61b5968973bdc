package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/genai"

	"routeplan/internal/core/ocr"
	"routeplan/internal/logger"
)

// vlmConfidence is assigned to model-extracted lines; the model does
// not report a per-line score the way an OCR engine does.
const vlmConfidence = 0.9

const vlmPrompt = `Extract every postal address visible in this image.
Respond with JSON only, in the form {"addresses": ["..."]} where each
entry is one complete address as a single line of text. Return
{"addresses": []} if no address is visible.`

// VLMSource asks a vision model for the addresses in the image
// directly, skipping OCR. The returned lines feed the same
// validate/geocode/dedup pipeline as OCR output.
type VLMSource struct {
	client *genai.Client
	model  string
	log    *logger.Logger
}

func NewVLMSource(ctx context.Context, apiKey, model string) (*VLMSource, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("vlm extraction requires GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &VLMSource{client: client, model: model, log: logger.New("VLM")}, nil
}

func (s *VLMSource) Lines(ctx context.Context, imagePath string) ([]ocr.Line, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("unable to read image %s: %w", imagePath, err)
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(data, mimeForPath(imagePath)),
		genai.NewPartFromText(vlmPrompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("vlm extraction failed: %w", err)
	}

	var payload struct {
		Addresses []string `json:"addresses"`
	}
	raw := strings.TrimSpace(resp.Text())
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		s.log.LogWarnf("unparseable model response: %v", err)
		return nil, fmt.Errorf("vlm returned malformed JSON: %w", err)
	}

	lines := make([]ocr.Line, 0, len(payload.Addresses))
	for _, addr := range payload.Addresses {
		if addr = strings.TrimSpace(addr); addr != "" {
			lines = append(lines, ocr.Line{Text: addr, Confidence: vlmConfidence})
		}
	}
	s.log.LogDebugf("model returned %d addresses", len(lines))
	return lines, nil
}

func mimeForPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".png") {
		return "image/png"
	}
	return "image/jpeg"
}
