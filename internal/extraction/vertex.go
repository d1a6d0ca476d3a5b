package extraction

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// generation parameters tuned for deterministic structured output
const (
	modelTemperature     = 0.1
	modelTopP            = 0.2
	modelTopK            = 32
	modelMaxOutputTokens = 2048
)

// VertexModel is the production ModelCaller backed by Vertex AI Gemini.
type VertexModel struct {
	client *genai.Client
	model  string
}

func NewVertexModel(ctx context.Context, projectID, location, model string) (*VertexModel, error) {
	if projectID == "" {
		return nil, fmt.Errorf("extraction: project id is required")
	}
	client, err := genai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, fmt.Errorf("extraction: create vertex client: %w", err)
	}
	return &VertexModel{client: client, model: model}, nil
}

func (v *VertexModel) GenerateText(ctx context.Context, prompt string, image InlineData) (string, error) {
	model := v.client.GenerativeModel(v.model)
	model.SetTemperature(modelTemperature)
	model.SetTopP(modelTopP)
	model.SetTopK(modelTopK)
	model.SetMaxOutputTokens(modelMaxOutputTokens)

	resp, err := model.GenerateContent(ctx,
		genai.Text(prompt),
		genai.Blob{MIMEType: image.MIMEType, Data: image.Data},
	)
	if err != nil {
		return "", err
	}
	return firstTextPart(resp), nil
}

func (v *VertexModel) Close() error {
	return v.client.Close()
}

func firstTextPart(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok && strings.TrimSpace(string(text)) != "" {
				return strings.TrimSpace(string(text))
			}
		}
	}
	return ""
}
