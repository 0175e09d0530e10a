// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// VertexBackend calls Gemini models through Vertex AI using application
// default credentials.
type VertexBackend struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewVertexBackend creates a Vertex AI client in project/region.
func NewVertexBackend(ctx context.Context, project, region, modelName string, maxTokens int) (*VertexBackend, error) {
	if project == "" || region == "" {
		return nil, fmt.Errorf("vertex: project and region are required")
	}
	client, err := genai.NewClient(ctx, project, region)
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}
	m := client.GenerativeModel(modelName)
	m.SetTemperature(0.3)
	if maxTokens > 0 {
		m.SetMaxOutputTokens(int32(maxTokens))
	}
	return &VertexBackend{client: client, model: m}, nil
}

func (v *VertexBackend) Name() string { return "vertex" }

func (v *VertexBackend) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := v.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("vertex generate: %w", err)
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	return b.String(), nil
}

// Close releases the underlying connection.
func (v *VertexBackend) Close() error {
	return v.client.Close()
}
