package imageapi

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiClient implements Client against the Gemini image model. Every call
// sends the source image as an inline part plus a text instruction, and takes
// the first inline-data part of the first candidate as the result.
//
// A genai client is constructed per call because the credential is mutable at
// runtime (the user can save a new key mid-session) and client construction
// is cheap — it only captures the key.
type GeminiClient struct {
	model string
}

// NewGeminiClient creates a Gemini-backed image client for the given model.
func NewGeminiClient(model string) *GeminiClient {
	return &GeminiClient{model: model}
}

func (g *GeminiClient) ProviderName() string { return "gemini" }
func (g *GeminiClient) ModelName() string    { return g.model }

func (g *GeminiClient) GenerateAngle(ctx context.Context, image []byte, contentType, promptHint, credential string) ([]byte, error) {
	return g.edit(ctx, image, contentType, anglePrompt(promptHint), credential)
}

func (g *GeminiClient) Upscale(ctx context.Context, image []byte, contentType, credential string) ([]byte, error) {
	return g.edit(ctx, image, contentType, upscalePrompt(), credential)
}

func (g *GeminiClient) RemoveBackground(ctx context.Context, image []byte, contentType, credential string) ([]byte, error) {
	return g.edit(ctx, image, contentType, removeBackgroundPrompt(), credential)
}

func (g *GeminiClient) ChangeBackground(ctx context.Context, image []byte, contentType, prompt, credential string) ([]byte, error) {
	return g.edit(ctx, image, contentType, changeBackgroundPrompt(prompt), credential)
}

// edit is the single-request core shared by all four operations.
func (g *GeminiClient) edit(ctx context.Context, image []byte, contentType, prompt, credential string) ([]byte, error) {
	if credential == "" {
		return nil, ErrMissingCredential
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  credential,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	content := &genai.Content{
		Parts: []*genai.Part{
			{
				InlineData: &genai.Blob{
					MIMEType: contentType,
					Data:     image,
				},
			},
			genai.NewPartFromText(prompt),
		},
	}

	result, err := client.Models.GenerateContent(
		ctx,
		g.model,
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			// Low temperature keeps the product consistent across angles.
			Temperature: floatPtr(0.5),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini API call: %w", err)
	}

	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}

	return nil, fmt.Errorf("gemini returned no image data")
}

func floatPtr(f float32) *float32 { return &f }
