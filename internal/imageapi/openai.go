package imageapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client using the OpenAI Images edit endpoint. All
// four operations are image-to-image edits; the instruction prompt carries
// the operation-specific intent.
type OpenAIClient struct {
	model string
}

// NewOpenAIClient creates an OpenAI-backed image client for the given model.
func NewOpenAIClient(model string) *OpenAIClient {
	return &OpenAIClient{model: model}
}

func (o *OpenAIClient) ProviderName() string { return "openai" }
func (o *OpenAIClient) ModelName() string    { return o.model }

func (o *OpenAIClient) GenerateAngle(ctx context.Context, image []byte, contentType, promptHint, credential string) ([]byte, error) {
	return o.edit(ctx, image, contentType, anglePrompt(promptHint), credential)
}

func (o *OpenAIClient) Upscale(ctx context.Context, image []byte, contentType, credential string) ([]byte, error) {
	return o.edit(ctx, image, contentType, upscalePrompt(), credential)
}

func (o *OpenAIClient) RemoveBackground(ctx context.Context, image []byte, contentType, credential string) ([]byte, error) {
	return o.edit(ctx, image, contentType, removeBackgroundPrompt(), credential)
}

func (o *OpenAIClient) ChangeBackground(ctx context.Context, image []byte, contentType, prompt, credential string) ([]byte, error) {
	return o.edit(ctx, image, contentType, changeBackgroundPrompt(prompt), credential)
}

func (o *OpenAIClient) edit(ctx context.Context, image []byte, contentType, prompt, credential string) ([]byte, error) {
	if credential == "" {
		return nil, ErrMissingCredential
	}

	// The client is stateless beyond the key, so constructing one per call
	// keeps the mutable-credential story identical to the Gemini backend.
	client := openai.NewClient(credential)

	resp, err := client.CreateEditImage(ctx, openai.ImageEditRequest{
		Image:          openai.WrapReader(bytes.NewReader(image), "source.png", contentType),
		Prompt:         prompt,
		Model:          o.model,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("openai API call: %w", err)
	}

	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("openai returned no image data")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decoding image payload: %w", err)
	}
	return data, nil
}
