// Package listing generates e-commerce product listings from a product photo
// and a text prompt using a multimodal chat completion API.
package listing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sashabaranov/go-openai"
)

const imageDataURLPrefix = "data:image/jpeg;base64,"

var (
	// ErrEmptyImage is returned when no image data is supplied to the vision client.
	ErrEmptyImage = errors.New("image data cannot be empty")
	// ErrNoChoices is returned when the API response carries no completion choice.
	ErrNoChoices = errors.New("chat completion returned no choices")
)

// ChatCompleter is the subset of the OpenAI client used for vision requests.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// VisionSettings holds the per-request generation parameters.
type VisionSettings struct {
	Model       string
	Detail      string
	MaxTokens   int
	Temperature float64
}

// VisionResult is the parsed response of one vision request.
type VisionResult struct {
	Content      string
	Model        string
	FinishReason string
	TokensUsed   int
}

// VisionClient sends a prompt and an image to a chat completion endpoint.
type VisionClient struct {
	completer ChatCompleter
	settings  VisionSettings
}

// NewVisionClient creates a VisionClient around an existing completer.
func NewVisionClient(completer ChatCompleter, settings VisionSettings) *VisionClient {
	if settings.Detail == "" {
		settings.Detail = string(openai.ImageURLDetailHigh)
	}

	return &VisionClient{
		completer: completer,
		settings:  settings,
	}
}

// requestTemperature maps a zero temperature to the smallest positive value,
// since the request field is dropped from the JSON body when it is zero.
func requestTemperature(temperature float64) float32 {
	if temperature <= 0 {
		return math.SmallestNonzeroFloat32
	}

	return float32(temperature)
}

// Generate sends one user message holding prompt and the base64 JPEG image.
func (c *VisionClient) Generate(ctx context.Context, prompt, imageBase64 string) (VisionResult, error) {
	if imageBase64 == "" {
		return VisionResult{}, ErrEmptyImage
	}

	req := openai.ChatCompletionRequest{
		Model: c.settings.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    imageDataURLPrefix + imageBase64,
							Detail: openai.ImageURLDetail(c.settings.Detail),
						},
					},
				},
			},
		},
		MaxTokens:   c.settings.MaxTokens,
		Temperature: requestTemperature(c.settings.Temperature),
	}

	resp, err := c.completer.CreateChatCompletion(ctx, req)
	if err != nil {
		return VisionResult{}, fmt.Errorf("chat completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return VisionResult{}, ErrNoChoices
	}

	return VisionResult{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		FinishReason: string(resp.Choices[0].FinishReason),
		TokensUsed:   resp.Usage.TotalTokens,
	}, nil
}
