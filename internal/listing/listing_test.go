package listing_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/mediagen/internal/apiclient"
	"github.com/book-expert/mediagen/internal/listing"
	"github.com/book-expert/mediagen/internal/product"
	"github.com/book-expert/mediagen/internal/prompt"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validListingJSON = `{
  "title": "Premium Wireless Headphones",
  "description": "Immersive over-ear headphones with plush cushions, matte black finish, and forty hours of battery life.",
  "features": ["Noise cancelling", "40-hour battery"],
  "keywords": "headphones, wireless, audio"
}`

var errMockEncode = errors.New("mock encode error")

// mockCompleter is a mock implementation of the ChatCompleter interface.
type mockCompleter struct {
	content  string
	err      error
	requests []openai.ChatCompletionRequest
}

func (m *mockCompleter) CreateChatCompletion(
	_ context.Context,
	req openai.ChatCompletionRequest,
) (openai.ChatCompletionResponse, error) {
	m.requests = append(m.requests, req)

	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}

	return openai.ChatCompletionResponse{
		Model: "gpt-4o-mini-2024-07-18",
		Choices: []openai.ChatCompletionChoice{
			{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.content},
				FinishReason: openai.FinishReasonStop,
			},
		},
		Usage: openai.Usage{PromptTokens: 300, CompletionTokens: 120, TotalTokens: 420},
	}, nil
}

// mockEncoder is a mock implementation of the ImageEncoder interface.
type mockEncoder struct {
	failFor map[string]bool
}

func (m *mockEncoder) EncodeBase64(_ context.Context, source string) (string, error) {
	if m.failFor[source] {
		return "", errMockEncode
	}

	return "aW1hZ2U=", nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "listing-test.log")
	require.NoError(t, err)

	return log
}

func newGenerator(
	t *testing.T,
	completer listing.ChatCompleter,
	encoder listing.ImageEncoder,
	saveRaw bool,
) (*listing.Generator, string) {
	t.Helper()

	outputDir := filepath.Join(t.TempDir(), "generated_listings")

	files, err := listing.NewFileManager(outputDir)
	require.NoError(t, err)

	vision := listing.NewVisionClient(completer, listing.VisionSettings{
		Model:       "gpt-4o-mini",
		Detail:      "",
		MaxTokens:   800,
		Temperature: 0.7,
	})

	generator := listing.NewGenerator(vision, encoder, files, listing.GeneratorOptions{
		Out:              nil,
		Prompt:           nil,
		Model:            "gpt-4o-mini",
		BatchDelay:       0,
		SaveRawResponses: saveRaw,
	}, newTestLogger(t))

	return generator, outputDir
}

func TestVisionClient_RequestShape(t *testing.T) {
	t.Parallel()

	completer := &mockCompleter{content: "{}", err: nil, requests: nil}
	client := listing.NewVisionClient(completer, listing.VisionSettings{
		Model:       "gpt-4o-mini",
		Detail:      "",
		MaxTokens:   800,
		Temperature: 0.7,
	})

	result, err := client.Generate(context.Background(), "Describe it", "QUJD")
	require.NoError(t, err)

	assert.Equal(t, 420, result.TokensUsed)
	assert.Equal(t, "gpt-4o-mini-2024-07-18", result.Model)
	assert.Equal(t, "stop", result.FinishReason)

	require.Len(t, completer.requests, 1)

	req := completer.requests[0]
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, 800, req.MaxTokens)
	assert.InEpsilon(t, 0.7, req.Temperature, 0.0001)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[0].Role)

	parts := req.Messages[0].MultiContent
	require.Len(t, parts, 2)
	assert.Equal(t, "Describe it", parts[0].Text)
	require.NotNil(t, parts[1].ImageURL)
	assert.Equal(t, "data:image/jpeg;base64,QUJD", parts[1].ImageURL.URL)
	assert.Equal(t, openai.ImageURLDetailHigh, parts[1].ImageURL.Detail)
}

func TestVisionClient_ZeroTemperatureIsSent(t *testing.T) {
	t.Parallel()

	completer := &mockCompleter{content: "{}", err: nil, requests: nil}
	client := listing.NewVisionClient(completer, listing.VisionSettings{
		Model:       "gpt-4o-mini",
		Detail:      "",
		MaxTokens:   800,
		Temperature: 0,
	})

	_, err := client.Generate(context.Background(), "Describe it", "QUJD")
	require.NoError(t, err)

	require.Len(t, completer.requests, 1)

	temperature := completer.requests[0].Temperature
	assert.Positive(t, temperature)
	assert.Less(t, temperature, float32(1e-30))
}

func TestVisionClient_EmptyImage(t *testing.T) {
	t.Parallel()

	completer := &mockCompleter{content: "", err: nil, requests: nil}
	client := listing.NewVisionClient(completer, listing.VisionSettings{Model: "m", Detail: "low", MaxTokens: 1, Temperature: 0})

	_, err := client.Generate(context.Background(), "prompt", "")
	require.ErrorIs(t, err, listing.ErrEmptyImage)
	assert.Empty(t, completer.requests)
}

func TestVisionClient_AgainstHTTPServer(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" || r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "model": "gpt-4o-mini",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "` + "```json\\n{\\\"a\\\": 1}\\n```" + `"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`))
	}))
	defer server.Close()

	apiClient := apiclient.New("sk-test", server.URL+"/v1", 5*time.Second)
	client := listing.NewVisionClient(apiClient, listing.VisionSettings{
		Model:       "gpt-4o-mini",
		Detail:      "high",
		MaxTokens:   800,
		Temperature: 0.7,
	})

	result, err := client.Generate(context.Background(), "prompt", "QUJD")
	require.NoError(t, err)
	assert.Equal(t, 15, result.TokensUsed)
	assert.Equal(t, "```json\n{\"a\": 1}\n```", result.Content)
}

func TestProcessSingle_PromptBuilder(t *testing.T) {
	t.Parallel()

	outputDir := filepath.Join(t.TempDir(), "generated_listings")

	files, err := listing.NewFileManager(outputDir)
	require.NoError(t, err)

	completer := &mockCompleter{content: validListingJSON, err: nil, requests: nil}
	vision := listing.NewVisionClient(completer, listing.VisionSettings{Model: "gpt-4o-mini", Detail: "", MaxTokens: 800, Temperature: 0.7})
	generator := listing.NewGenerator(vision, &mockEncoder{failFor: nil}, files, listing.GeneratorOptions{
		Out:              nil,
		Prompt:           prompt.DetailedListing(90),
		Model:            "gpt-4o-mini",
		BatchDelay:       0,
		SaveRawResponses: false,
	}, newTestLogger(t))

	_, err = generator.ProcessSingle(context.Background(), product.Samples()[0])
	require.NoError(t, err)

	require.Len(t, completer.requests, 1)

	text := completer.requests[0].Messages[0].MultiContent[0].Text
	assert.Contains(t, text, "- Name: Premium Wireless Headphones")
	assert.Contains(t, text, "(90-140 words)")
	assert.Contains(t, text, `"keywords": "comma,separated,keywords"`)
}

func TestProcessSingle_Success(t *testing.T) {
	t.Parallel()

	completer := &mockCompleter{content: "```json\n" + validListingJSON + "\n```", err: nil, requests: nil}
	generator, outputDir := newGenerator(t, completer, &mockEncoder{failFor: nil}, false)

	sample := product.Samples()[0]

	result, err := generator.ProcessSingle(context.Background(), sample)
	require.NoError(t, err)
	assert.Equal(t, "Premium Wireless Headphones", result.Title)
	assert.Equal(t, 420, result.TokensUsed)
	assert.Equal(t, "gpt-4o-mini", result.ModelUsed)

	data, err := os.ReadFile(filepath.Join(outputDir, "product_1.json"))
	require.NoError(t, err)

	var saved map[string]any

	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, "Premium Wireless Headphones", saved["title"])
	assert.InDelta(t, 1, saved["product_id"], 0)
	assert.InDelta(t, 129.99, saved["original_price"], 0.0001)
	assert.Equal(t, "Electronics", saved["category"])
	assert.NotEmpty(t, saved["generated_at"])
	assert.True(t, strings.HasPrefix(string(data), "{\n  \""))
}

func TestProcessSingle_InvalidProduct(t *testing.T) {
	t.Parallel()

	completer := &mockCompleter{content: validListingJSON, err: nil, requests: nil}
	generator, _ := newGenerator(t, completer, &mockEncoder{failFor: nil}, false)

	bad := product.Samples()[0]
	bad.Price = -5

	_, err := generator.ProcessSingle(context.Background(), bad)
	require.ErrorIs(t, err, listing.ErrInvalidProduct)
	assert.Contains(t, err.Error(), "negative")
	assert.Empty(t, completer.requests)
}

func TestProcessSingle_UnparseableSavesRaw(t *testing.T) {
	t.Parallel()

	completer := &mockCompleter{content: "Sorry, I cannot help with that.", err: nil, requests: nil}
	generator, outputDir := newGenerator(t, completer, &mockEncoder{failFor: nil}, true)

	_, err := generator.ProcessSingle(context.Background(), product.Samples()[1])
	require.ErrorIs(t, err, listing.ErrUnparseableResponse)

	raw, readErr := os.ReadFile(filepath.Join(outputDir, "product_2_raw.txt"))
	require.NoError(t, readErr)
	assert.Equal(t, "Sorry, I cannot help with that.", string(raw))

	_, statErr := os.Stat(filepath.Join(outputDir, "product_2.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcessSingle_UnparseableWithoutRaw(t *testing.T) {
	t.Parallel()

	completer := &mockCompleter{content: "no json", err: nil, requests: nil}
	generator, outputDir := newGenerator(t, completer, &mockEncoder{failFor: nil}, false)

	_, err := generator.ProcessSingle(context.Background(), product.Samples()[1])
	require.ErrorIs(t, err, listing.ErrUnparseableResponse)

	_, statErr := os.Stat(filepath.Join(outputDir, "product_2_raw.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcessBatch(t *testing.T) {
	t.Parallel()

	samples := product.Samples()
	encoder := &mockEncoder{failFor: map[string]bool{samples[1].ImagePath: true}}
	completer := &mockCompleter{content: validListingJSON, err: nil, requests: nil}
	generator, outputDir := newGenerator(t, completer, encoder, false)

	result, err := generator.ProcessBatch(context.Background(), samples)
	require.NoError(t, err)

	assert.Len(t, result.Listings, 2)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "2", result.Failed[0].ID.String())
	assert.Contains(t, result.Failed[0].Error, "image encoding failed")

	summary := result.Summary
	assert.Equal(t, 3, summary.TotalProducts)
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, "66.7%", summary.SuccessRate)
	assert.Equal(t, 840, summary.TotalTokens)
	assert.Equal(t, 2, summary.TokenStats.Count)
	assert.InEpsilon(t, 420.0, summary.TokenStats.Mean, 0.0001)
	assert.InEpsilon(t, 840*0.00015/1000, summary.EstimatedCostUSD, 0.0001)
	assert.NotEmpty(t, summary.RunID)

	assert.Equal(t, filepath.Join(outputDir, "summary.json"), result.SummaryPath)

	var saved map[string]any

	data, readErr := os.ReadFile(result.SummaryPath)
	require.NoError(t, readErr)
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, "66.7%", saved["success_rate"])
	assert.Len(t, saved["failed_products"], 1)

	// Two API calls: the product whose image failed never reached the API.
	assert.Len(t, completer.requests, 2)
}

func TestProcessBatch_Empty(t *testing.T) {
	t.Parallel()

	completer := &mockCompleter{content: validListingJSON, err: nil, requests: nil}
	generator, _ := newGenerator(t, completer, &mockEncoder{failFor: nil}, false)

	result, err := generator.ProcessBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "0%", result.Summary.SuccessRate)
	assert.True(t, result.Summary.TokenStats.IsEmpty())
}

func TestProcessBatch_CancelledContext(t *testing.T) {
	t.Parallel()

	outputDir := filepath.Join(t.TempDir(), "out")
	files, err := listing.NewFileManager(outputDir)
	require.NoError(t, err)

	completer := &mockCompleter{content: validListingJSON, err: nil, requests: nil}
	vision := listing.NewVisionClient(completer, listing.VisionSettings{Model: "gpt-4o-mini", Detail: "", MaxTokens: 800, Temperature: 0.7})
	generator := listing.NewGenerator(vision, &mockEncoder{failFor: nil}, files, listing.GeneratorOptions{
		Out:              nil,
		Prompt:           nil,
		Model:            "gpt-4o-mini",
		BatchDelay:       time.Hour,
		SaveRawResponses: false,
	}, newTestLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = generator.ProcessBatch(ctx, product.Samples())
	require.Error(t, err)
	assert.Len(t, completer.requests, 1)
}
