// Package apiclient builds the OpenAI-compatible client shared by the
// listing, podcast and speech service commands.
package apiclient

import (
	"net/http"
	"time"

	"github.com/book-expert/mediagen/internal/config"
	"github.com/sashabaranov/go-openai"
)

// New builds a go-openai client for apiKey. An empty baseURL uses the public
// endpoint; timeout bounds every HTTP request.
func New(apiKey, baseURL string, timeout time.Duration) *openai.Client {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	return openai.NewClientWithConfig(clientConfig)
}

// FromConfig builds the client from the [openai] section, resolving the key
// through the environment and the optional env file.
func FromConfig(cfg config.OpenAIConfig) (*openai.Client, error) {
	apiKey, err := cfg.LoadAPIKey()
	if err != nil {
		return nil, err
	}

	return New(apiKey, cfg.BaseURL, cfg.Timeout()), nil
}
