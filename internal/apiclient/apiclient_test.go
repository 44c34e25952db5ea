package apiclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/book-expert/mediagen/internal/apiclient"
	"github.com/book-expert/mediagen/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModelsServer(t *testing.T, wantKey string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, "Bearer "+wantKey, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"tts-1","object":"model"}]}`))
	}))
	t.Cleanup(server.Close)

	return server
}

func TestNew_UsesBaseURL(t *testing.T) {
	t.Parallel()

	server := newModelsServer(t, "sk-test")

	client := apiclient.New("sk-test", server.URL+"/v1", 5*time.Second)

	models, err := client.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models.Models, 1)
	assert.Equal(t, "tts-1", models.Models[0].ID)
}

func TestFromConfig(t *testing.T) {
	t.Setenv("MEDIAGEN_APICLIENT_TEST_KEY", "sk-config")

	server := newModelsServer(t, "sk-config")

	cfg := config.Default().OpenAI
	cfg.APIKeyEnv = "MEDIAGEN_APICLIENT_TEST_KEY"
	cfg.EnvFile = filepath.Join(t.TempDir(), "absent.env")
	cfg.BaseURL = server.URL + "/v1"

	client, err := apiclient.FromConfig(cfg)
	require.NoError(t, err)

	_, err = client.ListModels(context.Background())
	require.NoError(t, err)
}

func TestFromConfig_MissingKey(t *testing.T) {
	t.Setenv("MEDIAGEN_APICLIENT_TEST_KEY", "")

	cfg := config.Default().OpenAI
	cfg.APIKeyEnv = "MEDIAGEN_APICLIENT_TEST_KEY"
	cfg.EnvFile = filepath.Join(t.TempDir(), "absent.env")

	_, err := apiclient.FromConfig(cfg)
	require.ErrorIs(t, err, config.ErrAPIKeyMissing)
}
