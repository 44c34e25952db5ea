// Package worker_test tests the NATS worker for the speech service.
package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/mediagen/internal/core"
	"github.com/book-expert/mediagen/internal/worker"
	"github.com/google/uuid"

	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSubject    = "test_subject"
	replyTimeout   = 5 * time.Second
	noReplyTimeout = 500 * time.Millisecond
)

var (
	errMockDownload = errors.New("mock download error")
	errMockUpload   = errors.New("mock upload error")
	errMockProcess  = errors.New("mock process error")
)

// mockObjectStore is a mock implementation of the ObjectStore interface.
type mockObjectStore struct {
	mu                 sync.Mutex
	downloadShouldFail bool
	uploadShouldFail   bool
	text               []byte
	downloadedKey      string
	uploadedKey        string
	uploadedData       []byte
}

func (m *mockObjectStore) Download(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.downloadShouldFail {
		return nil, errMockDownload
	}

	m.downloadedKey = key

	return m.text, nil
}

func (m *mockObjectStore) Upload(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.uploadShouldFail {
		return errMockUpload
	}

	m.uploadedKey = key
	m.uploadedData = data

	return nil
}

func (m *mockObjectStore) snapshot() (string, string, []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.downloadedKey, m.uploadedKey, m.uploadedData
}

// mockTTSProcessor is a mock implementation of the TTSProcessor interface.
type mockTTSProcessor struct {
	mu                sync.Mutex
	processShouldFail bool
	calls             int
	processedText     []byte
	processedCfg      core.TTSConfig
	config            core.TTSConfig
}

func (m *mockTTSProcessor) GetConfig() core.TTSConfig {
	return m.config
}

func (m *mockTTSProcessor) Process(_ context.Context, text []byte, cfg core.TTSConfig) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++

	if m.processShouldFail {
		return nil, errMockProcess
	}

	m.processedText = text
	m.processedCfg = cfg

	return []byte("sample audio"), nil
}

func (m *mockTTSProcessor) snapshot() (int, []byte, core.TTSConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls, m.processedText, m.processedCfg
}

func createTestNatsClient(t *testing.T) (*nats.Conn, func()) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	server := test.RunServer(&opts)

	natsConnection, err := nats.Connect(server.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	cleanup := func() {
		natsConnection.Close()
		server.Shutdown()
	}

	return natsConnection, cleanup
}

func setupTest(t *testing.T, mockStore *mockObjectStore, mockProcessor *mockTTSProcessor) *nats.Conn {
	t.Helper()

	natsConnection, natsCleanup := createTestNatsClient(t)
	t.Cleanup(natsCleanup)

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	testLogger, err := logger.New(t.TempDir(), "worker-test.log")
	require.NoError(t, err)

	workerInstance, err := worker.NewNatsWorker(
		natsConnection, jetstreamContext, testSubject, mockStore, mockProcessor, testLogger,
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)

	go func() {
		errChan <- workerInstance.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-errChan, "worker.Run should not error on graceful shutdown")
	})

	// Run subscribes asynchronously.
	require.Eventually(t, func() bool {
		return natsConnection.NumSubscriptions() > 0
	}, time.Second, 10*time.Millisecond)
	require.NoError(t, natsConnection.Flush())

	return natsConnection
}

func newMocks() (*mockObjectStore, *mockTTSProcessor) {
	mockStore := &mockObjectStore{
		mu:                 sync.Mutex{},
		downloadShouldFail: false,
		uploadShouldFail:   false,
		text:               []byte("sample text"),
		downloadedKey:      "",
		uploadedKey:        "",
		uploadedData:       nil,
	}
	mockProcessor := &mockTTSProcessor{
		mu:                sync.Mutex{},
		processShouldFail: false,
		calls:             0,
		processedText:     nil,
		processedCfg:      core.TTSConfig{Model: "", Voice: "", Format: "", Speed: 0},
		config:            core.TTSConfig{Model: "tts-1", Voice: "nova", Format: "mp3", Speed: 0.75},
	}

	return mockStore, mockProcessor
}

func newEvent(voice string) *events.TextProcessedEvent {
	return &events.TextProcessedEvent{
		Header: events.EventHeader{
			Timestamp:  time.Now(),
			WorkflowID: uuid.NewString(),
			EventID:    uuid.NewString(),
			UserID:     "",
			TenantID:   "",
		},
		TextKey:           "test-text-key",
		PNGKey:            "",
		PageNumber:        3,
		TotalPages:        10,
		Voice:             voice,
		Seed:              0,
		NGL:               0,
		TopP:              0,
		RepetitionPenalty: 0,
		Temperature:       0,
	}
}

func request(t *testing.T, natsConnection *nats.Conn, event any, timeout time.Duration) (*nats.Msg, error) {
	t.Helper()

	eventData, err := json.Marshal(event)
	require.NoError(t, err)

	return natsConnection.Request(testSubject, eventData, timeout)
}

func TestMessageHandler_Success(t *testing.T) {
	t.Parallel()

	mockStore, mockProcessor := newMocks()
	natsConnection := setupTest(t, mockStore, mockProcessor)

	testEvent := newEvent("")

	replyMsg, err := request(t, natsConnection, testEvent, replyTimeout)
	require.NoError(t, err, "Request should succeed and receive a reply")

	var replyEvent events.AudioChunkCreatedEvent

	err = json.Unmarshal(replyMsg.Data, &replyEvent)
	require.NoError(t, err)

	downloadedKey, uploadedKey, uploadedData := mockStore.snapshot()
	_, processedText, processedCfg := mockProcessor.snapshot()

	assert.Equal(t, "test-text-key", downloadedKey)
	assert.Equal(t, []byte("sample text"), processedText)
	assert.Equal(t, "nova", processedCfg.Voice)
	assert.InDelta(t, 0.75, processedCfg.Speed, 0.0001)
	assert.Regexp(t, `^[0-9a-f-]{36}\.mp3$`, uploadedKey)
	assert.Equal(t, []byte("sample audio"), uploadedData)

	assert.Equal(t, uploadedKey, replyEvent.AudioKey)
	assert.Equal(t, testEvent.Header.WorkflowID, replyEvent.Header.WorkflowID)
	assert.Equal(t, 3, replyEvent.PageNumber)
	assert.Equal(t, 10, replyEvent.TotalPages)
}

func TestMessageHandler_EventVoiceOverridesDefault(t *testing.T) {
	t.Parallel()

	mockStore, mockProcessor := newMocks()
	natsConnection := setupTest(t, mockStore, mockProcessor)

	_, err := request(t, natsConnection, newEvent("shimmer"), replyTimeout)
	require.NoError(t, err)

	_, _, processedCfg := mockProcessor.snapshot()
	assert.Equal(t, "shimmer", processedCfg.Voice)
	assert.Equal(t, "tts-1", processedCfg.Model)
}

func TestMessageHandler_NoReplyOnFailure(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		event         any
		configure     func(*mockObjectStore, *mockTTSProcessor)
		wantProcessed int
	}{
		{
			name:          "unsupported voice",
			event:         newEvent("robot"),
			configure:     func(*mockObjectStore, *mockTTSProcessor) {},
			wantProcessed: 0,
		},
		{
			name:          "malformed event",
			event:         map[string]any{"text_key": 42},
			configure:     func(*mockObjectStore, *mockTTSProcessor) {},
			wantProcessed: 0,
		},
		{
			name:  "download failure",
			event: newEvent(""),
			configure: func(store *mockObjectStore, _ *mockTTSProcessor) {
				store.downloadShouldFail = true
			},
			wantProcessed: 0,
		},
		{
			name:  "empty text",
			event: newEvent(""),
			configure: func(store *mockObjectStore, _ *mockTTSProcessor) {
				store.text = nil
			},
			wantProcessed: 0,
		},
		{
			name:  "process failure",
			event: newEvent(""),
			configure: func(_ *mockObjectStore, processor *mockTTSProcessor) {
				processor.processShouldFail = true
			},
			wantProcessed: 1,
		},
		{
			name:  "upload failure",
			event: newEvent(""),
			configure: func(store *mockObjectStore, _ *mockTTSProcessor) {
				store.uploadShouldFail = true
			},
			wantProcessed: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mockStore, mockProcessor := newMocks()
			tc.configure(mockStore, mockProcessor)

			natsConnection := setupTest(t, mockStore, mockProcessor)

			_, err := request(t, natsConnection, tc.event, noReplyTimeout)
			require.ErrorIs(t, err, nats.ErrTimeout)

			calls, _, _ := mockProcessor.snapshot()
			assert.Equal(t, tc.wantProcessed, calls)

			_, uploadedKey, _ := mockStore.snapshot()
			assert.Empty(t, uploadedKey)
		})
	}
}
