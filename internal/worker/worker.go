// Package worker provides a NATS worker that turns processed page text into
// speech audio.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/mediagen/internal/core"
	"github.com/book-expert/mediagen/internal/tts"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	handleMessageTimeout = 30 * time.Second
	audioKeyExtension    = ".mp3"
)

var (
	// ErrTextKeyEmpty indicates that the event carries no text object key.
	ErrTextKeyEmpty = errors.New("text key cannot be empty")
	// ErrTextEmpty indicates that the downloaded text object is empty.
	ErrTextEmpty = errors.New("downloaded text is empty")
	// ErrUnsupportedVoice indicates that the provided voice is not supported.
	ErrUnsupportedVoice = errors.New("unsupported voice")
	// ErrSpeedRange indicates that the speed is outside the accepted range.
	ErrSpeedRange = errors.New("speed out of range")
)

// NatsWorker listens for TextProcessedEvents on a NATS subject, synthesizes
// the referenced text and replies with an AudioChunkCreatedEvent.
type NatsWorker struct {
	natsConnection   *nats.Conn
	jetstreamContext nats.JetStreamContext
	subject          string
	store            core.ObjectStore
	processor        core.TTSProcessor
	log              *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	jetstreamContext nats.JetStreamContext,
	subject string,
	store core.ObjectStore,
	processor core.TTSProcessor,
	log *logger.Logger,
) (*NatsWorker, error) {
	return &NatsWorker{
		natsConnection:   natsConnection,
		jetstreamContext: jetstreamContext,
		subject:          subject,
		store:            store,
		processor:        processor,
		log:              log,
	}, nil
}

// Run subscribes to the subject and processes messages until ctx is done.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	w.log.Info("Listening for speech jobs on %s", w.subject)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	event, err := w.parseAndValidateEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse and validate event: %v", err)

		return
	}

	audioKey, processErr := w.processTTSJob(ctx, event)
	if processErr != nil {
		w.log.Error("Failed to process speech job for workflow %s: %v", event.Header.WorkflowID, processErr)

		return
	}

	replyEvent := &events.AudioChunkCreatedEvent{
		Header:     event.Header,
		AudioKey:   audioKey,
		PageNumber: event.PageNumber,
		TotalPages: event.TotalPages,
	}

	err = w.publishReplyEvent(msg, replyEvent)
	if err != nil {
		w.log.Error("Failed to publish reply event for workflow %s: %v", event.Header.WorkflowID, err)
	}
}

// processTTSJob downloads the page text, synthesizes it and uploads the audio.
func (w *NatsWorker) processTTSJob(ctx context.Context, event *events.TextProcessedEvent) (string, error) {
	ttsCfg := w.jobConfig(event)

	validationErr := validateTTSConfig(ttsCfg)
	if validationErr != nil {
		return "", validationErr
	}

	textData, err := w.store.Download(ctx, event.TextKey)
	if err != nil {
		return "", fmt.Errorf("failed to download text data for key '%s': %w", event.TextKey, err)
	}

	if len(textData) == 0 {
		return "", fmt.Errorf("%w: key '%s'", ErrTextEmpty, event.TextKey)
	}

	audioData, err := w.processor.Process(ctx, textData, ttsCfg)
	if err != nil {
		return "", fmt.Errorf("failed to process text to speech: %w", err)
	}

	audioKey := uuid.NewString() + audioKeyExtension

	err = w.store.Upload(ctx, audioKey, audioData)
	if err != nil {
		return "", fmt.Errorf("failed to upload audio data for key '%s': %w", audioKey, err)
	}

	w.log.Info("Page %d/%d of workflow %s synthesized to %s",
		event.PageNumber, event.TotalPages, event.Header.WorkflowID, audioKey)

	return audioKey, nil
}

// jobConfig merges the event's voice with the processor defaults.
func (w *NatsWorker) jobConfig(event *events.TextProcessedEvent) core.TTSConfig {
	cfg := w.processor.GetConfig()

	if event.Voice != "" {
		cfg.Voice = event.Voice
	}

	return cfg
}

// publishReplyEvent marshals and responds with the AudioChunkCreatedEvent.
func (w *NatsWorker) publishReplyEvent(msg *nats.Msg, replyEvent *events.AudioChunkCreatedEvent) error {
	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func (w *NatsWorker) parseAndValidateEvent(msg *nats.Msg) (*events.TextProcessedEvent, error) {
	var event events.TextProcessedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if event.TextKey == "" {
		return nil, ErrTextKeyEmpty
	}

	return &event, nil
}

// validateTTSConfig rejects voices and speeds the speech endpoint does not accept.
// Zero values are left for the processor to default.
func validateTTSConfig(cfg core.TTSConfig) error {
	if cfg.Voice != "" && !tts.IsValidVoice(cfg.Voice) {
		return fmt.Errorf("%w: '%s'", ErrUnsupportedVoice, cfg.Voice)
	}

	if cfg.Speed != 0 && (cfg.Speed < tts.MinSpeed || cfg.Speed > tts.MaxSpeed) {
		return fmt.Errorf("%w: got %f", ErrSpeedRange, cfg.Speed)
	}

	return nil
}
