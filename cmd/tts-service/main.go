// main package for the tts-service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/logger"
	"github.com/book-expert/mediagen/internal/apiclient"
	"github.com/book-expert/mediagen/internal/config"
	"github.com/book-expert/mediagen/internal/objectstore"
	"github.com/book-expert/mediagen/internal/tts"
	"github.com/book-expert/mediagen/internal/worker"
	"github.com/nats-io/nats.go"
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "tts-service.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

// newProcessor wires the speech client, engine and processor from config.
func newProcessor(cfg *config.Config, log *logger.Logger) (*tts.Processor, error) {
	apiClient, err := apiclient.FromConfig(cfg.OpenAI)
	if err != nil {
		return nil, fmt.Errorf("failed to load API key: %w", err)
	}

	client := tts.NewClient(apiClient, tts.SpeechRequest{
		Text:   "",
		Voice:  cfg.Podcast.Voice,
		Model:  cfg.Podcast.Model,
		Format: tts.DefaultFormat,
		Speed:  cfg.Podcast.Speed,
	})

	engine := tts.NewEngine(client, tts.EngineOptions{
		Voice:      cfg.Podcast.Voice,
		Model:      cfg.Podcast.Model,
		Speed:      cfg.Podcast.Speed,
		ChunkLimit: cfg.Podcast.ChunkLimit,
		Delay:      0,
	}, log)

	return tts.NewProcessor(engine, log), nil
}

func run(ctx context.Context) error {
	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	// 2. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	_ = bootstrapLog.Close()

	// 3. Initialize the final logger based on the loaded configuration
	log, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := log.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	// 4. Connect to NATS and bind the audio bucket
	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		log.Error("Failed to connect to NATS at %s: %v", cfg.NATS.URL, err)

		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		return fmt.Errorf("failed to open object store: %w", err)
	}

	// 5. Build the speech pipeline and start the worker
	processor, err := newProcessor(cfg, log)
	if err != nil {
		log.Error("Failed to build speech processor: %v", err)

		return err
	}

	natsWorker, err := worker.NewNatsWorker(
		natsConnection, jetstreamContext, cfg.NATS.TextProcessedSubject, store, processor, log,
	)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	log.System("TTS-Service initialized. Listening for jobs on subject: %s", cfg.NATS.TextProcessedSubject)

	runErr := natsWorker.Run(ctx)
	if runErr != nil {
		return fmt.Errorf("worker stopped: %w", runErr)
	}

	log.System("TTS-Service shut down.")

	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := run(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
