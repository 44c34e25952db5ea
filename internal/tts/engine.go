package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/mediagen/internal/fileutil"
	"github.com/book-expert/mediagen/internal/tts/text"
	"golang.org/x/time/rate"
)

// Static errors.
var (
	ErrChunksPathEmpty = errors.New("chunks path cannot be empty")
	ErrOutputDirEmpty  = errors.New("output directory cannot be empty")
	ErrOutputPathEmpty = errors.New("output path cannot be empty")
	ErrNoChunksFound   = errors.New("no chunks found")
)

const (
	outputFileFormat            = "chunk_%04d.mp3"
	errFmtChunkFailed           = "chunk %d failed: %w"
	errFmtReadChunks            = "failed to read chunks: %w"
	errFmtGenerateSpeech        = "failed to generate speech: %w"
	logFmtGeneratedAudio        = "Generated audio: %s (%s)"
	logFmtChunkProcessingFailed = "Failed to process chunk %d: %v"
	logFmtChunkProcessed        = "Processed chunk %d/%d"
	logFmtLongText              = "Synthesizing %d chunks for %s"
)

// EngineOptions configures an Engine.
type EngineOptions struct {
	Voice string
	Model string
	// Speed of zero uses the client default.
	Speed float64
	// ChunkLimit bounds the characters sent per request by ProcessLongText.
	ChunkLimit int
	// Delay spaces the start of consecutive requests. Zero disables pacing.
	Delay time.Duration
}

// Engine turns text into MP3 files, one request at a time.
type Engine struct {
	client     *Client
	limiter    *rate.Limiter
	logger     *logger.Logger
	voice      string
	model      string
	speed      float64
	chunkLimit int
}

// NewEngine creates an Engine over client.
func NewEngine(client *Client, opts EngineOptions, log *logger.Logger) *Engine {
	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}

	chunkLimit := opts.ChunkLimit
	if chunkLimit <= 0 || chunkLimit > MaxInputLength {
		chunkLimit = text.DefaultChunkLimit
	}

	return &Engine{
		client:     client,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     log,
		voice:      opts.Voice,
		model:      opts.Model,
		speed:      opts.Speed,
		chunkLimit: chunkLimit,
	}
}

// WithSpeed returns a copy of the engine that speaks at speed. The copy
// shares the request pacing of the original.
func (e *Engine) WithSpeed(speed float64) *Engine {
	clone := *e
	clone.speed = speed

	return &clone
}

// WithVoice returns a copy of the engine that uses voice.
func (e *Engine) WithVoice(voice string) *Engine {
	clone := *e
	clone.voice = voice

	return &clone
}

// WithModel returns a copy of the engine that uses model.
func (e *Engine) WithModel(model string) *Engine {
	clone := *e
	clone.model = model

	return &clone
}

// Synthesize returns the audio for text of any length. Text over the chunk
// limit is split on sentence boundaries and the MP3 streams are joined.
func (e *Engine) Synthesize(ctx context.Context, input string) ([]byte, error) {
	chunks := text.ChunkText(input, e.chunkLimit)
	if len(chunks) == 0 {
		return nil, ErrTextEmpty
	}

	var audio bytes.Buffer

	for _, chunk := range chunks {
		audioData, err := e.generate(ctx, chunk)
		if err != nil {
			return nil, err
		}

		audio.Write(audioData)
	}

	return audio.Bytes(), nil
}

// ProcessSingleChunk synthesizes text in one request and writes the audio to
// outputPath, creating parent directories as needed.
func (e *Engine) ProcessSingleChunk(ctx context.Context, input, outputPath string) error {
	if input == "" {
		return ErrTextEmpty
	}

	if outputPath == "" {
		return ErrOutputPathEmpty
	}

	audioData, err := e.generate(ctx, input)
	if err != nil {
		return err
	}

	return e.write(outputPath, audioData)
}

// ProcessLongText synthesizes text of any length into a single file.
func (e *Engine) ProcessLongText(ctx context.Context, input, outputPath string) error {
	if outputPath == "" {
		return ErrOutputPathEmpty
	}

	e.logger.Info(logFmtLongText, len(text.ChunkText(input, e.chunkLimit)), outputPath)

	audioData, err := e.Synthesize(ctx, input)
	if err != nil {
		return err
	}

	return e.write(outputPath, audioData)
}

// ProcessChunks reads a JSON array of strings from chunksPath and writes
// chunk_0001.mp3, chunk_0002.mp3, ... to outputDir. A failed chunk is logged
// and processing continues; all failures are returned joined.
func (e *Engine) ProcessChunks(ctx context.Context, chunksPath, outputDir string) error {
	if chunksPath == "" {
		return ErrChunksPathEmpty
	}

	if outputDir == "" {
		return ErrOutputDirEmpty
	}

	var chunks []string

	loadErr := fileutil.LoadJSON(chunksPath, &chunks)
	if loadErr != nil {
		return fmt.Errorf(errFmtReadChunks, loadErr)
	}

	if len(chunks) == 0 {
		return fmt.Errorf("%w in %s", ErrNoChunksFound, chunksPath)
	}

	dirErr := fileutil.EnsureDir(outputDir)
	if dirErr != nil {
		return dirErr
	}

	var failures []error

	for index, chunk := range chunks {
		outputPath := filepath.Join(outputDir, fmt.Sprintf(outputFileFormat, index+1))

		err := e.ProcessSingleChunk(ctx, chunk, outputPath)
		if err != nil {
			e.logger.Error(logFmtChunkProcessingFailed, index+1, err)
			failures = append(failures, fmt.Errorf(errFmtChunkFailed, index+1, err))

			if ctx.Err() != nil {
				break
			}

			continue
		}

		e.logger.Info(logFmtChunkProcessed, index+1, len(chunks))
	}

	return errors.Join(failures...)
}

func (e *Engine) generate(ctx context.Context, input string) ([]byte, error) {
	waitErr := e.limiter.Wait(ctx)
	if waitErr != nil {
		return nil, fmt.Errorf(errFmtGenerateSpeech, waitErr)
	}

	audioData, err := e.client.GenerateSpeech(ctx, SpeechRequest{
		Text:   input,
		Voice:  e.voice,
		Model:  e.model,
		Format: "",
		Speed:  e.speed,
	})
	if err != nil {
		return nil, fmt.Errorf(errFmtGenerateSpeech, err)
	}

	return audioData, nil
}

func (e *Engine) write(outputPath string, audioData []byte) error {
	writeErr := fileutil.SaveAudio(outputPath, audioData)
	if writeErr != nil {
		return fmt.Errorf("failed to write audio file: %w", writeErr)
	}

	e.logger.Info(logFmtGeneratedAudio, outputPath, fileutil.FormatFileSize(int64(len(audioData))))

	return nil
}
