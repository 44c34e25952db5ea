// Package tts synthesizes speech through an OpenAI-compatible speech endpoint
// and writes the resulting MP3 audio to disk.
package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
)

// Speech API limits and defaults.
const (
	MaxInputLength = 4096
	MinSpeed       = 0.25
	MaxSpeed       = 4.0
	DefaultModel   = string(openai.TTSModel1)
	DefaultVoice   = "alloy"
	DefaultFormat  = string(openai.SpeechResponseFormatMp3)
	DefaultSpeed   = 1.0
)

// Error messages.
const (
	errFmtTextTooLong   = "%w: %d characters exceeds the %d character limit"
	errFmtInvalidSpeed  = "%w: %.2f is outside %.2f-%.2f"
	errFmtUnknownVoice  = "%w: %q"
	errFmtSpeechRequest = "speech request failed: %w"
	errFmtReadAudio     = "failed to read audio response: %w"
)

var (
	// ErrTextEmpty is returned when there is no text to synthesize.
	ErrTextEmpty = errors.New("text cannot be empty")
	// ErrTextTooLong is returned when text exceeds the API input limit.
	ErrTextTooLong = errors.New("text too long")
	// ErrInvalidSpeed is returned when speed is outside the accepted range.
	ErrInvalidSpeed = errors.New("invalid speed")
	// ErrUnknownVoice is returned for a voice the API does not offer.
	ErrUnknownVoice = errors.New("unknown voice")
	// ErrEmptyAudio is returned when the API responds without audio data.
	ErrEmptyAudio = errors.New("received empty audio data")
)

// Voices lists the voice names accepted by the speech endpoint.
var Voices = []string{
	"alloy", "ash", "ballad", "coral", "echo", "fable",
	"onyx", "nova", "sage", "shimmer", "verse",
}

// SpeechCreator is the subset of the OpenAI client used for synthesis.
type SpeechCreator interface {
	CreateSpeech(ctx context.Context, request openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// SpeechRequest describes one synthesis call. Zero-valued fields take the
// client defaults.
type SpeechRequest struct {
	Text   string
	Voice  string
	Model  string
	Format string
	Speed  float64
}

// Client validates speech requests and sends them to the API.
type Client struct {
	api      SpeechCreator
	defaults SpeechRequest
}

// NewClient creates a Client. Empty fields in defaults are filled with the
// package defaults.
func NewClient(api SpeechCreator, defaults SpeechRequest) *Client {
	if defaults.Model == "" {
		defaults.Model = DefaultModel
	}

	if defaults.Voice == "" {
		defaults.Voice = DefaultVoice
	}

	if defaults.Format == "" {
		defaults.Format = DefaultFormat
	}

	if defaults.Speed == 0 {
		defaults.Speed = DefaultSpeed
	}

	return &Client{
		api:      api,
		defaults: defaults,
	}
}

// Defaults returns the settings applied to zero-valued request fields.
func (c *Client) Defaults() SpeechRequest {
	return c.defaults
}

// GenerateSpeech synthesizes req.Text and returns the encoded audio.
func (c *Client) GenerateSpeech(ctx context.Context, req SpeechRequest) ([]byte, error) {
	req = c.withDefaults(req)

	validateErr := ValidateRequest(req)
	if validateErr != nil {
		return nil, validateErr
	}

	response, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(req.Model),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(req.Voice),
		ResponseFormat: openai.SpeechResponseFormat(req.Format),
		Speed:          req.Speed,
	})
	if err != nil {
		return nil, fmt.Errorf(errFmtSpeechRequest, err)
	}
	defer response.Close()

	audioData, readErr := io.ReadAll(response)
	if readErr != nil {
		return nil, fmt.Errorf(errFmtReadAudio, readErr)
	}

	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	return audioData, nil
}

// ValidateRequest checks a fully populated request against the API limits.
func ValidateRequest(req SpeechRequest) error {
	if req.Text == "" {
		return ErrTextEmpty
	}

	length := utf8.RuneCountInString(req.Text)
	if length > MaxInputLength {
		return fmt.Errorf(errFmtTextTooLong, ErrTextTooLong, length, MaxInputLength)
	}

	if req.Speed < MinSpeed || req.Speed > MaxSpeed {
		return fmt.Errorf(errFmtInvalidSpeed, ErrInvalidSpeed, req.Speed, MinSpeed, MaxSpeed)
	}

	if !IsValidVoice(req.Voice) {
		return fmt.Errorf(errFmtUnknownVoice, ErrUnknownVoice, req.Voice)
	}

	return nil
}

// IsValidVoice reports whether voice is offered by the speech endpoint.
func IsValidVoice(voice string) bool {
	return slices.Contains(Voices, voice)
}

func (c *Client) withDefaults(req SpeechRequest) SpeechRequest {
	if req.Voice == "" {
		req.Voice = c.defaults.Voice
	}

	if req.Model == "" {
		req.Model = c.defaults.Model
	}

	if req.Format == "" {
		req.Format = c.defaults.Format
	}

	if req.Speed == 0 {
		req.Speed = c.defaults.Speed
	}

	return req
}
