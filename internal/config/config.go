// Package config provides the configuration structure for the mediagen tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Default values applied to zero-valued fields.
const (
	defaultAPIKeyEnv          = "OPENAI_API_KEY"
	defaultEnvFile            = ".env"
	defaultTimeoutSeconds     = 30
	defaultListingModel       = "gpt-4o-mini"
	defaultMaxTokens          = 800
	defaultTemperature        = 0.7
	defaultMaxImageSize       = 512
	defaultImageQuality       = 85
	defaultImageTimeout       = 10
	defaultImageDetail        = "high"
	defaultBatchDelayMillis   = 1000
	defaultListingOutputDir   = "generated_listings"
	defaultSpeechModel        = "tts-1"
	defaultVoice              = "nova"
	defaultSpeed              = 0.75
	defaultChunkLimit         = 1800
	defaultPodcastInputDir    = "1. Input"
	defaultPodcastOutputDir   = "ironhack_mindfulness_podcast_final"
	defaultFFmpegPath         = "ffmpeg"
	defaultManifestName       = "ffmpeg_filelist.txt"
	defaultFinalName          = "Ironhack_Mindfulness_Podcast_Final.mp3"
	defaultLogsDir            = "logs"
	defaultAudioBucket        = "PODCAST_AUDIO"
	defaultTextSubject        = "text.processed"
	defaultNATSURL            = "nats://127.0.0.1:4222"
	defaultAffirmationDelayMs = 500
	defaultAffirmationPauseMs = 5000
	defaultSettingsFile       = "settings.json"
)

// ErrAPIKeyMissing is returned when no API credential could be found.
var ErrAPIKeyMissing = errors.New("API key not found in environment")

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                      string `toml:"url"`
	TTStreamName             string `toml:"tts_stream_name"`
	TTSConsumerName          string `toml:"tts_consumer_name"`
	TextProcessedSubject     string `toml:"text_processed_subject"`
	AudioChunkCreatedSubject string `toml:"audio_chunk_created_subject"`
	AudioObjectStoreBucket   string `toml:"audio_object_store_bucket"`
}

// OpenAIConfig holds the API credential lookup and transport settings.
type OpenAIConfig struct {
	APIKeyEnv      string `toml:"api_key_env"`
	EnvFile        string `toml:"env_file"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ListingConfig holds the settings for the product listing generator.
type ListingConfig struct {
	Model            string  `toml:"model"`
	MaxTokens        int     `toml:"max_tokens"`
	Temperature      float64 `toml:"temperature"`
	ImageDetail      string  `toml:"image_detail"`
	MaxImageSize     int     `toml:"max_image_size"`
	ImageQuality     int     `toml:"image_quality"`
	ImageTimeout     int     `toml:"image_timeout_seconds"`
	BatchDelayMillis int     `toml:"batch_delay_ms"`
	OutputDir        string  `toml:"output_dir"`
	SaveRawResponses bool    `toml:"save_raw_responses"`
}

// PodcastConfig holds the settings for the meditation podcast generator.
type PodcastConfig struct {
	Model              string             `toml:"model"`
	Voice              string             `toml:"voice"`
	Speed              float64            `toml:"speed"`
	Speeds             map[string]float64 `toml:"speeds"`
	SettingsFile       string             `toml:"settings_file"`
	InputDir           string             `toml:"input_dir"`
	OutputDir          string             `toml:"output_dir"`
	ChunkLimit         int                `toml:"chunk_limit"`
	AffirmationDelayMs int                `toml:"affirmation_delay_ms"`
	AffirmationPauseMs int                `toml:"affirmation_pause_ms"`
	FFmpegPath         string             `toml:"ffmpeg_path"`
	ManifestName       string             `toml:"manifest_name"`
	FinalName          string             `toml:"final_name"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS    NATSConfig    `toml:"nats"`
	OpenAI  OpenAIConfig  `toml:"openai"`
	Listing ListingConfig `toml:"listing"`
	Podcast PodcastConfig `toml:"podcast"`
	Paths   PathsConfig   `toml:"paths"`
}

// Load loads the configuration for the tts-service through the central configurator.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.ApplyDefaults()

	return &cfg, nil
}

// LoadFile reads a TOML file into a Config. An empty path yields the defaults.
func LoadFile(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, readErr)
		}

		unmarshalErr := toml.Unmarshal(data, &cfg)
		if unmarshalErr != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, unmarshalErr)
		}
	}

	cfg.ApplyDefaults()

	return &cfg, nil
}

// Default returns a Config with every field set to its default.
func Default() *Config {
	var cfg Config

	cfg.ApplyDefaults()

	return &cfg
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *Config) ApplyDefaults() {
	c.applyOpenAIDefaults()
	c.applyListingDefaults()
	c.applyPodcastDefaults()

	setString(&c.Paths.BaseLogsDir, defaultLogsDir)
	setString(&c.NATS.URL, defaultNATSURL)
	setString(&c.NATS.TextProcessedSubject, defaultTextSubject)
	setString(&c.NATS.AudioObjectStoreBucket, defaultAudioBucket)
}

// Timeout returns the per-request timeout for API calls.
func (c OpenAIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BatchDelay returns the fixed delay between products in a batch. A negative
// setting disables the delay.
func (c ListingConfig) BatchDelay() time.Duration {
	return millis(c.BatchDelayMillis)
}

// SamplingTemperature returns the temperature sent with vision requests. A
// negative setting requests deterministic sampling.
func (c ListingConfig) SamplingTemperature() float64 {
	return max(c.Temperature, 0)
}

// ImageFetchTimeout returns the timeout for downloading product images.
func (c ListingConfig) ImageFetchTimeout() time.Duration {
	return time.Duration(c.ImageTimeout) * time.Second
}

// AffirmationDelay returns the fixed delay between affirmation requests. A
// negative setting disables the delay.
func (c PodcastConfig) AffirmationDelay() time.Duration {
	return millis(c.AffirmationDelayMs)
}

// AffirmationPause returns the silence inserted between affirmations when
// combining. A negative setting disables the pause.
func (c PodcastConfig) AffirmationPause() time.Duration {
	return millis(c.AffirmationPauseMs)
}

// SpeedFor returns the speed override for a podcast part, or the global speed.
func (c PodcastConfig) SpeedFor(part string) float64 {
	if speed, ok := c.Speeds[part]; ok && speed > 0 {
		return speed
	}

	return c.Speed
}

// LoadAPIKey loads the env file, if present, and returns the credential.
// A missing env file is not an error; a missing key returns ErrAPIKeyMissing.
func (c OpenAIConfig) LoadAPIKey() (string, error) {
	var envErr error

	if c.EnvFile != "" {
		loadErr := godotenv.Load(c.EnvFile)
		if loadErr != nil {
			envErr = fmt.Errorf("could not load env file %s: %w", c.EnvFile, loadErr)
		}
	}

	apiKey := os.Getenv(c.APIKeyEnv)
	if apiKey == "" {
		if envErr != nil {
			return "", errors.Join(fmt.Errorf("%w: %s", ErrAPIKeyMissing, c.APIKeyEnv), envErr)
		}

		return "", fmt.Errorf("%w: %s", ErrAPIKeyMissing, c.APIKeyEnv)
	}

	return apiKey, nil
}

func (c *Config) applyOpenAIDefaults() {
	setString(&c.OpenAI.APIKeyEnv, defaultAPIKeyEnv)
	setString(&c.OpenAI.EnvFile, defaultEnvFile)
	setInt(&c.OpenAI.TimeoutSeconds, defaultTimeoutSeconds)
}

func (c *Config) applyListingDefaults() {
	setString(&c.Listing.Model, defaultListingModel)
	setInt(&c.Listing.MaxTokens, defaultMaxTokens)
	setFloat(&c.Listing.Temperature, defaultTemperature)
	setString(&c.Listing.ImageDetail, defaultImageDetail)
	setInt(&c.Listing.MaxImageSize, defaultMaxImageSize)
	setInt(&c.Listing.ImageQuality, defaultImageQuality)
	setInt(&c.Listing.ImageTimeout, defaultImageTimeout)
	setInt(&c.Listing.BatchDelayMillis, defaultBatchDelayMillis)
	setString(&c.Listing.OutputDir, defaultListingOutputDir)
}

func (c *Config) applyPodcastDefaults() {
	setString(&c.Podcast.Model, defaultSpeechModel)
	setString(&c.Podcast.Voice, defaultVoice)
	setFloat(&c.Podcast.Speed, defaultSpeed)
	setString(&c.Podcast.SettingsFile, defaultSettingsFile)
	setString(&c.Podcast.InputDir, defaultPodcastInputDir)
	setString(&c.Podcast.OutputDir, defaultPodcastOutputDir)
	setInt(&c.Podcast.ChunkLimit, defaultChunkLimit)
	setInt(&c.Podcast.AffirmationDelayMs, defaultAffirmationDelayMs)
	setInt(&c.Podcast.AffirmationPauseMs, defaultAffirmationPauseMs)
	setString(&c.Podcast.FFmpegPath, defaultFFmpegPath)
	setString(&c.Podcast.ManifestName, defaultManifestName)
	setString(&c.Podcast.FinalName, defaultFinalName)

	if c.Podcast.Speeds == nil {
		c.Podcast.Speeds = map[string]float64{
			"intro":   1.0,
			"closing": 1.0,
		}
	}
}

// millis converts a millisecond setting; negative values mean zero.
func millis(value int) time.Duration {
	if value < 0 {
		return 0
	}

	return time.Duration(value) * time.Millisecond
}

func setString(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func setInt(field *int, value int) {
	if *field == 0 {
		*field = value
	}
}

func setFloat(field *float64, value float64) {
	if *field == 0 {
		*field = value
	}
}
