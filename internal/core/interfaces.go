// Package core defines the interfaces shared between the speech service components.
package core

import "context"

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// TTSConfig holds the settings for a single speech synthesis job.
// Zero-valued fields fall back to the processor defaults.
type TTSConfig struct {
	Model  string
	Voice  string
	Format string
	Speed  float64
}

// TTSProcessor defines the interface for a text-to-speech processing engine.
type TTSProcessor interface {
	Process(ctx context.Context, text []byte, cfg TTSConfig) ([]byte, error)
	GetConfig() TTSConfig
}
