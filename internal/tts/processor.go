package tts

import (
	"context"

	"github.com/book-expert/logger"
	"github.com/book-expert/mediagen/internal/core"
)

// Processor implements core.TTSProcessor on top of an Engine.
type Processor struct {
	engine *Engine
	config core.TTSConfig
	log    *logger.Logger
}

// NewProcessor creates a Processor. The client defaults become the job
// defaults reported by GetConfig.
func NewProcessor(engine *Engine, log *logger.Logger) *Processor {
	defaults := engine.client.Defaults()

	voice := engine.voice
	if voice == "" {
		voice = defaults.Voice
	}

	model := engine.model
	if model == "" {
		model = defaults.Model
	}

	speed := engine.speed
	if speed == 0 {
		speed = defaults.Speed
	}

	return &Processor{
		engine: engine,
		config: core.TTSConfig{
			Model:  model,
			Voice:  voice,
			Format: defaults.Format,
			Speed:  speed,
		},
		log: log,
	}
}

// GetConfig returns the default job settings.
func (p *Processor) GetConfig() core.TTSConfig {
	return p.config
}

// Process synthesizes text with the settings in cfg. Zero-valued fields of
// cfg use the processor defaults.
func (p *Processor) Process(ctx context.Context, text []byte, cfg core.TTSConfig) ([]byte, error) {
	engine := p.engine

	if cfg.Voice != "" {
		engine = engine.WithVoice(cfg.Voice)
	}

	if cfg.Speed != 0 {
		engine = engine.WithSpeed(cfg.Speed)
	}

	if cfg.Model != "" {
		engine = engine.WithModel(cfg.Model)
	}

	audioData, err := engine.Synthesize(ctx, string(text))
	if err != nil {
		p.log.Error("Speech synthesis failed: %v", err)

		return nil, err
	}

	return audioData, nil
}
