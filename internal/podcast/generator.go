package podcast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/mediagen/internal/fileutil"
	"github.com/book-expert/mediagen/internal/helpers"
	"github.com/book-expert/mediagen/internal/tts"
	"github.com/book-expert/mediagen/internal/tts/audio"
	"github.com/book-expert/mediagen/internal/tts/text"
)

// VoiceSampleText is spoken by every voice sample.
const VoiceSampleText = "Take a deep breath in. Hold. And breathe out slowly."

// SampleVoices are the voices auditioned by GenerateVoiceSamples by default.
var SampleVoices = []string{"sage", "shimmer", "nova", "echo", "alloy"}

const (
	partFileFormat        = "%s.mp3"
	affirmationFileFormat = "affirmation_%02d.mp3"
	voiceSampleFormat     = "voice_test_%s.mp3"
	silenceFileName       = "pause_silence.mp3"
	affirmationPrefix     = "affirmation_"
	logPreviewLength      = 50
	logPreviewSuffix      = "..."
)

var (
	// ErrNoAffirmations is returned when the affirmation script has no usable lines.
	ErrNoAffirmations = errors.New("no affirmations found")
	// ErrAllAffirmationsFailed is returned when no affirmation file was produced.
	ErrAllAffirmationsFailed = errors.New("no affirmation audio was generated")
	// ErrEmptyPart is returned when a part has no text.
	ErrEmptyPart = errors.New("part text is empty")
)

// Options configures a Generator.
type Options struct {
	// Out receives user-facing progress lines. Nil discards them.
	Out       io.Writer
	OutputDir string
	// Speeds overrides the engine speed for individual parts.
	Speeds       map[string]float64
	ManifestName string
	FinalName    string
	// Pause is inserted between consecutive affirmations by Combine.
	Pause time.Duration
}

// CombineResult describes the combined episode.
type CombineResult struct {
	Path     string
	Parts    []string
	Size     int64
	Duration time.Duration
}

// Generator produces the podcast audio files in one output directory.
type Generator struct {
	engine *tts.Engine
	log    *logger.Logger
	out    io.Writer
	opts   Options
}

// NewGenerator creates a Generator. The engine's pacing applies to every
// request the generator makes.
func NewGenerator(engine *tts.Engine, opts Options, log *logger.Logger) *Generator {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	return &Generator{
		engine: engine,
		log:    log,
		out:    out,
		opts:   opts,
	}
}

// OutputDir returns the directory audio files are written to.
func (g *Generator) OutputDir() string {
	return g.opts.OutputDir
}

// GeneratePart synthesizes one script part into <part>.mp3.
func (g *Generator) GeneratePart(ctx context.Context, part, script string) (string, error) {
	script = text.Normalize(script)
	if script == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyPart, part)
	}

	path := filepath.Join(g.opts.OutputDir, fmt.Sprintf(partFileFormat, part))

	g.printf("\nGenerating %s (%d characters)\n", strings.ToUpper(part), len([]rune(script)))

	err := g.engineFor(part).ProcessLongText(ctx, script, path)
	if err != nil {
		g.log.Error("Failed to generate %s: %v", part, err)

		return "", fmt.Errorf("failed to generate %s: %w", part, err)
	}

	g.printf("  Created: %s\n", path)

	return path, nil
}

// GenerateAffirmations synthesizes each affirmation into its own numbered
// file, one request at a time. A failed affirmation is logged and skipped.
func (g *Generator) GenerateAffirmations(ctx context.Context, script string) ([]string, error) {
	affirmations := text.ExtractAffirmations(script)
	if len(affirmations) == 0 {
		return nil, ErrNoAffirmations
	}

	g.printf("\nGenerating %d affirmations\n", len(affirmations))
	g.log.Info("Generating %d affirmations", len(affirmations))

	engine := g.engineFor(PartAffirmations)
	created := make([]string, 0, len(affirmations))

	for index, affirmation := range affirmations {
		path := filepath.Join(g.opts.OutputDir, fmt.Sprintf(affirmationFileFormat, index+1))

		g.printf("  %d. %s\n", index+1, helpers.TruncateText(affirmation, logPreviewLength, logPreviewSuffix))

		err := engine.ProcessLongText(ctx, affirmation, path)
		if err != nil {
			g.log.Error("Affirmation %d failed: %v", index+1, err)
			g.printf("     Skipped: %v\n", err)

			if ctx.Err() != nil {
				return created, ctx.Err()
			}

			continue
		}

		created = append(created, path)
	}

	if len(created) == 0 {
		return nil, ErrAllAffirmationsFailed
	}

	return created, nil
}

// GenerateContinuous synthesizes all affirmations as one flowing track,
// affirmations.mp3.
func (g *Generator) GenerateContinuous(ctx context.Context, script string) (string, error) {
	affirmations := text.ExtractAffirmations(script)
	if len(affirmations) == 0 {
		return "", ErrNoAffirmations
	}

	return g.GeneratePart(ctx, PartAffirmations, text.ContinuousText(affirmations))
}

// Run generates every part present in script and returns the report of the
// output directory. Part failures are logged and returned joined after the
// remaining parts have been attempted.
func (g *Generator) Run(ctx context.Context, script *Script, continuous bool) (*Report, error) {
	var failures []error

	for _, part := range script.Missing {
		g.log.Warn("Script for %s not found, skipping", part)
		g.printf("Skipping %s: script not found\n", part)
	}

	for _, part := range Parts {
		content, ok := script.Texts[part]
		if !ok {
			continue
		}

		var err error

		switch {
		case part != PartAffirmations:
			_, err = g.GeneratePart(ctx, part, content)
		case continuous:
			_, err = g.GenerateContinuous(ctx, content)
		default:
			_, err = g.GenerateAffirmations(ctx, content)
		}

		if err != nil {
			failures = append(failures, err)

			if ctx.Err() != nil {
				break
			}
		}
	}

	report, reportErr := BuildReport(g.opts.OutputDir)
	if reportErr != nil {
		failures = append(failures, reportErr)
	}

	return report, errors.Join(failures...)
}

// GenerateVoiceSamples speaks VoiceSampleText once per voice into
// voice_test_<voice>.mp3. Failed voices are logged and skipped.
func (g *Generator) GenerateVoiceSamples(ctx context.Context, voices []string) ([]string, error) {
	if len(voices) == 0 {
		voices = SampleVoices
	}

	var (
		created  []string
		failures []error
	)

	for _, voice := range voices {
		path := filepath.Join(g.opts.OutputDir, fmt.Sprintf(voiceSampleFormat, voice))

		err := g.engine.WithVoice(voice).ProcessSingleChunk(ctx, VoiceSampleText, path)
		if err != nil {
			g.log.Error("Voice sample %s failed: %v", voice, err)
			g.printf("  %s: failed: %v\n", voice, err)
			failures = append(failures, fmt.Errorf("voice %s: %w", voice, err))

			continue
		}

		g.printf("  %s: %s\n", voice, path)

		created = append(created, path)
	}

	return created, errors.Join(failures...)
}

// Combine joins the existing part files in playback order into the final
// episode with ffmpeg. With a pause configured, a generated silence file is
// placed between consecutive affirmations.
func (g *Generator) Combine(ctx context.Context, ffmpeg *audio.FFmpeg) (*CombineResult, error) {
	parts, err := audio.OrderParts(g.opts.OutputDir, audio.DefaultLayout())
	if err != nil {
		return nil, err
	}

	if len(parts) == 0 {
		return nil, fmt.Errorf("%w in %s", audio.ErrNoInputFiles, g.opts.OutputDir)
	}

	files := parts

	if g.opts.Pause > 0 {
		silencePath := filepath.Join(g.opts.OutputDir, silenceFileName)

		silenceErr := ffmpeg.Silence(ctx, g.opts.Pause, silencePath)
		if silenceErr != nil {
			return nil, fmt.Errorf("failed to create pause: %w", silenceErr)
		}

		files = audio.Interleave(parts, silencePath, func(previous, next string) bool {
			return isAffirmationFile(previous) && isAffirmationFile(next)
		})
	}

	outputPath := filepath.Join(g.opts.OutputDir, g.opts.FinalName)
	manifestPath := filepath.Join(g.opts.OutputDir, g.opts.ManifestName)

	g.log.Info("Combining %d files into %s", len(files), outputPath)

	concatErr := ffmpeg.Concat(ctx, files, manifestPath, outputPath)
	if concatErr != nil {
		g.log.Error("Combine failed: %v", concatErr)

		return nil, concatErr
	}

	entry, entryErr := describeFile(outputPath)
	if entryErr != nil {
		return nil, entryErr
	}

	return &CombineResult{
		Path:     outputPath,
		Parts:    parts,
		Size:     entry.Size,
		Duration: entry.Duration,
	}, nil
}

func (g *Generator) engineFor(part string) *tts.Engine {
	speed, ok := g.opts.Speeds[part]
	if !ok || speed <= 0 {
		return g.engine
	}

	return g.engine.WithSpeed(speed)
}

func (g *Generator) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(g.out, format, args...)
}

func isAffirmationFile(path string) bool {
	return strings.HasPrefix(filepath.Base(path), affirmationPrefix)
}

// FinalSizeLabel formats a combined episode size for display.
func (r *CombineResult) FinalSizeLabel() string {
	return fileutil.FormatFileSize(r.Size)
}
