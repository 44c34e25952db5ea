package audio

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/book-expert/mediagen/internal/fileutil"
)

// DefaultFFmpegPath is used when FFmpeg.Path is empty.
const DefaultFFmpegPath = "ffmpeg"

const (
	silenceSampleRate  = 24000
	errFmtFFmpegFailed = "ffmpeg failed: %w - output: %s"
	manifestLineFormat = "file '%s'\n"
	quoteEscape        = `'\''`
)

var (
	// ErrFFmpegUnavailable is returned when the ffmpeg binary cannot be run.
	ErrFFmpegUnavailable = errors.New("ffmpeg is not available")
	// ErrNoInputFiles is returned when there is nothing to concatenate.
	ErrNoInputFiles = errors.New("no input files to combine")
)

// FFmpeg runs the ffmpeg binary.
type FFmpeg struct {
	Path string
}

// NewFFmpeg creates an FFmpeg runner. An empty path uses "ffmpeg" from PATH.
func NewFFmpeg(path string) *FFmpeg {
	if path == "" {
		path = DefaultFFmpegPath
	}

	return &FFmpeg{Path: path}
}

// Check verifies that ffmpeg can be executed.
func (f *FFmpeg) Check(ctx context.Context) error {
	_, err := f.run(ctx, "-version")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFFmpegUnavailable, err)
	}

	return nil
}

// Concat writes a concat manifest listing files and joins them into
// outputPath without re-encoding.
func (f *FFmpeg) Concat(ctx context.Context, files []string, manifestPath, outputPath string) error {
	if len(files) == 0 {
		return ErrNoInputFiles
	}

	manifest, err := BuildManifest(files)
	if err != nil {
		return err
	}

	saveErr := fileutil.SaveText(manifestPath, manifest)
	if saveErr != nil {
		return saveErr
	}

	dirErr := fileutil.EnsureDir(filepath.Dir(outputPath))
	if dirErr != nil {
		return dirErr
	}

	_, runErr := f.run(ctx,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c", "copy",
		outputPath,
	)

	return runErr
}

// Silence writes an MP3 of silence lasting duration to outputPath.
func (f *FFmpeg) Silence(ctx context.Context, duration time.Duration, outputPath string) error {
	dirErr := fileutil.EnsureDir(filepath.Dir(outputPath))
	if dirErr != nil {
		return dirErr
	}

	_, runErr := f.run(ctx,
		"-y",
		"-f", "lavfi",
		"-i", "anullsrc=r="+strconv.Itoa(silenceSampleRate)+":cl=mono",
		"-t", strconv.FormatFloat(duration.Seconds(), 'f', 3, 64),
		"-c:a", "libmp3lame",
		outputPath,
	)

	return runErr
}

// BuildManifest renders the concat demuxer input: one file line per path,
// absolute, with single quotes escaped.
func BuildManifest(files []string) (string, error) {
	var builder strings.Builder

	for _, file := range files {
		absolute, err := filepath.Abs(file)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", file, err)
		}

		fmt.Fprintf(&builder, manifestLineFormat, strings.ReplaceAll(absolute, "'", quoteEscape))
	}

	return builder.String(), nil
}

// Interleave returns files with pause inserted between consecutive entries
// for which between reports true.
func Interleave(files []string, pause string, between func(previous, next string) bool) []string {
	if len(files) == 0 {
		return nil
	}

	result := []string{files[0]}

	for index := 1; index < len(files); index++ {
		if between(files[index-1], files[index]) {
			result = append(result, pause)
		}

		result = append(result, files[index])
	}

	return result
}

func (f *FFmpeg) run(ctx context.Context, args ...string) ([]byte, error) {
	// #nosec G204 -- the binary path comes from configuration and args are built here
	cmd := exec.CommandContext(ctx, f.Path, args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf(errFmtFFmpegFailed, err, strings.TrimSpace(string(output)))
	}

	return output, nil
}
