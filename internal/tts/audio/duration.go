// Package audio inspects and assembles the MP3 files produced by speech
// synthesis: durations, part ordering, and concatenation through ffmpeg.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tcolgate/mp3"
)

// EstimatedBytesPerSecond approximates the bitrate of speech API MP3 output.
const EstimatedBytesPerSecond = 16000

// ErrNoFrames is returned when a file holds no decodable MP3 frames.
var ErrNoFrames = errors.New("no MP3 frames found")

// Duration returns the playing time of an MP3 file by summing the duration
// of every decoded frame.
func Duration(path string) (time.Duration, error) {
	file, openErr := os.Open(path)
	if openErr != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, openErr)
	}
	defer file.Close()

	decoder := mp3.NewDecoder(file)

	var (
		frame   mp3.Frame
		total   time.Duration
		frames  int
		skipped int
	)

	for {
		decodeErr := decoder.Decode(&frame, &skipped)
		if errors.Is(decodeErr, io.EOF) || errors.Is(decodeErr, io.ErrUnexpectedEOF) {
			break
		}

		if decodeErr != nil {
			return 0, fmt.Errorf("failed to decode %s: %w", path, decodeErr)
		}

		total += frame.Duration()
		frames++
	}

	if frames == 0 {
		return 0, fmt.Errorf("%w in %s", ErrNoFrames, path)
	}

	return total, nil
}

// EstimateDuration approximates the playing time from the file size.
func EstimateDuration(size int64) time.Duration {
	return time.Duration(float64(size) / EstimatedBytesPerSecond * float64(time.Second))
}

// DurationOrEstimate returns the decoded duration, or the size-based estimate
// when the file cannot be decoded.
func DurationOrEstimate(path string) (time.Duration, bool) {
	duration, err := Duration(path)
	if err == nil {
		return duration, true
	}

	info, statErr := os.Stat(path)
	if statErr != nil {
		return 0, false
	}

	return EstimateDuration(info.Size()), false
}
