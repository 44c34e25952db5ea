package audio

import (
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/mediagen/internal/fileutil"
)

// Layout names the podcast part files in playback order.
type Layout struct {
	Intro string
	// OpeningCandidates are tried in order; the first existing file is used.
	OpeningCandidates []string
	// Continuous is the single-file affirmation track. When individual
	// affirmation files exist too, only the more recently written set is used.
	Continuous string
	// AffirmationPattern is a glob matched inside the directory.
	AffirmationPattern string
	Closing            string
}

// DefaultLayout is the file layout written by the podcast generator.
func DefaultLayout() Layout {
	return Layout{
		Intro:              "intro.mp3",
		OpeningCandidates:  []string{"opening.mp3", "opening075.mp3"},
		Continuous:         "affirmations.mp3",
		AffirmationPattern: "affirmation_*.mp3",
		Closing:            "closing.mp3",
	}
}

// OrderParts returns the existing part files in dir in playback order:
// intro, opening, affirmations, closing. The affirmations are either the
// continuous track or the individual files sorted by name, never both.
func OrderParts(dir string, layout Layout) ([]string, error) {
	var parts []string

	appendIfExists := func(name string) bool {
		if name == "" {
			return false
		}

		path := filepath.Join(dir, name)
		if !fileutil.FileExists(path) {
			return false
		}

		parts = append(parts, path)

		return true
	}

	appendIfExists(layout.Intro)

	for _, candidate := range layout.OpeningCandidates {
		if appendIfExists(candidate) {
			break
		}
	}

	affirmations, err := affirmationParts(dir, layout)
	if err != nil {
		return nil, err
	}

	parts = append(parts, affirmations...)

	appendIfExists(layout.Closing)

	return parts, nil
}

// affirmationParts picks between the continuous track and the individual
// files. The set with the newest modification time wins; a tie goes to the
// continuous track.
func affirmationParts(dir string, layout Layout) ([]string, error) {
	var individual []string

	if layout.AffirmationPattern != "" {
		matches, err := fileutil.ListFiles(dir, layout.AffirmationPattern)
		if err != nil {
			return nil, err
		}

		individual = matches
	}

	if layout.Continuous == "" {
		return individual, nil
	}

	continuousPath := filepath.Join(dir, layout.Continuous)

	continuousTime, ok := modTime(continuousPath)
	if !ok {
		return individual, nil
	}

	for _, path := range individual {
		individualTime, found := modTime(path)
		if found && individualTime.After(continuousTime) {
			return individual, nil
		}
	}

	return []string{continuousPath}, nil
}

func modTime(path string) (time.Time, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return time.Time{}, false
	}

	return info.ModTime(), true
}
