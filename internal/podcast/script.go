// Package podcast generates a guided meditation podcast: one MP3 per script
// part, one per affirmation, a report of what was produced, and the final
// combined episode.
package podcast

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/book-expert/mediagen/internal/fileutil"
	"github.com/book-expert/mediagen/internal/helpers"
	"github.com/book-expert/mediagen/internal/tts/text"
)

// Script part names. They double as output file stems and speed keys.
const (
	PartIntro        = "intro"
	PartOpening      = "opening"
	PartAffirmations = "affirmations"
	PartClosing      = "closing"
)

const (
	previewLength = 80
	previewSuffix = "..."
)

// Parts lists the script parts in playback order.
var Parts = []string{PartIntro, PartOpening, PartAffirmations, PartClosing}

// ScriptFiles maps each part to its file name in the input directory.
var ScriptFiles = map[string]string{
	PartIntro:        "Script Intro",
	PartOpening:      "Script Opening",
	PartAffirmations: "Script Affirmations",
	PartClosing:      "Script Closing",
}

// ErrScriptMissing is returned when a required script file does not exist.
var ErrScriptMissing = errors.New("script file not found")

// Script holds the text of each part, keyed by part name. Missing parts are
// absent from Texts and listed in Missing.
type Script struct {
	Texts   map[string]string
	Missing []string
}

// Text returns the text for part, or "" when it is missing.
func (s *Script) Text(part string) string {
	return s.Texts[part]
}

// ScriptStatus describes one script file for the check command.
type ScriptStatus struct {
	Part     string
	Path     string
	Found    bool
	Preview  string
	Analysis text.Analysis
}

// LoadScript reads every part from inputDir. A missing part is recorded, not
// an error; unreadable files are.
func LoadScript(inputDir string) (*Script, error) {
	script := &Script{
		Texts:   make(map[string]string, len(Parts)),
		Missing: []string{},
	}

	for _, part := range Parts {
		path := filepath.Join(inputDir, ScriptFiles[part])

		content, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			script.Missing = append(script.Missing, part)

			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to read %s script: %w", part, err)
		}

		script.Texts[part] = strings.TrimSpace(string(content))
	}

	if len(script.Texts) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrScriptMissing, inputDir)
	}

	return script, nil
}

// InspectScripts reports presence, a first-line preview and text statistics
// for every script file in inputDir.
func InspectScripts(inputDir string) []ScriptStatus {
	statuses := make([]ScriptStatus, 0, len(Parts))

	for _, part := range Parts {
		path := filepath.Join(inputDir, ScriptFiles[part])
		status := ScriptStatus{
			Part:     part,
			Path:     path,
			Found:    false,
			Preview:  "",
			Analysis: text.Analysis{Warnings: nil, Characters: 0, Words: 0, Sentences: 0, EstimatedMinutes: 0},
		}

		content, err := fileutil.LoadText(path)
		if err == nil {
			firstLine, _, _ := strings.Cut(content, "\n")
			status.Found = true
			status.Preview = helpers.TruncateText(firstLine, previewLength, previewSuffix)
			status.Analysis = text.Analyze(content)
		}

		statuses = append(statuses, status)
	}

	return statuses
}
