// Package fileutil provides the file and path helpers used by the listing and
// podcast tools: directory creation, JSON and text persistence, and
// human-readable size and duration formatting.
package fileutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// File permission constants.
const (
	DirPermissions   = 0o750
	FilePermissions  = 0o600
	AudioPermissions = 0o644
)

const (
	jsonIndent             = "  "
	invalidCharReplacement = "_"
)

// Time formatting constants.
const (
	secondsInMinute = 60
	secondsInHour   = 3600
	formatSeconds   = "%.1fs"
	formatMinutes   = "%dm %.1fs"
	formatHours     = "%dh %dm"
)

// Audio extensions produced by the speech endpoint's response formats.
const (
	extAAC  = ".aac"
	extFLAC = ".flac"
	extMP3  = ".mp3"
	extOPUS = ".opus"
	extWAV  = ".wav"
)

// Error message and format string constants.
const (
	errFmtFailedToCreateDir = "failed to create directory %s: %w"
	errFmtEncodeJSON        = "failed to encode JSON for %s: %w"
	errFmtDecodeJSON        = "failed to decode JSON from %s: %w"
	errFmtWriteFile         = "failed to write %s: %w"
	errFmtReadFile          = "failed to read %s: %w"
	errFmtListFiles         = "failed to list files in %s: %w"
)

// EnsureDir ensures a directory exists at the given path, creating it if it doesn't.
func EnsureDir(path string) error {
	_, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		mkdirErr := os.MkdirAll(path, DirPermissions)
		if mkdirErr != nil {
			return fmt.Errorf(errFmtFailedToCreateDir, path, mkdirErr)
		}
	}

	return nil
}

// SaveJSON writes data as two-space indented JSON. Non-ASCII text and HTML
// characters are written as-is.
func SaveJSON(path string, data any) error {
	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", jsonIndent)

	encodeErr := encoder.Encode(data)
	if encodeErr != nil {
		return fmt.Errorf(errFmtEncodeJSON, path, encodeErr)
	}

	return writeFile(path, buf.Bytes(), FilePermissions)
}

// LoadJSON reads a JSON file into target.
func LoadJSON(path string, target any) error {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return fmt.Errorf(errFmtReadFile, path, readErr)
	}

	unmarshalErr := json.Unmarshal(data, target)
	if unmarshalErr != nil {
		return fmt.Errorf(errFmtDecodeJSON, path, unmarshalErr)
	}

	return nil
}

// SaveText writes text to path as UTF-8.
func SaveText(path, text string) error {
	return writeFile(path, []byte(text), FilePermissions)
}

// SaveAudio writes audio bytes readable by media players.
func SaveAudio(path string, data []byte) error {
	return writeFile(path, data, AudioPermissions)
}

// LoadText reads a UTF-8 text file.
func LoadText(path string) (string, error) {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return "", fmt.Errorf(errFmtReadFile, path, readErr)
	}

	return string(data), nil
}

// ListFiles returns the sorted paths in dir matching a glob pattern. A missing
// directory yields an empty list.
func ListFiles(dir, pattern string) ([]string, error) {
	_, statErr := os.Stat(dir)
	if os.IsNotExist(statErr) {
		return []string{}, nil
	}

	matches, globErr := filepath.Glob(filepath.Join(dir, pattern))
	if globErr != nil {
		return nil, fmt.Errorf(errFmtListFiles, dir, globErr)
	}

	sort.Strings(matches)

	return matches, nil
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}

// FormatDuration formats a duration in a human-readable string (e.g., "1h 15m", "5m
// 30.5s", "45.2s").
func FormatDuration(seconds float64) string {
	if seconds < secondsInMinute {
		return fmt.Sprintf(formatSeconds, seconds)
	}

	if seconds < secondsInHour {
		minutes := int(seconds / secondsInMinute)
		remainingSeconds := seconds - float64(minutes*secondsInMinute)

		return fmt.Sprintf(formatMinutes, minutes, remainingSeconds)
	}

	hours := int(seconds / secondsInHour)
	remainingSeconds := seconds - float64(hours*secondsInHour)
	remainingMinutes := int(remainingSeconds / secondsInMinute)

	return fmt.Sprintf(formatHours, hours, remainingMinutes)
}

// FormatFileSize formats a file size in SI units (e.g., "1.6 MB", "500 B").
func FormatFileSize(size int64) string {
	if size < 0 {
		size = 0
	}

	return humanize.Bytes(uint64(size))
}

// IsValidAudioFile reports whether a filename has an audio extension a
// player or the object store consumers accept.
func IsValidAudioFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case extMP3, extOPUS, extAAC, extFLAC, extWAV:
		return true
	default:
		return false
	}
}

// SanitizeFilename replaces characters that are invalid in most filesystems.
func SanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"<", invalidCharReplacement,
		">", invalidCharReplacement,
		":", invalidCharReplacement,
		"\"", invalidCharReplacement,
		"/", invalidCharReplacement,
		"\\", invalidCharReplacement,
		"|", invalidCharReplacement,
		"?", invalidCharReplacement,
		"*", invalidCharReplacement,
	)

	return replacer.Replace(filename)
}

func writeFile(path string, data []byte, perm os.FileMode) error {
	dirErr := EnsureDir(filepath.Dir(path))
	if dirErr != nil {
		return dirErr
	}

	writeErr := os.WriteFile(path, data, perm)
	if writeErr != nil {
		return fmt.Errorf(errFmtWriteFile, path, writeErr)
	}

	return nil
}
