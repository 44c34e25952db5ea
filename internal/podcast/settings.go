package podcast

import (
	"errors"
	"os"

	"github.com/book-expert/mediagen/internal/fileutil"
)

// Defaults for fields an existing settings.json leaves empty.
const (
	DefaultSettingsVoice = "alloy"
	DefaultSettingsModel = "tts-1"
	DefaultSettingsSpeed = 0.9
)

// Settings is the optional settings.json override for voice, model and speed.
type Settings struct {
	Voice     string  `json:"voice"`
	Model     string  `json:"model"`
	Speed     float64 `json:"speed"`
	ChunkSize int     `json:"chunk_size,omitempty"`
}

// DefaultSettings returns the values that fill the gaps in a settings file.
func DefaultSettings() Settings {
	return Settings{
		Voice:     DefaultSettingsVoice,
		Model:     DefaultSettingsModel,
		Speed:     DefaultSettingsSpeed,
		ChunkSize: 0,
	}
}

// LoadSettings reads settings.json. A missing file yields found=false and the
// caller keeps its configured voice, model and speed; empty fields in an
// existing file are filled from DefaultSettings.
func LoadSettings(path string) (Settings, bool, error) {
	settings := DefaultSettings()

	if path == "" {
		return settings, false, nil
	}

	_, statErr := os.Stat(path)
	if errors.Is(statErr, os.ErrNotExist) {
		return settings, false, nil
	}

	var loaded Settings

	loadErr := fileutil.LoadJSON(path, &loaded)
	if loadErr != nil {
		return settings, false, loadErr
	}

	if loaded.Voice != "" {
		settings.Voice = loaded.Voice
	}

	if loaded.Model != "" {
		settings.Model = loaded.Model
	}

	if loaded.Speed > 0 {
		settings.Speed = loaded.Speed
	}

	settings.ChunkSize = loaded.ChunkSize

	return settings, true, nil
}
