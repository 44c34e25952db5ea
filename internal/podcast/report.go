package podcast

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/mediagen/internal/fileutil"
	"github.com/book-expert/mediagen/internal/tts/audio"
)

const audioPattern = "*.mp3"

// FileEntry is one audio file in a report.
type FileEntry struct {
	Name     string
	Size     int64
	Duration time.Duration
	// Estimated is set when the duration comes from the file size.
	Estimated bool
}

// Report lists the audio files in an output directory.
type Report struct {
	Dir           string
	Files         []FileEntry
	TotalSize     int64
	TotalDuration time.Duration
}

// BuildReport describes every MP3 file in dir, sorted by name.
func BuildReport(dir string) (*Report, error) {
	paths, err := fileutil.ListFiles(dir, audioPattern)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Dir:           dir,
		Files:         make([]FileEntry, 0, len(paths)),
		TotalSize:     0,
		TotalDuration: 0,
	}

	for _, path := range paths {
		entry, entryErr := describeFile(path)
		if entryErr != nil {
			return nil, entryErr
		}

		report.Files = append(report.Files, entry)
		report.TotalSize += entry.Size
		report.TotalDuration += entry.Duration
	}

	return report, nil
}

// Print writes the report as aligned lines with human-readable sizes.
func (r *Report) Print(w io.Writer) {
	_, _ = fmt.Fprintf(w, "\nFiles in %s:\n", r.Dir)

	if len(r.Files) == 0 {
		_, _ = fmt.Fprintln(w, "  (no audio files)")

		return
	}

	for _, entry := range r.Files {
		marker := ""
		if entry.Estimated {
			marker = "~"
		}

		_, _ = fmt.Fprintf(w, "  %-40s %10s  %s%s\n",
			entry.Name,
			fileutil.FormatFileSize(entry.Size),
			marker,
			fileutil.FormatDuration(entry.Duration.Seconds()),
		)
	}

	_, _ = fmt.Fprintf(w, "  Total: %d files, %s, %s\n",
		len(r.Files),
		fileutil.FormatFileSize(r.TotalSize),
		fileutil.FormatDuration(r.TotalDuration.Seconds()),
	)
}

func describeFile(path string) (FileEntry, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		return FileEntry{}, fmt.Errorf("failed to stat %s: %w", path, statErr)
	}

	duration, exact := audio.DurationOrEstimate(path)

	return FileEntry{
		Name:      filepath.Base(path),
		Size:      info.Size(),
		Duration:  duration,
		Estimated: !exact,
	}, nil
}
