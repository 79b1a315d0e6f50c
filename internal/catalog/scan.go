package catalog

import (
	"context"
	"io/fs"
	"log/slog"
	"math"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"morningcast/internal/logging"
	"morningcast/internal/media/ffprobe"
	"morningcast/internal/media/hook"
)

const unknownArtist = "Unknown Artist"

var audioExtensions = map[string]struct{}{
	".mp3":  {},
	".m4a":  {},
	".flac": {},
	".ogg":  {},
	".wav":  {},
}

var probeTags = ffprobe.Inspect

// Measurer extracts tempo and energy from an audio file.
type Measurer interface {
	Measure(ctx context.Context, path string) (hook.Features, error)
}

// Scanner builds catalogue entries from audio files.
type Scanner struct {
	FFprobeBinary string
	Measurer      Measurer
	logger        *slog.Logger
}

// NewScanner returns a scanner. measurer may be nil to skip analysis.
func NewScanner(ffprobeBinary string, measurer Measurer, logger *slog.Logger) *Scanner {
	return &Scanner{
		FFprobeBinary: ffprobeBinary,
		Measurer:      measurer,
		logger:        logging.NewComponentLogger(logger, "catalog"),
	}
}

// Scan walks dir in lexical order. Files that cannot be tagged or analyzed
// still produce an entry named after the file.
func (s *Scanner) Scan(ctx context.Context, dir string) ([]Song, error) {
	var songs []Song
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := audioExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		songs = append(songs, s.describe(ctx, path))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("library scanned",
		logging.String("dir", dir),
		logging.Int("songs", len(songs)),
		logging.String(logging.FieldEventType, "catalog_scanned"),
	)
	return songs, nil
}

func (s *Scanner) describe(ctx context.Context, path string) Song {
	song := Song{Title: TitleFromFilename(path), Artist: unknownArtist, Path: path}
	if probe, err := probeTags(ctx, s.FFprobeBinary, path); err == nil {
		if title := probe.Tag("title"); title != "" {
			song.Title = title
		}
		if artist := probe.Tag("artist"); artist != "" {
			song.Artist = artist
		}
	} else {
		s.logger.Debug("tag probe failed", logging.String("path", path), logging.Error(err))
	}

	if s.Measurer == nil {
		return song
	}
	features, err := s.Measurer.Measure(ctx, path)
	if err != nil {
		logging.WarnWithContext(s.logger, "audio analysis failed", "catalog_analysis_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that ffmpeg can decode the file"),
			logging.String(logging.FieldImpact, "song listed without bpm and energy"),
		)
		return song
	}
	bpm := math.Round(features.BPM)
	energy := features.Energy
	song.BPM = &bpm
	song.Energy = &energy
	return song
}

// TitleFromFilename derives a display title from a file name.
func TitleFromFilename(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return "Unknown"
	}
	return cases.Title(language.Und).String(base)
}
