package broadcast

import (
	"log/slog"
	"strings"

	"morningcast/internal/catalog"
	"morningcast/internal/logging"
	"morningcast/internal/mixer"
)

// SongMiss is a planned title the catalogue does not contain.
type SongMiss struct {
	Title      string `json:"title"`
	Suggestion string `json:"suggestion,omitempty"`
}

// MusicSelection is the resolved music plan: bed songs in plan order and
// the closing song, which is the last resolved title.
type MusicSelection struct {
	Bed     []catalog.Song
	Closing *catalog.Song
	Misses  []SongMiss
}

// Tracks converts the selection for the mixer.
func (s MusicSelection) Tracks() ([]mixer.Track, *mixer.Track) {
	bed := make([]mixer.Track, 0, len(s.Bed))
	for _, song := range s.Bed {
		bed = append(bed, mixer.Track{Title: song.Title, Path: song.Path})
	}
	if s.Closing == nil {
		return bed, nil
	}
	return bed, &mixer.Track{Title: s.Closing.Title, Path: s.Closing.Path}
}

// SelectMusic resolves the plan's song cues case-insensitively. Unknown
// titles are logged and skipped. A song named by more than one segment is
// used once, at its first position.
func SelectMusic(segments []Segment, songs *catalog.Catalog, logger *slog.Logger) MusicSelection {
	var (
		selection MusicSelection
		resolved  []catalog.Song
		seen      = make(map[string]struct{})
	)
	for _, title := range songTitles(segments) {
		song, ok := songs.Find(title)
		if !ok {
			miss := SongMiss{Title: title}
			attrs := []logging.Attr{
				logging.String("title", title),
				logging.String(logging.FieldImpact, "segment plays without music"),
			}
			if suggestion, ok := songs.Suggest(title); ok {
				miss.Suggestion = suggestion
				attrs = append(attrs, logging.String(logging.FieldErrorHint, "closest catalogue title is "+suggestion))
			} else {
				attrs = append(attrs, logging.String(logging.FieldErrorHint, "add the song to the catalogue CSV"))
			}
			logging.WarnWithContext(logger, "planned song not in catalogue", "song_resolution_miss", attrs...)
			selection.Misses = append(selection.Misses, miss)
			continue
		}
		key := strings.ToLower(strings.TrimSpace(song.Title))
		if _, dup := seen[key]; dup {
			logger.Debug("duplicate song cue ignored", logging.String("title", song.Title))
			continue
		}
		seen[key] = struct{}{}
		resolved = append(resolved, song)
	}

	if len(resolved) == 0 {
		logger.Info("no songs resolved; broadcast is voice only",
			logging.Args(logging.DecisionAttrs("music", "voice_only", "no planned song matched the catalogue")...)...)
		return selection
	}
	closing := resolved[len(resolved)-1]
	selection.Closing = &closing
	selection.Bed = resolved[:len(resolved)-1]
	logger.Info("music selected",
		logging.String(logging.FieldEventType, "music_selected"),
		logging.Int("bed_songs", len(selection.Bed)),
		logging.String("closing_song", closing.Title),
		logging.Int("misses", len(selection.Misses)),
	)
	return selection
}
