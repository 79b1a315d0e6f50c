package catalog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"morningcast/internal/textutil"
)

// Song is one catalogue entry. BPM and Energy are nil when unknown.
type Song struct {
	Title  string   `json:"title"`
	Artist string   `json:"artist,omitempty"`
	Path   string   `json:"path"`
	BPM    *float64 `json:"bpm"`
	Energy *float64 `json:"energy"`
}

var fieldAliases = map[string]string{
	"title":     "title",
	"name":      "title",
	"artist":    "artist",
	"singer":    "artist",
	"path":      "path",
	"filepath":  "path",
	"file":      "path",
	"bpm":       "bpm",
	"tempo":     "bpm",
	"energy":    "energy",
	"intensity": "energy",
}

// Catalog is an ordered song list with case-insensitive title lookup.
type Catalog struct {
	songs []Song
	index map[string]int
}

// New indexes songs. When titles collide the first entry wins.
func New(songs []Song) *Catalog {
	c := &Catalog{songs: songs, index: make(map[string]int, len(songs))}
	for i, song := range songs {
		key := titleKey(song.Title)
		if _, exists := c.index[key]; !exists {
			c.index[key] = i
		}
	}
	return c
}

func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// Songs returns the entries in file order.
func (c *Catalog) Songs() []Song {
	if c == nil {
		return nil
	}
	return c.songs
}

// Len returns the number of songs.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.songs)
}

// Find looks title up case-insensitively.
func (c *Catalog) Find(title string) (Song, bool) {
	if c == nil {
		return Song{}, false
	}
	idx, ok := c.index[titleKey(title)]
	if !ok {
		return Song{}, false
	}
	return c.songs[idx], true
}

// Suggest returns the closest catalogue title for a miss, for log hints.
func (c *Catalog) Suggest(title string) (string, bool) {
	if c == nil {
		return "", false
	}
	titles := make([]string, 0, len(c.songs))
	for _, song := range c.songs {
		titles = append(titles, song.Title)
	}
	match, _, ok := textutil.Closest(title, titles, 0.5)
	return match, ok
}

// Load reads a catalogue CSV. A UTF-8 byte order mark is tolerated, relative
// paths resolve against the CSV's directory and rows without a title or
// path are skipped.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read song catalogue: %w", err)
	}
	songs, err := parse(bytes.TrimPrefix(data, []byte("\uFEFF")), filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("parse song catalogue %s: %w", path, err)
	}
	return New(songs), nil
}

func parse(data []byte, baseDir string) ([]Song, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		if canonical, ok := fieldAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
			if _, seen := columns[canonical]; !seen {
				columns[canonical] = i
			}
		}
	}
	if _, ok := columns["title"]; !ok {
		return nil, errors.New("header has no title column")
	}
	if _, ok := columns["path"]; !ok {
		return nil, errors.New("header has no path column")
	}

	var songs []Song
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		field := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}
		song := Song{
			Title:  field("title"),
			Artist: field("artist"),
			Path:   field("path"),
			BPM:    parseOptional(field("bpm")),
			Energy: parseOptional(field("energy")),
		}
		if song.Title == "" || song.Path == "" {
			continue
		}
		if !filepath.IsAbs(song.Path) {
			song.Path = filepath.Join(baseDir, filepath.FromSlash(song.Path))
		}
		songs = append(songs, song)
	}
	return songs, nil
}

func parseOptional(value string) *float64 {
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &parsed
}

// WriteCSV writes songs with the canonical header. Paths under the CSV's
// directory are written relative to it with forward slashes.
func WriteCSV(path string, songs []Song) error {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	_ = writer.Write([]string{"title", "artist", "path", "bpm", "energy"})
	baseDir := filepath.Dir(path)
	for _, song := range songs {
		songPath := song.Path
		if rel, err := filepath.Rel(baseDir, songPath); err == nil && !strings.HasPrefix(rel, "..") {
			songPath = filepath.ToSlash(rel)
		}
		_ = writer.Write([]string{song.Title, song.Artist, songPath, formatOptional(song.BPM), formatOptional(song.Energy)})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("encode song catalogue: %w", err)
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return fmt.Errorf("create catalogue dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write song catalogue: %w", err)
	}
	return nil
}

func formatOptional(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}
