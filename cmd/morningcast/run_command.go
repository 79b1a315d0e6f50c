package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"morningcast/internal/broadcast"
	"morningcast/internal/catalog"
	"morningcast/internal/persona"
	"morningcast/internal/runstore"
)

type runSummary struct {
	RunID      string               `json:"run_id"`
	Slug       string               `json:"slug"`
	Title      string               `json:"title"`
	Provider   string               `json:"provider"`
	Segments   int                  `json:"segments"`
	BedSongs   []string             `json:"bed_songs"`
	Closing    string               `json:"closing_song,omitempty"`
	Misses     []broadcast.SongMiss `json:"song_misses,omitempty"`
	Duration   float64              `json:"duration_seconds"`
	Artifacts  broadcast.Artifacts  `json:"artifacts"`
	ElapsedSec float64              `json:"elapsed_seconds"`
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var dateFlag string
	var keepWorkDir bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Produce the broadcast for today (or --date)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			date, err := broadcastDate(dateFlag, cfg.Broadcast.Timezone)
			if err != nil {
				return err
			}
			if keepWorkDir {
				cfg.Broadcast.KeepWorkDir = true
			}

			songs, err := catalog.Load(cfg.Paths.SongsCSV)
			if err != nil {
				return fmt.Errorf("%w (run 'morningcast catalog scan DIR' to build it)", err)
			}
			host, err := persona.Load(cfg.Paths.PersonaFile)
			if err != nil {
				return err
			}

			return ctx.withStore(func(store *runstore.Store) error {
				coord, err := broadcast.NewFromConfig(cfg, store, logger)
				if err != nil {
					return err
				}
				started := time.Now()
				inputs := broadcast.Gather(cmd.Context(), broadcast.SourcesFromConfig(cfg, logger), logger)
				result, err := coord.Run(cmd.Context(), broadcast.Request{
					Date:    date,
					Inputs:  inputs,
					Catalog: songs,
					Persona: host,
				})
				if err != nil {
					return err
				}
				summary := summarizeRun(result, time.Since(started))
				if jsonOutput {
					return writeJSON(cmd, summary)
				}
				printRunSummary(cmd, summary)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "Broadcast date as YYYY-MM-DD (default: today in broadcast.timezone)")
	cmd.Flags().BoolVar(&keepWorkDir, "keep-workdir", false, "Keep intermediate files under <output>/tmp")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run summary as JSON")
	return cmd
}

// broadcastDate parses value in the broadcast time zone, falling back to
// local time when the zone is unknown.
func broadcastDate(value, timezone string) (time.Time, error) {
	loc := time.Local
	if tz := strings.TrimSpace(timezone); tz != "" {
		if loaded, err := time.LoadLocation(tz); err == nil {
			loc = loaded
		}
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Now().In(loc), nil
	}
	date, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", value)
	}
	return date, nil
}

func summarizeRun(result broadcast.Result, elapsed time.Duration) runSummary {
	summary := runSummary{
		RunID:      result.RunID,
		Slug:       result.Slug,
		Title:      result.Title,
		Provider:   result.Speech.Provider,
		Segments:   len(result.Plan.Segments),
		BedSongs:   []string{},
		Misses:     result.Music.Misses,
		Duration:   result.Duration,
		Artifacts:  result.Artifacts,
		ElapsedSec: elapsed.Round(time.Millisecond).Seconds(),
	}
	for _, song := range result.Music.Bed {
		summary.BedSongs = append(summary.BedSongs, song.Title)
	}
	if result.Music.Closing != nil {
		summary.Closing = result.Music.Closing.Title
	}
	return summary
}

func printRunSummary(cmd *cobra.Command, s runSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Broadcast ready: %s\n", s.Artifacts.Final)
	fmt.Fprintf(out, "  Title:      %s\n", s.Title)
	fmt.Fprintf(out, "  Duration:   %s\n", formatSeconds(s.Duration))
	fmt.Fprintf(out, "  Voice:      %s\n", orDash(s.Provider))
	fmt.Fprintf(out, "  Segments:   %d\n", s.Segments)
	bed := "-"
	if len(s.BedSongs) > 0 {
		bed = strings.Join(s.BedSongs, ", ")
	}
	fmt.Fprintf(out, "  Music bed:  %s\n", bed)
	fmt.Fprintf(out, "  Closing:    %s\n", orDash(s.Closing))
	for _, miss := range s.Misses {
		if miss.Suggestion != "" {
			fmt.Fprintf(out, "  Not found:  %s (did you mean %q?)\n", miss.Title, miss.Suggestion)
		} else {
			fmt.Fprintf(out, "  Not found:  %s\n", miss.Title)
		}
	}
	fmt.Fprintf(out, "  Transcript: %s\n", s.Artifacts.Transcript)
	fmt.Fprintf(out, "  Plan:       %s\n", s.Artifacts.Plan)
}
