package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"morningcast/internal/runstore"
)

type historyEntry struct {
	ID           string  `json:"id"`
	Slug         string  `json:"slug"`
	Status       string  `json:"status"`
	Provider     string  `json:"provider,omitempty"`
	SegmentCount int     `json:"segment_count"`
	AudioPath    string  `json:"audio_path,omitempty"`
	ErrorKind    string  `json:"error_kind,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
	StartedAt    string  `json:"started_at"`
	FinishedAt   string  `json:"finished_at,omitempty"`
	Elapsed      float64 `json:"elapsed_seconds,omitempty"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent broadcast runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *runstore.Store) error {
				runs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					entries := make([]historyEntry, 0, len(runs))
					for _, run := range runs {
						entries = append(entries, toHistoryEntry(run))
					}
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						truncate(run.ID, 8),
						run.Slug,
						string(run.Status),
						orDash(run.Provider),
						fmt.Sprintf("%d", run.SegmentCount),
						formatTimestamp(run.StartedAt),
						formatSeconds(run.Duration().Seconds()),
						runOutcome(run),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Date", "Status", "Voice", "Segments", "Started", "Took", "Result"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")
	return cmd
}

func runOutcome(run runstore.Run) string {
	switch {
	case run.AudioPath != "":
		return filepath.Base(run.AudioPath)
	case run.ErrorKind != "" && run.ErrorMessage != "":
		return truncate(run.ErrorKind+": "+run.ErrorMessage, 60)
	case run.ErrorKind != "":
		return run.ErrorKind
	default:
		return "-"
	}
}

func toHistoryEntry(run runstore.Run) historyEntry {
	entry := historyEntry{
		ID:           run.ID,
		Slug:         run.Slug,
		Status:       string(run.Status),
		Provider:     run.Provider,
		SegmentCount: run.SegmentCount,
		AudioPath:    run.AudioPath,
		ErrorKind:    run.ErrorKind,
		ErrorMessage: run.ErrorMessage,
		StartedAt:    run.StartedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Elapsed:      run.Duration().Seconds(),
	}
	if !run.FinishedAt.IsZero() {
		entry.FinishedAt = run.FinishedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return entry
}
