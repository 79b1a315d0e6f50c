package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"morningcast/internal/catalog"
	"morningcast/internal/config"
	"morningcast/internal/media/hook"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and build the song catalogue",
	}
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogScanCommand(ctx))
	return catalogCmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalogue songs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			songs, err := catalog.Load(cfg.Paths.SongsCSV)
			if err != nil {
				return err
			}
			if jsonOutput {
				list := songs.Songs()
				if list == nil {
					list = []catalog.Song{}
				}
				return writeJSON(cmd, list)
			}
			out := cmd.OutOrStdout()
			if songs.Len() == 0 {
				fmt.Fprintf(out, "No songs in %s\n", cfg.Paths.SongsCSV)
				return nil
			}
			rows := make([][]string, 0, songs.Len())
			for i, song := range songs.Songs() {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					song.Title,
					orDash(song.Artist),
					formatOptional(song.BPM),
					formatOptional(song.Energy),
					song.Path,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Title", "Artist", "BPM", "Energy", "Path"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "%d songs\n", songs.Len())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print songs as JSON")
	return cmd
}

func newCatalogScanCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var skipAnalysis bool
	cmd := &cobra.Command{
		Use:   "scan DIR",
		Short: "Build the catalogue CSV from a music directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			dir, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			target := cfg.Paths.SongsCSV
			if strings.TrimSpace(outputPath) != "" {
				if target, err = config.ExpandPath(outputPath); err != nil {
					return err
				}
			}

			var measurer catalog.Measurer
			if !skipAnalysis {
				measurer = hook.NewLocator(cfg.FFmpegBinary(), hookWindow(cfg))
			}
			songs, err := catalog.NewScanner(cfg.FFprobeBinary(), measurer, logger).Scan(cmd.Context(), dir)
			if err != nil {
				return err
			}
			if err := catalog.WriteCSV(target, songs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d songs to %s\n", len(songs), filepath.Clean(target))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Catalogue CSV to write (default: paths.songs_csv)")
	cmd.Flags().BoolVar(&skipAnalysis, "skip-analysis", false, "Skip tempo and energy measurement")
	return cmd
}

func hookWindow(cfg *config.Config) hook.Window {
	return hook.Window{Start: cfg.Hook.WindowStart, End: cfg.Hook.WindowEnd}
}
