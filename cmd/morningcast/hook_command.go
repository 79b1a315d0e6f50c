package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"morningcast/internal/config"
	"morningcast/internal/media/hook"
)

type hookReport struct {
	Path     string      `json:"path"`
	Duration float64     `json:"duration_seconds"`
	BPM      float64     `json:"bpm"`
	Energy   float64     `json:"energy"`
	Hook     hook.Result `json:"hook"`
	Window   hook.Window `json:"window"`
}

func newHookCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "hook FILE",
		Short: "Locate the hook of a song and measure its tempo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			window := hookWindow(cfg)
			features, err := hook.NewLocator(cfg.FFmpegBinary(), window).Measure(cmd.Context(), path)
			if err != nil {
				return err
			}
			report := hookReport{
				Path:     path,
				Duration: features.Duration,
				BPM:      features.BPM,
				Energy:   features.Energy,
				Hook:     features.Hook,
				Window:   window,
			}
			if jsonOutput {
				return writeJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File:      %s\n", report.Path)
			fmt.Fprintf(out, "Duration:  %.1fs\n", report.Duration)
			fmt.Fprintf(out, "Hook:      %.2fs (strength %.3f, in %g-%gs window: %s)\n",
				report.Hook.TimeSeconds, report.Hook.Strength, window.Start, window.End, yesNo(report.Hook.InWindow))
			fmt.Fprintf(out, "Tempo:     %.1f BPM\n", report.BPM)
			fmt.Fprintf(out, "Energy:    %.3f\n", report.Energy)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the analysis as JSON")
	return cmd
}
