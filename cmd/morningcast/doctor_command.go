package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"morningcast/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check binaries, files and service credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			statuses := preflight.CheckSystemDeps(cfg)
			results := preflight.RunAll(cmd.Context(), cfg)

			var lines []string
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			lines = append(lines, dependencyLines(statuses, colorize)...)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Configuration", colorize)...)
			lines = append(lines, checkLines(results, colorize)...)
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}

			if dependenciesMissing(statuses) || preflight.Failed(results) {
				return errors.New("doctor found problems; fix the ERROR lines above")
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Ready to broadcast")
			return nil
		},
	}
}
