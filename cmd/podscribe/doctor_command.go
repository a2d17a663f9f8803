package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"podscribe/internal/daemonctl"
	"podscribe/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, API access, and external tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(out, line)
			}
			deps := daemonctl.ResolveDependencies(cmd.Context(), cfg)
			for _, line := range dependencyLines(deps, colorize) {
				fmt.Fprintln(out, line)
			}

			failures := len(preflight.Failed(results))
			for _, dep := range deps {
				if !dep.Available && !dep.Optional {
					failures++
				}
			}
			if failures > 0 {
				return errors.New("doctor found problems; see the report above")
			}
			return nil
		},
	}
}
