package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"podscribe/internal/api"
	"podscribe/internal/daemonctl"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startInProcess bool
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the podscribe daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx, startInProcess),
				15*time.Second,
			)
			if err != nil {
				return err
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			}
			return nil
		},
	}
	startCmd.Flags().BoolVar(&startInProcess, "in-process", false, "Run workers as goroutines instead of child processes")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the podscribe daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg := ctx.configValue()
			grace := 15 * time.Second
			if cfg != nil {
				grace = cfg.ShutdownTimeout() + 5*time.Second
			}
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), cfg, grace)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd}
}

// printSystemStatus renders the daemon snapshot. It works offline by reading
// the queue directly.
func printSystemStatus(cmd *cobra.Command, ctx *commandContext) error {
	cfg := ctx.configValue()
	statusResp, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
	if err != nil {
		return err
	}

	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	for _, line := range renderSectionHeader("System Status", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, line := range daemonLines(statusResp, colorize) {
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, line := range dependencyLines(statusResp.Dependencies, colorize) {
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprintln(stdout)

	if statusResp.Running {
		for _, line := range renderSectionHeader("Workers", colorize) {
			fmt.Fprintln(stdout, line)
		}
		if rows := buildWorkerRows(statusResp.Pool); len(rows) > 0 {
			fmt.Fprint(stdout, renderTable([]tableColumn{col("Worker"), col("PID").right(), col("Alive"), col("Started")}, rows))
			fmt.Fprintln(stdout)
		} else {
			fmt.Fprintln(stdout, "No workers running (the pool starts on the first submission)")
		}
		fmt.Fprintln(stdout)
	}

	for _, line := range renderSectionHeader("Queue Status", colorize) {
		fmt.Fprintln(stdout, line)
	}
	rows := buildQueueStatusRows(statusResp.QueueStats)
	if len(rows) == 0 {
		fmt.Fprintln(stdout, "Queue is empty")
		return nil
	}
	fmt.Fprint(stdout, renderTable([]tableColumn{col("Status"), col("Count").right()}, rows))
	fmt.Fprintln(stdout)
	return nil
}

func daemonLines(status *api.DaemonStatus, colorize bool) []string {
	if !status.Running {
		return []string{
			renderStatusLine("Daemon", statusInfo, "Not running", colorize),
			renderStatusLine("Queue", statusInfo, status.QueueDir, colorize),
		}
	}
	lines := []string{
		renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d, since %s)", status.PID, formatDisplayTime(status.StartedAt)), colorize),
		renderStatusLine("Queue", statusInfo, status.QueueDir, colorize),
	}
	if status.APIAddress != "" {
		lines = append(lines, renderStatusLine("HTTP API", statusOK, status.APIAddress, colorize))
	} else {
		lines = append(lines, renderStatusLine("HTTP API", statusInfo, "Disabled", colorize))
	}
	pool := status.Pool
	switch {
	case pool.ShuttingDown:
		lines = append(lines, renderStatusLine("Worker Pool", statusWarn, "Shutting down", colorize))
	case pool.Started:
		lines = append(lines, renderStatusLine("Worker Pool", statusOK,
			fmt.Sprintf("%d/%d workers, %d restarts", len(pool.Workers), pool.DesiredWorkers, pool.Restarts), colorize))
	default:
		lines = append(lines, renderStatusLine("Worker Pool", statusInfo, "Idle", colorize))
	}
	return lines
}

func dependencyLines(deps []api.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps)+1)
	missing := make([]string, 0)
	for _, dep := range deps {
		if dep.Available {
			var notes []string
			if dep.Command != "" {
				notes = append(notes, "command: "+dep.Command)
			}
			if dep.Version != "" {
				notes = append(notes, "version: "+dep.Version)
			}
			message := "Ready"
			if len(notes) > 0 {
				message = fmt.Sprintf("Ready (%s)", strings.Join(notes, ", "))
			}
			kind := statusOK
			if dep.Detail != "" {
				kind = statusWarn
				message += "; " + dep.Detail
			}
			lines = append(lines, renderStatusLine(dep.Name, kind, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext, inProcess bool) daemonctl.LaunchOptions {
	return daemonctl.LaunchOptions{
		ConfigPath: ctx.resolvedConfigPath(),
		InProcess:  inProcess,
		LogLevel:   ctx.logLevel(),
	}
}
