package main

import (
	"github.com/spf13/cobra"

	"podscribe/internal/daemonrun"
)

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var inProcess bool
	cmd := &cobra.Command{
		Use:          "daemon",
		Short:        "Run the podscribe daemon in the foreground",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				ConfigPath: ctx.resolvedConfigPath(),
				LogLevel:   ctx.logLevel(),
				InProcess:  inProcess,
			})
		},
	}
	cmd.Flags().BoolVar(&inProcess, "in-process", false, "Run workers as goroutines instead of child processes")
	return cmd
}

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	var workerID string
	cmd := &cobra.Command{
		Use:          "worker",
		Short:        "Run one pipeline worker (launched by the daemon)",
		Hidden:       true,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.RunWorker(cmd.Context(), cfg, workerID, daemonrun.Options{
				LogLevel: ctx.logLevel(),
			})
		},
	}
	cmd.Flags().StringVar(&workerID, "id", "", "Worker identifier assigned by the supervisor")
	return cmd
}
