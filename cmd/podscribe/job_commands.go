package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"podscribe/internal/ipc"
)

func newJobCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newSubmitCommand(ctx),
		newStatusCommand(ctx),
		newHistoryCommand(ctx),
		newEpisodesCommand(ctx),
		newRetryCommand(ctx),
	}
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var feed bool
	var lang string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "submit <url>",
		Short: "Queue an episode or podcast feed for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Submit(ipc.SubmitRequest{
					URL:            strings.TrimSpace(args[0]),
					Feed:           feed,
					TargetLanguage: strings.TrimSpace(lang),
				})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Job)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s job %s\n", resp.Job.Kind, resp.Job.JobID)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&feed, "feed", false, "Treat the URL as an RSS/Atom feed and process every episode")
	cmd.Flags().StringVar(&lang, "lang", "", "Summary language (defaults to summary.target_language)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the queued job as JSON")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status [job-id]",
		Short: "Show daemon status, or one job's status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return printSystemStatus(cmd, ctx)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status(strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Job)
				}
				for _, line := range jobDetailLines(resp.Job) {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the job as JSON")
	return cmd
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List jobs newest first with feed episodes nested",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				rows := buildHistoryRows(resp.Jobs)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs yet")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(jobColumns, rows))
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print history as JSON")
	return cmd
}

func newEpisodesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "episodes <feed-job-id>",
		Short: "List the episode jobs created from a feed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.FeedChildren(strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				rows := buildJobRows(resp.Episodes, "")
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Feed has no episodes yet")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(jobColumns, rows))
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print episodes as JSON")
	return cmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <job-id>",
		Short: "Resubmit a failed job as a new job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Retry(strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retrying as job %s\n", resp.Job.JobID)
				return nil
			})
		},
	}
}
