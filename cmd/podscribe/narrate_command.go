package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"podscribe/internal/fetcher"
	"podscribe/internal/ipc"
	"podscribe/internal/logging"
	"podscribe/internal/queue"
	"podscribe/internal/services/llm"
	"podscribe/internal/tts"
	"podscribe/internal/workflow"
)

func newNarrateCommand(ctx *commandContext) *cobra.Command {
	var voice string
	var summaryPath string
	cmd := &cobra.Command{
		Use:   "narrate [job-id]",
		Short: "Synthesize speech from a completed job's summary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireOpenAI(); err != nil {
				return err
			}

			path := strings.TrimSpace(summaryPath)
			if path == "" {
				if len(args) == 0 {
					return errors.New("a job id or --summary path is required")
				}
				path, err = completedSummaryPath(ctx, strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
			}
			doc, err := workflow.ReadSummary(path)
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{
				Level:       firstNonEmpty(ctx.logLevel(), cfg.Logging.Level),
				Format:      "console",
				OutputPaths: []string{"stderr"},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			synth := tts.New(llm.NewClient(llm.FromConfig(cfg)), tts.Options{
				Model:     cfg.TTS.Model,
				Voice:     cfg.TTS.Voice,
				MaxChars:  cfg.TTS.MaxChars,
				OutputDir: cfg.Paths.AudioDir,
			}, logger)

			baseName := strings.TrimSpace(doc.JobID)
			if baseName == "" {
				baseName = fetcher.AudioBaseName(doc.SourceURL)
			}
			parts, err := synth.Synthesize(cmd.Context(), baseName, narrationScript(doc), voice)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, part := range parts {
				fmt.Fprintln(out, part)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&voice, "voice", "", "Voice name (defaults to tts.voice)")
	cmd.Flags().StringVar(&summaryPath, "summary", "", "Narrate this summary file instead of looking up a job")
	return cmd
}

func completedSummaryPath(ctx *commandContext, jobID string) (string, error) {
	var path string
	err := ctx.withClient(func(client *ipc.Client) error {
		resp, err := client.Status(jobID)
		if err != nil {
			return err
		}
		if resp.Job.Status != string(queue.StatusCompleted) {
			return fmt.Errorf("job %s is %s; only completed jobs can be narrated", jobID, resp.Job.Status)
		}
		if resp.Job.SummaryPath == "" {
			return fmt.Errorf("job %s has no summary (feed jobs are narrated per episode)", jobID)
		}
		path = resp.Job.SummaryPath
		return nil
	})
	return path, err
}

// narrationScript flattens a summary into prose suitable for speech.
func narrationScript(doc workflow.SummaryDocument) string {
	var b strings.Builder
	if title := strings.TrimSpace(doc.Title); title != "" {
		b.WriteString(title)
		b.WriteString(".\n\n")
	}
	b.WriteString(strings.TrimSpace(doc.ComprehensiveSummary))
	sections := []struct {
		heading string
		items   []string
	}{
		{"Key insights", doc.KeyInsights},
		{"Action items", doc.ActionItems},
		{"Wisdom", doc.Wisdom},
	}
	for _, section := range sections {
		if len(section.items) == 0 {
			continue
		}
		b.WriteString("\n\n")
		b.WriteString(section.heading)
		b.WriteString(".")
		for _, item := range section.items {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			b.WriteString("\n")
			b.WriteString(strings.TrimRight(item, ".") + ".")
		}
	}
	return strings.TrimSpace(b.String())
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
