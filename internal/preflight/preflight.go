package preflight

import (
	"context"
	"strings"

	"podscribe/internal/config"
	"podscribe/internal/services/llm"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Downloads directory", cfg.Paths.DownloadsDir),
		CheckDirectoryAccess("Transcripts directory", cfg.Paths.TranscriptsDir),
		CheckDirectoryAccess("Summaries directory", cfg.Paths.SummariesDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
		results = append(results, Result{Name: "OpenAI API", Detail: "API key missing (set OPENAI_API_KEY)"})
	} else {
		results = append(results, CheckLLM(ctx, "OpenAI API", llm.FromConfig(cfg)))
	}

	if strings.TrimSpace(cfg.Fetcher.SearchURL) != "" {
		results = append(results, CheckSearchEndpoint(ctx, cfg.Fetcher.SearchURL))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
