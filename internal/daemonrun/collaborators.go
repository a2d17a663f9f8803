package daemonrun

import (
	"fmt"
	"log/slog"

	"podscribe/internal/cache"
	"podscribe/internal/config"
	"podscribe/internal/fetcher"
	"podscribe/internal/logging"
	"podscribe/internal/notifications"
	"podscribe/internal/services/llm"
	"podscribe/internal/summarizer"
	"podscribe/internal/transcriber"
	"podscribe/internal/workflow"
)

// BuildCollaborators wires the production fetcher, transcriber, summarizer,
// notifier, and artifact cache from cfg. The returned close function releases the
// cache; it is never nil.
func BuildCollaborators(cfg *config.Config, logger *slog.Logger) (workflow.Collaborators, func() error, error) {
	noop := func() error { return nil }
	if err := cfg.RequireOpenAI(); err != nil {
		return workflow.Collaborators{}, noop, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	client := llm.NewClient(llm.FromConfig(cfg))
	backend, err := transcriber.New(cfg, client, logger)
	if err != nil {
		return workflow.Collaborators{}, noop, fmt.Errorf("transcriber: %w", err)
	}

	tokenizer, err := summarizer.NewTokenizer(cfg.Summary.Encoding)
	if err != nil {
		logger.Warn("tokenizer unavailable; using approximate token counts",
			logging.String(logging.FieldEventType, "tokenizer_fallback"),
			logging.String("encoding", cfg.Summary.Encoding),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access for tiktoken encodings or set summary.encoding"),
			logging.String(logging.FieldImpact, "long transcripts may be chunked less precisely"))
		tokenizer = summarizer.ApproxTokenizer{}
	}
	sum := summarizer.New(client, tokenizer, summarizer.Options{
		ChunkTokens:        cfg.Summary.ChunkTokens,
		ChunkOverlapTokens: cfg.Summary.ChunkOverlapTokens,
		DefaultLanguage:    cfg.Summary.TargetLanguage,
	}, logger)

	collab := workflow.Collaborators{
		Fetcher:     fetcher.New(fetcher.OptionsFromConfig(cfg), logger),
		Transcriber: backend,
		Summarizer:  sum,
		Notifier:    notifications.NewService(cfg),
	}

	closeFn := noop
	if cfg.Cache.Enabled {
		artifacts, cacheErr := cache.Open(cfg.Cache.Path, logger)
		if cacheErr != nil {
			logger.Warn("artifact cache unavailable; continuing without it",
				logging.String(logging.FieldEventType, "cache_open_failed"),
				logging.String("path", cfg.Cache.Path),
				logging.Error(cacheErr),
				logging.String(logging.FieldErrorHint, "delete the cache file or set cache.enabled = false"),
				logging.String(logging.FieldImpact, "repeat submissions download and transcribe again"))
		} else {
			collab.Cache = artifacts
			closeFn = artifacts.Close
		}
	}
	return collab, closeFn, nil
}
