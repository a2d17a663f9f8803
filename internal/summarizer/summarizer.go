package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"podscribe/internal/logging"
	"podscribe/internal/services"
	"podscribe/internal/services/llm"
)

// Summary is the structured result of summarizing one transcript.
type Summary struct {
	ComprehensiveSummary string   `json:"comprehensive_summary"`
	KeyInsights          []string `json:"key_insights"`
	ActionItems          []string `json:"action_items"`
	Wisdom               []string `json:"wisdom"`
}

// Completer issues one JSON chat completion.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Options configure token budgeting.
type Options struct {
	ChunkTokens        int
	ChunkOverlapTokens int
	DefaultLanguage    string
}

// Summarizer runs single-pass or map-reduce summarization.
type Summarizer struct {
	client    Completer
	tokenizer Tokenizer
	opts      Options
	logger    *slog.Logger
}

// New builds a Summarizer. A nil tokenizer falls back to ApproxTokenizer.
func New(client Completer, tokenizer Tokenizer, opts Options, logger *slog.Logger) *Summarizer {
	if tokenizer == nil {
		tokenizer = ApproxTokenizer{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.ChunkTokens <= 0 {
		opts.ChunkTokens = 2000
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = "en"
	}
	return &Summarizer{
		client:    client,
		tokenizer: tokenizer,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "summarizer"),
	}
}

// Summarize produces a summary of transcript written in targetLanguage
// (a BCP 47 tag; empty uses the configured default).
func (s *Summarizer) Summarize(ctx context.Context, transcript, targetLanguage string) (Summary, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return Summary{}, services.Wrap(services.ErrValidation, "summarizing", "summarize", "transcript is empty", nil)
	}
	if strings.TrimSpace(targetLanguage) == "" {
		targetLanguage = s.opts.DefaultLanguage
	}
	languageName, err := LanguageName(targetLanguage)
	if err != nil {
		return Summary{}, services.Wrap(services.ErrValidation, "summarizing", "summarize", "target language", err)
	}

	tokens := s.tokenizer.Count(transcript)
	if tokens <= s.opts.ChunkTokens {
		s.logger.Debug("single pass summary",
			logging.Int("tokens", tokens),
			logging.String("language", languageName))
		return s.complete(ctx, finalPrompt(languageName, transcript))
	}

	chunks := s.tokenizer.Chunk(transcript, s.opts.ChunkTokens, s.opts.ChunkOverlapTokens)
	s.logger.Info("map-reduce summary",
		logging.String(logging.FieldEventType, "summary_chunked"),
		logging.Int("tokens", tokens),
		logging.Int("chunks", len(chunks)),
		logging.String("language", languageName))

	var notes []string
	for i, chunk := range chunks {
		content, err := s.client.CompleteJSON(ctx, systemPrompt, mapPrompt(i+1, len(chunks), chunk))
		if err != nil {
			return Summary{}, fmt.Errorf("summarize section %d/%d: %w", i+1, len(chunks), err)
		}
		var partial struct {
			Notes []string `json:"notes"`
		}
		if err := llm.DecodeJSON(content, &partial); err != nil {
			return Summary{}, services.Wrap(services.ErrMalformedResponse, "summarizing", "map", fmt.Sprintf("section %d", i+1), err)
		}
		for _, note := range partial.Notes {
			if note = strings.TrimSpace(note); note != "" {
				notes = append(notes, "- "+note)
			}
		}
	}
	if len(notes) == 0 {
		return Summary{}, services.Wrap(services.ErrMalformedResponse, "summarizing", "map", "no notes extracted", nil)
	}
	return s.complete(ctx, reducePrompt(languageName, strings.Join(notes, "\n")))
}

func (s *Summarizer) complete(ctx context.Context, prompt string) (Summary, error) {
	content, err := s.client.CompleteJSON(ctx, systemPrompt, prompt)
	if err != nil {
		return Summary{}, err
	}
	return parseSummary(content)
}

func parseSummary(content string) (Summary, error) {
	var summary Summary
	if err := llm.DecodeJSON(content, &summary); err != nil {
		return Summary{}, services.Wrap(services.ErrMalformedResponse, "summarizing", "parse summary", "", err)
	}
	summary.ComprehensiveSummary = strings.TrimSpace(summary.ComprehensiveSummary)
	if summary.ComprehensiveSummary == "" {
		return Summary{}, services.Wrap(services.ErrMalformedResponse, "summarizing", "parse summary", "comprehensive_summary is empty", nil)
	}
	summary.KeyInsights = compact(summary.KeyInsights)
	summary.ActionItems = compact(summary.ActionItems)
	summary.Wisdom = compact(summary.Wisdom)
	return summary, nil
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LanguageName returns the English display name for a BCP 47 tag.
func LanguageName(tag string) (string, error) {
	parsed, err := language.Parse(strings.TrimSpace(tag))
	if err != nil {
		return "", err
	}
	name := display.English.Tags().Name(parsed)
	if name == "" {
		return parsed.String(), nil
	}
	return name, nil
}
