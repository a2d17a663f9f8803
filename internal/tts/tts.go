// Package tts narrates text through the speech API, splitting long input into
// numbered mp3 parts.
package tts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"podscribe/internal/fileutil"
	"podscribe/internal/logging"
	"podscribe/internal/services"
)

// Speaker synthesizes one request worth of text.
type Speaker interface {
	Speech(ctx context.Context, model, voice, text string) (io.ReadCloser, error)
}

// Options configure synthesis.
type Options struct {
	Model     string
	Voice     string
	MaxChars  int
	OutputDir string
}

// Synthesizer writes narration files.
type Synthesizer struct {
	speaker Speaker
	opts    Options
	logger  *slog.Logger
}

// New builds a Synthesizer.
func New(speaker Speaker, opts Options, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = 4096
	}
	if opts.Voice == "" {
		opts.Voice = "alloy"
	}
	if opts.Model == "" {
		opts.Model = "tts-1"
	}
	return &Synthesizer{speaker: speaker, opts: opts, logger: logging.NewComponentLogger(logger, "tts")}
}

// Synthesize narrates text with voiceHint (empty uses the configured voice)
// and returns the written part paths in playback order. baseName prefixes
// every part file.
func (s *Synthesizer) Synthesize(ctx context.Context, baseName, text, voiceHint string) ([]string, error) {
	parts := SplitText(text, s.opts.MaxChars)
	if len(parts) == 0 {
		return nil, services.Wrap(services.ErrValidation, "narrating", "synthesize", "text is empty", nil)
	}
	voice := strings.ToLower(strings.TrimSpace(voiceHint))
	if voice == "" {
		voice = s.opts.Voice
	}
	if err := os.MkdirAll(s.opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio directory: %w", err)
	}

	paths := make([]string, 0, len(parts))
	for i, part := range parts {
		target := filepath.Join(s.opts.OutputDir, fmt.Sprintf("%s-part%02d.mp3", baseName, i+1))
		if err := s.writePart(ctx, target, voice, part); err != nil {
			return paths, fmt.Errorf("part %d/%d: %w", i+1, len(parts), err)
		}
		paths = append(paths, target)
		s.logger.Debug("narration part written",
			logging.String("path", target),
			logging.Int("chars", utf8.RuneCountInString(part)))
	}
	s.logger.Info("narration complete",
		logging.String(logging.FieldEventType, "narration_complete"),
		logging.String("voice", voice),
		logging.Int("parts", len(paths)))
	return paths, nil
}

func (s *Synthesizer) writePart(ctx context.Context, target, voice, text string) error {
	body, err := s.speaker.Speech(ctx, s.opts.Model, voice, text)
	if err != nil {
		return err
	}
	defer body.Close()

	if _, err := fileutil.WriteStreamAtomic(target, body); err != nil {
		return services.Wrap(services.ErrTransient, "narrating", "download audio", "", err)
	}
	return nil
}

// SplitText breaks text into pieces of at most maxChars runes, preferring
// sentence ends, then whitespace.
func SplitText(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxChars <= 0 {
		return []string{text}
	}

	var parts []string
	runes := []rune(text)
	for len(runes) > 0 {
		if len(runes) <= maxChars {
			parts = append(parts, strings.TrimSpace(string(runes)))
			break
		}
		cut := breakPoint(runes[:maxChars])
		piece := strings.TrimSpace(string(runes[:cut]))
		if piece != "" {
			parts = append(parts, piece)
		}
		runes = []rune(strings.TrimLeftFunc(string(runes[cut:]), unicode.IsSpace))
	}
	return parts
}

func breakPoint(window []rune) int {
	for i := len(window) - 1; i > len(window)/2; i-- {
		switch window[i] {
		case '.', '!', '?', '\n':
			return i + 1
		}
	}
	for i := len(window) - 1; i > 0; i-- {
		if unicode.IsSpace(window[i]) {
			return i
		}
	}
	return len(window)
}
