package transcriber

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"podscribe/internal/config"
	"podscribe/internal/logging"
	"podscribe/internal/services"
	"podscribe/internal/services/llm"
)

// Result is one transcription.
type Result struct {
	Text     string
	Duration float64
	Language string
}

// Backend transcribes an audio file.
type Backend interface {
	Transcribe(ctx context.Context, audioPath string) (Result, error)
}

// New returns the backend named by cfg.Transcription.Backend.
func New(cfg *config.Config, client *llm.Client, logger *slog.Logger) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Transcription.Backend)) {
	case "", "whisper-cli":
		return NewWhisperCLI(cfg.Transcription.WhisperCommand, cfg.Transcription.WhisperModel, logger), nil
	case "openai":
		if client == nil {
			return nil, services.Wrap(services.ErrConfiguration, "transcribing", "select backend", "openai backend requires an api client", nil)
		}
		return NewHosted(client, cfg.Transcription.OpenAIModel, logger), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "transcribing", "select backend",
			fmt.Sprintf("unknown backend %q", cfg.Transcription.Backend), nil)
	}
}

// Transcriber is the subset of the hosted client used for uploads.
type Transcriber interface {
	Transcribe(ctx context.Context, model string, audio io.Reader) (llm.Transcription, error)
}

// Hosted uploads audio to the OpenAI transcription endpoint.
type Hosted struct {
	client Transcriber
	model  string
	logger *slog.Logger
}

// NewHosted builds the hosted backend.
func NewHosted(client Transcriber, model string, logger *slog.Logger) *Hosted {
	if logger == nil {
		logger = logging.NewNop()
	}
	if model == "" {
		model = "whisper-1"
	}
	return &Hosted{client: client, model: model, logger: logging.NewComponentLogger(logger, "transcriber")}
}

// Transcribe implements Backend.
func (h *Hosted) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrNotFound, "transcribing", "open audio", filepath.Base(audioPath), err)
	}
	defer f.Close()

	out, err := h.client.Transcribe(ctx, h.model, f)
	if err != nil {
		return Result{}, err
	}
	h.logger.Debug("hosted transcription complete",
		logging.String("audio", audioPath),
		logging.String("language", out.Language),
		logging.Float64("duration_seconds", out.Duration))
	return Result{Text: out.Text, Duration: out.Duration, Language: out.Language}, nil
}
