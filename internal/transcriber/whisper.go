package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"podscribe/internal/logging"
	"podscribe/internal/services"
)

// WhisperCLI runs the openai-whisper command line tool.
type WhisperCLI struct {
	command       string
	model         string
	logger        *slog.Logger
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewWhisperCLI builds the local backend.
func NewWhisperCLI(command, model string, logger *slog.Logger) *WhisperCLI {
	if logger == nil {
		logger = logging.NewNop()
	}
	if command == "" {
		command = "whisper"
	}
	if model == "" {
		model = "base"
	}
	return &WhisperCLI{command: command, model: model, logger: logging.NewComponentLogger(logger, "transcriber")}
}

// WithCommandRunner sets a custom command runner (for testing).
func (w *WhisperCLI) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	w.commandRunner = runner
}

// Command returns the configured executable.
func (w *WhisperCLI) Command() string {
	return w.command
}

// Transcribe implements Backend. whisper writes <stem>.json into a scratch
// directory which is parsed and removed.
func (w *WhisperCLI) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return Result{}, services.Wrap(services.ErrNotFound, "transcribing", "stat audio", filepath.Base(audioPath), err)
	}
	workDir, err := os.MkdirTemp("", "podscribe-whisper-")
	if err != nil {
		return Result{}, fmt.Errorf("transcribe: scratch dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	args := []string{
		audioPath,
		"--model", w.model,
		"--output_format", "json",
		"--output_dir", workDir,
		"--verbose", "False",
	}
	if err := w.run(ctx, w.command, args...); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "transcribing", "whisper", "", err)
	}

	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	result, err := loadWhisperJSON(filepath.Join(workDir, stem+".json"))
	if err != nil {
		return Result{}, services.Wrap(services.ErrMalformedResponse, "transcribing", "parse whisper output", "", err)
	}
	w.logger.Debug("whisper transcription complete",
		logging.String("audio", audioPath),
		logging.String("language", result.Language),
		logging.Float64("duration_seconds", result.Duration))
	return result, nil
}

func (w *WhisperCLI) run(ctx context.Context, name string, args ...string) error {
	if w.commandRunner != nil {
		return w.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

type whisperSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperPayload struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []whisperSegment `json:"segments"`
}

func loadWhisperJSON(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	var payload whisperPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Result{}, fmt.Errorf("parse whisper json: %w", err)
	}
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		parts := make([]string, 0, len(payload.Segments))
		for _, seg := range payload.Segments {
			if s := strings.TrimSpace(seg.Text); s != "" {
				parts = append(parts, s)
			}
		}
		text = strings.Join(parts, " ")
	}
	if text == "" {
		return Result{}, fmt.Errorf("whisper produced an empty transcript")
	}
	var duration float64
	if n := len(payload.Segments); n > 0 {
		duration = payload.Segments[n-1].End
	}
	return Result{Text: text, Duration: duration, Language: payload.Language}, nil
}
