package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir        string `toml:"data_dir"`
	DownloadsDir   string `toml:"downloads_dir"`
	TranscriptsDir string `toml:"transcripts_dir"`
	SummariesDir   string `toml:"summaries_dir"`
	AudioDir       string `toml:"audio_dir"`
	LogDir         string `toml:"log_dir"`
	APIBind        string `toml:"api_bind"`
	APIToken       string `toml:"api_token"`
}

// OpenAI contains connection settings shared by the summarizer, TTS, and the
// hosted transcription backend.
type OpenAI struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	MaxTokens      int     `toml:"max_tokens"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Transcription selects and configures the transcriber backend.
type Transcription struct {
	Backend        string `toml:"backend"` // "whisper-cli" or "openai"
	WhisperCommand string `toml:"whisper_command"`
	WhisperModel   string `toml:"whisper_model"`
	OpenAIModel    string `toml:"openai_model"`
}

// Summary configures summarization defaults and token budgeting.
type Summary struct {
	TargetLanguage     string `toml:"target_language"`
	ChunkTokens        int    `toml:"chunk_tokens"`
	ChunkOverlapTokens int    `toml:"chunk_overlap_tokens"`
	Encoding           string `toml:"encoding"`
}

// TTS configures speech synthesis for narration.
type TTS struct {
	Model    string `toml:"model"`
	Voice    string `toml:"voice"`
	MaxChars int    `toml:"max_chars"`
}

// Fetcher configures feed retrieval, audio download, and directory search.
type Fetcher struct {
	YtDlpBinary           string `toml:"ytdlp_binary"`
	AudioFormat           string `toml:"audio_format"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	MaxEpisodes           int    `toml:"max_episodes"`
	SearchURL             string `toml:"search_url"`
	SearchLimit           int    `toml:"search_limit"`
}

// Workflow contains worker pool sizing and timing.
type Workflow struct {
	Workers                int  `toml:"workers"`
	PollIntervalMillis     int  `toml:"poll_interval_ms"`
	HealthIntervalSeconds  int  `toml:"health_interval_seconds"`
	ShutdownTimeoutSeconds int  `toml:"shutdown_timeout_seconds"`
	RequeueInFlight        bool `toml:"requeue_in_flight"`
}

// Cache configures the shared artifact cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Notifications configures ntfy alerts for finished and failed jobs.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for podscribe.
//
// Configuration sections by subsystem:
//   - Paths: data, artifact, and log directories plus the HTTP bind address
//   - OpenAI: chat/speech/transcription API connection
//   - Transcription: whisper CLI or hosted transcription backend
//   - Summary: default target language and chunk budgeting
//   - TTS: narration model and voice
//   - Fetcher: yt-dlp, feed timeouts, directory search
//   - Workflow: worker count, poll/health intervals, shutdown bound
//   - Cache: SQLite artifact cache
//   - Notifications: ntfy topic for job alerts
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	OpenAI        OpenAI        `toml:"openai"`
	Transcription Transcription `toml:"transcription"`
	Summary       Summary       `toml:"summary"`
	TTS           TTS           `toml:"tts"`
	Fetcher       Fetcher       `toml:"fetcher"`
	Workflow      Workflow      `toml:"workflow"`
	Cache         Cache         `toml:"cache"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file beside the config file or in the
// working directory is loaded first so OPENAI_API_KEY can live outside the TOML.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if err := loadDotEnv(filepath.Dir(resolvedPath)); err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("podscribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// loadDotEnv loads .env files without overriding variables already set.
func loadDotEnv(configDir string) error {
	candidates := []string{filepath.Join(configDir, ".env")}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, ".env"))
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(candidate); err != nil {
			return fmt.Errorf("load %s: %w", candidate, err)
		}
	}
	return nil
}

// EnsureDirectories creates required directories for daemon and worker operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.DataDir,
		c.QueueDir(),
		c.Paths.DownloadsDir,
		c.Paths.TranscriptsDir,
		c.Paths.SummariesDir,
		c.Paths.AudioDir,
		c.Paths.LogDir,
	} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDir holds the job status table, the pending-queue snapshot, and the store lock.
func (c *Config) QueueDir() string {
	return filepath.Join(c.Paths.DataDir, "queue")
}

// SocketPath returns the daemon IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "podscribe.sock")
}

// LockPath returns the daemon single-instance lock location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "podscribed.lock")
}

// PIDPath returns the file the daemon writes its process id to.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.LogDir, "podscribe.pid")
}

// PollInterval returns the worker dequeue poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Workflow.PollIntervalMillis) * time.Millisecond
}

// HealthInterval returns the supervisor health-check interval.
func (c *Config) HealthInterval() time.Duration {
	return time.Duration(c.Workflow.HealthIntervalSeconds) * time.Second
}

// ShutdownTimeout bounds how long shutdown waits for workers before killing them.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Workflow.ShutdownTimeoutSeconds) * time.Second
}

// RequestTimeout bounds feed and search HTTP requests.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Fetcher.RequestTimeoutSeconds) * time.Second
}

// RequireOpenAI reports a configuration error when the API key is missing.
// Only processes that call the API (daemon workers, narrate) need it.
func (c *Config) RequireOpenAI() error {
	if strings.TrimSpace(c.OpenAI.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("openai.api_key is required. Set OPENAI_API_KEY (env or .env) or edit %s (create with 'podscribe config init')", defaultPath)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
