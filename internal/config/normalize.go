package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOpenAI()
	c.normalizeTranscription()
	c.normalizeSummary()
	c.normalizeTTS()
	c.normalizeFetcher()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	derived := []struct {
		key   string
		value *string
		sub   string
	}{
		{"paths.downloads_dir", &c.Paths.DownloadsDir, "downloads"},
		{"paths.transcripts_dir", &c.Paths.TranscriptsDir, "transcripts"},
		{"paths.summaries_dir", &c.Paths.SummariesDir, "summaries"},
		{"paths.audio_dir", &c.Paths.AudioDir, "audio"},
	}
	for _, d := range derived {
		if strings.TrimSpace(*d.value) == "" {
			*d.value = filepath.Join(c.Paths.DataDir, d.sub)
		}
		if *d.value, err = expandPath(*d.value); err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
	}

	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	if strings.TrimSpace(c.Paths.APIToken) == "" {
		if value, ok := os.LookupEnv("PODSCRIBE_API_TOKEN"); ok {
			c.Paths.APIToken = value
		}
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeOpenAI() {
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.OpenAI.APIKey = value
		}
	}
	if strings.TrimSpace(c.OpenAI.BaseURL) == "" {
		if value, ok := os.LookupEnv("OPENAI_BASE_URL"); ok {
			c.OpenAI.BaseURL = value
		}
	}
	if value, ok := os.LookupEnv("LLM_MODEL"); ok && strings.TrimSpace(value) != "" && c.OpenAI.Model == defaultOpenAIModel {
		c.OpenAI.Model = value
	}
	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	c.OpenAI.BaseURL = strings.TrimSpace(c.OpenAI.BaseURL)
	c.OpenAI.Model = strings.TrimSpace(c.OpenAI.Model)
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = defaultOpenAIModel
	}
	if c.OpenAI.MaxTokens <= 0 {
		c.OpenAI.MaxTokens = defaultOpenAIMaxTokens
	}
	if c.OpenAI.TimeoutSeconds <= 0 {
		c.OpenAI.TimeoutSeconds = defaultOpenAITimeoutSeconds
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Backend = strings.ToLower(strings.TrimSpace(c.Transcription.Backend))
	if c.Transcription.Backend == "" {
		c.Transcription.Backend = defaultTranscriptionBackend
	}
	if strings.TrimSpace(c.Transcription.WhisperCommand) == "" {
		c.Transcription.WhisperCommand = defaultWhisperCommand
	}
	if strings.TrimSpace(c.Transcription.WhisperModel) == "" {
		c.Transcription.WhisperModel = defaultWhisperModel
	}
	if strings.TrimSpace(c.Transcription.OpenAIModel) == "" {
		c.Transcription.OpenAIModel = defaultTranscriptionModel
	}
}

func (c *Config) normalizeSummary() {
	c.Summary.TargetLanguage = strings.TrimSpace(c.Summary.TargetLanguage)
	if c.Summary.TargetLanguage == "" {
		c.Summary.TargetLanguage = defaultTargetLanguage
	}
	if strings.TrimSpace(c.Summary.Encoding) == "" {
		c.Summary.Encoding = defaultEncoding
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.Model = strings.TrimSpace(c.TTS.Model)
	if c.TTS.Model == "" {
		c.TTS.Model = defaultTTSModel
	}
	c.TTS.Voice = strings.ToLower(strings.TrimSpace(c.TTS.Voice))
	if c.TTS.Voice == "" {
		c.TTS.Voice = defaultTTSVoice
	}
	if c.TTS.MaxChars <= 0 {
		c.TTS.MaxChars = defaultTTSMaxChars
	}
}

func (c *Config) normalizeFetcher() {
	if strings.TrimSpace(c.Fetcher.YtDlpBinary) == "" {
		c.Fetcher.YtDlpBinary = defaultYtDlpBinary
	}
	c.Fetcher.AudioFormat = strings.ToLower(strings.TrimSpace(c.Fetcher.AudioFormat))
	if c.Fetcher.AudioFormat == "" {
		c.Fetcher.AudioFormat = defaultAudioFormat
	}
	if strings.TrimSpace(c.Fetcher.SearchURL) == "" {
		c.Fetcher.SearchURL = defaultSearchURL
	}
	if c.Fetcher.SearchLimit <= 0 {
		c.Fetcher.SearchLimit = defaultSearchLimit
	}
}

func (c *Config) normalizeCache() error {
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = filepath.Join(c.Paths.DataDir, "cache.db")
	}
	var err error
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("PODSCRIBE_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json", "auto":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
