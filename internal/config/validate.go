package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateSummary(); err != nil {
		return err
	}
	if err := c.validateOpenAI(); err != nil {
		return err
	}
	if err := c.validateFetcher(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.workers":                  c.Workflow.Workers,
		"workflow.poll_interval_ms":         c.Workflow.PollIntervalMillis,
		"workflow.health_interval_seconds":  c.Workflow.HealthIntervalSeconds,
		"workflow.shutdown_timeout_seconds": c.Workflow.ShutdownTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Workflow.Workers > 16 {
		return errors.New("workflow.workers must be at most 16")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Backend {
	case "whisper-cli", "openai":
		return nil
	default:
		return fmt.Errorf("transcription.backend must be \"whisper-cli\" or \"openai\", got %q", c.Transcription.Backend)
	}
}

func (c *Config) validateSummary() error {
	if _, err := language.Parse(c.Summary.TargetLanguage); err != nil {
		return fmt.Errorf("summary.target_language %q is not a valid BCP 47 tag: %w", c.Summary.TargetLanguage, err)
	}
	if c.Summary.ChunkTokens <= 0 {
		return errors.New("summary.chunk_tokens must be positive")
	}
	if c.Summary.ChunkOverlapTokens < 0 || c.Summary.ChunkOverlapTokens >= c.Summary.ChunkTokens {
		return errors.New("summary.chunk_overlap_tokens must be between 0 and summary.chunk_tokens")
	}
	return nil
}

func (c *Config) validateOpenAI() error {
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		return errors.New("openai.temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateFetcher() error {
	if c.Fetcher.RequestTimeoutSeconds <= 0 {
		return errors.New("fetcher.request_timeout_seconds must be positive")
	}
	if c.Fetcher.MaxEpisodes < 0 {
		return errors.New("fetcher.max_episodes must not be negative")
	}
	if !strings.HasPrefix(c.Fetcher.SearchURL, "http://") && !strings.HasPrefix(c.Fetcher.SearchURL, "https://") {
		return fmt.Errorf("fetcher.search_url must be an http(s) URL, got %q", c.Fetcher.SearchURL)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
