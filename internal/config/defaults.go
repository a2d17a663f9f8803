package config

const (
	defaultConfigPath             = "~/.config/podscribe/config.toml"
	defaultDataDir                = "~/.local/share/podscribe"
	defaultLogDir                 = "~/.local/share/podscribe/logs"
	defaultAPIBind                = "127.0.0.1:7488"
	defaultOpenAIModel            = "gpt-4o-mini"
	defaultOpenAIMaxTokens        = 4096
	defaultOpenAITemperature      = 0.8
	defaultOpenAITimeoutSeconds   = 120
	defaultTranscriptionBackend   = "whisper-cli"
	defaultWhisperCommand         = "whisper"
	defaultWhisperModel           = "base"
	defaultTranscriptionModel     = "whisper-1"
	defaultTargetLanguage         = "en"
	defaultChunkTokens            = 2000
	defaultChunkOverlapTokens     = 200
	defaultEncoding               = "cl100k_base"
	defaultTTSModel               = "tts-1"
	defaultTTSVoice               = "alloy"
	defaultTTSMaxChars            = 4096
	defaultYtDlpBinary            = "yt-dlp"
	defaultAudioFormat            = "mp3"
	defaultRequestTimeoutSeconds  = 30
	defaultSearchURL              = "https://itunes.apple.com/search"
	defaultSearchLimit            = 10
	defaultWorkers                = 1
	defaultPollIntervalMillis     = 1000
	defaultHealthIntervalSeconds  = 5
	defaultShutdownTimeoutSeconds = 10
	defaultNtfyTimeoutSeconds     = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults. Artifact
// directories left empty are derived from data_dir during normalization.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		OpenAI: OpenAI{
			Model:          defaultOpenAIModel,
			MaxTokens:      defaultOpenAIMaxTokens,
			Temperature:    defaultOpenAITemperature,
			TimeoutSeconds: defaultOpenAITimeoutSeconds,
		},
		Transcription: Transcription{
			Backend:        defaultTranscriptionBackend,
			WhisperCommand: defaultWhisperCommand,
			WhisperModel:   defaultWhisperModel,
			OpenAIModel:    defaultTranscriptionModel,
		},
		Summary: Summary{
			TargetLanguage:     defaultTargetLanguage,
			ChunkTokens:        defaultChunkTokens,
			ChunkOverlapTokens: defaultChunkOverlapTokens,
			Encoding:           defaultEncoding,
		},
		TTS: TTS{
			Model:    defaultTTSModel,
			Voice:    defaultTTSVoice,
			MaxChars: defaultTTSMaxChars,
		},
		Fetcher: Fetcher{
			YtDlpBinary:           defaultYtDlpBinary,
			AudioFormat:           defaultAudioFormat,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			SearchURL:             defaultSearchURL,
			SearchLimit:           defaultSearchLimit,
		},
		Workflow: Workflow{
			Workers:                defaultWorkers,
			PollIntervalMillis:     defaultPollIntervalMillis,
			HealthIntervalSeconds:  defaultHealthIntervalSeconds,
			ShutdownTimeoutSeconds: defaultShutdownTimeoutSeconds,
			RequeueInFlight:        true,
		},
		Cache: Cache{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
