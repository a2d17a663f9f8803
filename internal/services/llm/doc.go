// Package llm wraps the OpenAI API for the summarizer, narration, and the
// hosted transcription backend.
//
// # Entry Points
//
// NewClient: construct a client from Config (or FromConfig for the app config).
// Client.CompleteJSON: system/user prompts in, raw JSON object out.
// Client.Transcribe: upload an audio file, receive text, language, duration.
// Client.Speech: synthesize one chunk of text to an audio stream.
// Client.HealthCheck: verify the key and model respond.
//
// # Errors
//
// Every call returns errors tagged with a services marker: HTTP 429, 5xx and
// network timeouts are ErrTransient, 401/403 are ErrConfiguration, other 4xx
// are ErrValidation, and payloads that cannot be decoded are
// ErrMalformedResponse. The SDK's own retries are disabled by default; a
// failed call fails the job and the caller resubmits.
package llm
