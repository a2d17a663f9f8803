// Package transcriber converts downloaded audio into text.
//
// Two backends satisfy the same contract: the local whisper CLI, run through
// a replaceable command runner, and the hosted OpenAI transcription endpoint.
// New picks one from the [transcription] config section.
package transcriber
