// Package summarizer turns a transcript into a structured summary through a
// chat model.
//
// Transcripts that fit in one token budget are summarized in a single call.
// Longer transcripts are split into overlapping token windows, each window is
// condensed into notes, and the notes are combined into the final summary in
// the requested language. Token counts come from tiktoken when its encoding
// is available and from a word-based estimate otherwise.
package summarizer
