package summarizer

import "fmt"

const summarySchema = `{
  "comprehensive_summary": "multi-paragraph summary organised by topic",
  "key_insights": ["insight", "..."],
  "action_items": ["concrete step a listener can take", "..."],
  "wisdom": ["memorable quote or lesson, attributed when possible", "..."]
}`

const systemPrompt = "You are an expert podcast summarizer. You respond with a single JSON object and nothing else."

func finalPrompt(languageName, text string) string {
	return fmt.Sprintf(`Summarize this podcast transcript.

For each main topic give the core idea, the supporting points, the examples or research mentioned, and the practical implications. Keep specific evidence and notable quotes.

Write every field in %s. Respond with JSON matching this shape:
%s

Transcript:
%s`, languageName, summarySchema, text)
}

func mapPrompt(index, total int, text string) string {
	return fmt.Sprintf(`This is section %d of %d of a podcast transcript. Extract the key points, insights, examples, and quotable lines from this section only.

Respond with JSON matching this shape:
{"notes": ["point", "..."]}

Section:
%s`, index, total, text)
}

func reducePrompt(languageName, notes string) string {
	return fmt.Sprintf(`These are notes taken section by section from one podcast episode. Combine them into a single summary of the whole episode, merging duplicates and keeping the order in which topics were discussed.

Write every field in %s. Respond with JSON matching this shape:
%s

Notes:
%s`, languageName, summarySchema, notes)
}
