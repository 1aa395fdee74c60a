package prompt

import "fmt"

// VisionSystemPrompt provides strict directions and schema for JSON output.
func VisionSystemPrompt() string {
	return `You are a document extraction engine. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- full_text holds every piece of readable text in the document, in reading order, without summarization.
- summary is a short description of the document, two or three sentences.
- tables lists every table found; preserve cell values verbatim. Use null when a table has no title.
- If the document contains no tables, tables must be an empty array.

Schema (example with empty values):
{
  "summary": "<string>",
  "full_text": "<string>",
  "tables": [
    {"title": "<string|null>", "headers": ["<string>"], "rows": [["<string>"]]}
  ]
}`
}

// VisionUserPrompt names the document being extracted.
func VisionUserPrompt(filename string) string {
	return fmt.Sprintf("Extract the attached document %q and respond with the JSON per schema.", filename)
}
