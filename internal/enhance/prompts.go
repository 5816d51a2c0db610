package enhance

import "fmt"

// Field-specific JSON schemas sent alongside each enhancement prompt. Kept
// intentionally small: the LLM is asked to return exactly the shape the
// calling tool needs to merge into Metadata.
const (
	contextSchema      = `{"type":"object","properties":{"context":{"type":"string"}},"required":["context"]}`
	tagsSchema         = `{"type":"object","properties":{"tags":{"type":"array","items":{"type":"string"}}},"required":["tags"]}`
	titleSchema        = `{"type":"object","properties":{"title":{"type":"string"}},"required":["title"]}`
	metadataSchema     = `{"type":"object","properties":{"custom_metadata":{"type":"object","additionalProperties":{"type":"string"}},"status":{"type":"string","enum":["draft","review","published","archived"]}}}`
)

func contextPrompt(content string) string {
	return fmt.Sprintf("Summarize the following document's purpose and role in one or two sentences, for use as a standalone context note:\n\n%s", content)
}

func tagsPrompt(content string) string {
	return fmt.Sprintf("Suggest 3 to 8 short, lowercase, hyphenated tags that describe the topic of the following document:\n\n%s", content)
}

func titlePrompt(content, currentTitle string) string {
	return fmt.Sprintf("Improve the following document title to be clear and specific. Current title: %q\n\nDocument content:\n\n%s", currentTitle, content)
}

func metadataPrompt(content string) string {
	return fmt.Sprintf("Extract structured metadata (custom_metadata key/value pairs, and a lifecycle status if evident) from the following document:\n\n%s", content)
}

func purposePrompt(content, purpose string) string {
	return fmt.Sprintf("Rewrite or annotate the following document's context note for this purpose: %q\n\nDocument content:\n\n%s", purpose, content)
}
