package llm

import "strings"

// BuildTagPrompt composes the strict three-field extraction prompt with the
// normalized receipt text embedded verbatim. The contract: use only what is
// explicit in the text, sentinel "Unknown"/0 for missing fields, JSON only.
func BuildTagPrompt(normalizedText string) string {
	var b strings.Builder
	b.WriteString(`You are a strict data extractor. Given a raw receipt text, extract exactly this information:

- "vendor": Store name
- "product_or_service": A comma-separated list of purchased items
- "price": Total paid amount in SEK as a number (float)

Do not guess or invent any information.
Only use what is explicitly visible in the receipt text.
If any field is missing, return "Unknown" or 0.

Return only valid JSON in this format:
{
  "vendor": "...",
  "product_or_service": "...",
  "price": ...
}

Here is the receipt text:
"""`)
	b.WriteString(normalizedText)
	b.WriteString(`"""`)
	return b.String()
}
