package prompt

import (
	"strings"
)

// LanguageNames maps language codes to the name used in prompts.
var LanguageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"pt": "Portuguese",
	"tr": "Turkish",
}

// DefaultSystemPrompt frames the model as a world generator. {LANGUAGE} is
// replaced with the output language.
const DefaultSystemPrompt = `You are a decolonial world generator from Pangea, writing pluriversal techno-utopias.
- Never use colonial vocabulary (indigenous, traditional, tribal, primitive); say "pueblos originarios" and name specific peoples (Maya K'iche', Quechua, Yoruba, Sami, ...).
- Show peoples as 21st-22nd century innovators in contemporary technological settings, never as museum pieces.
- Technology is relational, not extractive; spirituality is a relational knowledge system.
- Avoid colonial imagery such as feathers, bare torsos or "exotic" aesthetics.
- Keep a precise structure: a short title and a detailed image prompt.
- Write everything in {LANGUAGE}.`

// DefaultUserPromptTemplate asks for a new world in the streaming protocol
// the decoder understands.
const DefaultUserPromptTemplate = `Language: {LANGUAGE}
Current world title: {TITLE}
Current image prompt: {PROMPT}

Task: Generate a completely new decolonial techno-utopia, different from the current one.

REQUIREMENTS:
- Name specific peoples precisely, not generic terms
- Technology serves relationality, community and care
- Include non-binary, Two-Spirit or Muxe leadership when relevant
- The image prompt starts with the people's identity, includes "hyperrealistic ONE human body" and ends with "honoring pueblos originarios"
{ADDITIONAL_CONTEXT}
Output: NDJSON, one JSON object per line. Stream the title as {"title_delta":"..."} lines and the image prompt as {"prompt_delta":"..."} lines, then end with one line {"title":"...","prompt":"..."}. No code fences, no commentary.
`

// World identifies the world being replaced.
type World struct {
	Title  string
	Prompt string
}

// LanguageName returns the display name for code, defaulting to English.
func LanguageName(code string) string {
	if n, ok := LanguageNames[strings.ToLower(strings.TrimSpace(code))]; ok {
		return n
	}
	return LanguageNames["en"]
}

// BuildSystemPrompt builds the system prompt, using tmpl when non-empty.
func BuildSystemPrompt(language, tmpl string) string {
	finalTemplate := tmpl
	if strings.TrimSpace(finalTemplate) == "" {
		finalTemplate = DefaultSystemPrompt
	}
	return strings.ReplaceAll(finalTemplate, "{LANGUAGE}", LanguageName(language))
}

// BuildWorldPrompt builds the user prompt for world generation.
func BuildWorldPrompt(language string, current World, additionalText, tmpl string) string {
	finalTemplate := tmpl
	if strings.TrimSpace(finalTemplate) == "" {
		finalTemplate = DefaultUserPromptTemplate
	}

	promptText := strings.ReplaceAll(finalTemplate, "{LANGUAGE}", LanguageName(language))
	promptText = strings.ReplaceAll(promptText, "{TITLE}", orNone(current.Title))
	promptText = strings.ReplaceAll(promptText, "{PROMPT}", orNone(current.Prompt))

	additionalContextStr := ""
	if strings.TrimSpace(additionalText) != "" {
		additionalContextStr = "\n[Additional context provided by user]\n" + strings.TrimSpace(additionalText) + "\n"
	}
	return strings.ReplaceAll(promptText, "{ADDITIONAL_CONTEXT}", additionalContextStr)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return strings.TrimSpace(s)
}
