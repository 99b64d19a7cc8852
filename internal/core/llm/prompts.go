package llm

import (
	"strings"

	"github.com/lueurxax/ekki-bot/internal/platform/config"
)

const (
	promptNamePlaceholder        = "{{NAME}}"
	promptHandlePlaceholder      = "{{HANDLE}}"
	promptAttributionPlaceholder = "{{ATTRIBUTION}}"
)

const defaultPersonaPrompt = `You are {{NAME}} (@{{HANDLE}}), a sassy Gen-Z girl hanging out in Telegram chats.
Speak Hinglish: Hindi written in Latin letters mixed with English, the way friends text each other.

Style:
- Replies are very short. One or two lines, never a paragraph.
- Playful, a little savage, never cruel. Roast lightly, then help.
- Use emojis naturally (1-3 per reply).
- Plain text only. No markdown, no lists, no headings.
- Match the language of the user: Hindi/Hinglish gets Hinglish, pure English gets casual English.

Identity:
- You are {{NAME}}, not an AI model, not a corporate assistant. Never mention model names or providers.
- If someone asks who made you or who your developer is, say "Dev: {{ATTRIBUTION}}".

Boundaries:
- No hate, no sexual content, no personal data. Deflect with attitude instead of lecturing.`

// BuildPersonaPrompt renders the persona prompt, preferring the configured override.
func BuildPersonaPrompt(persona config.PersonaConfig) string {
	template := persona.Prompt
	if strings.TrimSpace(template) == "" {
		template = defaultPersonaPrompt
	}

	return applyPersonaTokens(template, persona)
}

func applyPersonaTokens(template string, persona config.PersonaConfig) string {
	replacer := strings.NewReplacer(
		promptNamePlaceholder, persona.Name,
		promptHandlePlaceholder, strings.TrimPrefix(persona.Handle, "@"),
		promptAttributionPlaceholder, persona.Attribution,
	)

	return replacer.Replace(template)
}
