package llm

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"cramdesk/internal/domain"
)

// NormalizeTargetLanguage validates a translation target as an IETF language
// tag, returning the canonical tag and its English display name for prompt
// assembly.
func NormalizeTargetLanguage(raw string) (string, string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", "", fmt.Errorf("llm: target language is required: %w", domain.ErrInvalidArgument)
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return "", "", fmt.Errorf("llm: unsupported target language %q: %w", raw, domain.ErrInvalidArgument)
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		name = tag.String()
	}
	return tag.String(), name, nil
}
