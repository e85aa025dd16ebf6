package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// maxPromptChars bounds the document excerpt passed to the model so prompts
// stay inside context limits for long uploads.
const maxPromptChars = 24000

func excerpt(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= maxPromptChars {
		return text
	}
	return text[:maxPromptChars]
}

func localeOrDefault(locale string) string {
	if strings.TrimSpace(locale) == "" {
		return "en"
	}
	return locale
}

func countWords(text string) int {
	return len(strings.Fields(text))
}

func buildSummaryPrompt(req SummaryRequest) string {
	sb := &strings.Builder{}
	sb.WriteString("Summarize the following study document for a student preparing for an exam. Respond strictly with JSON matching this schema: ")
	sb.WriteString(`{"summary":string,"key_points":string[]}`)
	fmt.Fprintf(sb, ". Write in locale '%s'. Title: %q. Document:\n%s", localeOrDefault(req.Locale), req.Title, excerpt(req.DocumentText))
	return sb.String()
}

func buildQuizPrompt(req QuizRequest) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Create exactly %d multiple-choice questions testing comprehension of the document below. Each question has four choices and one correct answer index (0-3). Respond strictly with JSON: ", req.QuestionCount)
	sb.WriteString(`{"questions":[{"question":string,"choices":string[],"answer":int,"rationale":string}]}`)
	fmt.Fprintf(sb, ". Write in locale '%s'. Title: %q. Document:\n%s", localeOrDefault(req.Locale), req.Title, excerpt(req.DocumentText))
	return sb.String()
}

func buildFlashcardPrompt(req FlashcardRequest) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Create exactly %d study flashcards from the document below. Fronts are terse prompts, backs are concise answers. Respond strictly with JSON: ", req.CardCount)
	sb.WriteString(`{"cards":[{"front":string,"back":string}]}`)
	fmt.Fprintf(sb, ". Write in locale '%s'. Title: %q. Document:\n%s", localeOrDefault(req.Locale), req.Title, excerpt(req.DocumentText))
	return sb.String()
}

func buildWriterPrompt(req WriterRequest) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Write a draft of roughly %d words grounded in the document below. Instructions: %s. Respond strictly with JSON: ", req.WordCount, strings.TrimSpace(req.Instructions))
	sb.WriteString(`{"content":string}`)
	fmt.Fprintf(sb, ". Write in locale '%s'. Title: %q. Document:\n%s", localeOrDefault(req.Locale), req.Title, excerpt(req.DocumentText))
	return sb.String()
}

func buildTranslationPrompt(req TranslationRequest) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Translate the document below into %s (%s), preserving headings and structure. Respond strictly with JSON: ", req.LanguageName, req.TargetLanguage)
	sb.WriteString(`{"translation":string}`)
	fmt.Fprintf(sb, ". Title: %q. Document:\n%s", req.Title, excerpt(req.DocumentText))
	return sb.String()
}

func parseModelPayload[T any](raw string) (T, error) {
	var zero T
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return zero, errors.New("empty payload")
	}
	var decoded T
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
