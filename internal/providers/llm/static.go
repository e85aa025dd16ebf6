package llm

import (
	"context"
	"fmt"
	"strings"

	"cramdesk/internal/domain"
)

// StaticProvider produces deterministic study aids without network access. It
// backs development environments without an API key and serves as the
// fallback provider for the OpenAI client.
type StaticProvider struct{}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{}
}

func (s *StaticProvider) Summarize(ctx context.Context, req SummaryRequest) (*SummaryResult, error) {
	sentences := splitSentences(req.DocumentText, 3)
	summary := strings.Join(sentences, " ")
	if summary == "" {
		summary = fmt.Sprintf("Summary of %s.", req.Title)
	}
	return &SummaryResult{
		Summary:   summary,
		KeyPoints: sentences,
		Provider:  staticProviderName,
	}, nil
}

func (s *StaticProvider) GenerateQuiz(ctx context.Context, req QuizRequest) (*QuizResult, error) {
	count := req.QuestionCount
	if count <= 0 {
		count = 5
	}
	result := &QuizResult{Provider: staticProviderName}
	for i := 0; i < count; i++ {
		result.Questions = append(result.Questions, quizQuestion(req.Title, i))
	}
	return result, nil
}

func (s *StaticProvider) GenerateFlashcards(ctx context.Context, req FlashcardRequest) (*FlashcardResult, error) {
	count := req.CardCount
	if count <= 0 {
		count = 4
	}
	result := &FlashcardResult{Provider: staticProviderName}
	for i := 0; i < count; i++ {
		result.Cards = append(result.Cards, flashcard(req.Title, i))
	}
	return result, nil
}

func (s *StaticProvider) Write(ctx context.Context, req WriterRequest) (*WriterResult, error) {
	want := req.WordCount
	if want <= 0 {
		want = 250
	}
	sentence := fmt.Sprintf("This draft discusses %s in study context. ", strings.TrimSpace(req.Title))
	perSentence := countWords(sentence)
	sb := &strings.Builder{}
	for written := 0; written < want; written += perSentence {
		sb.WriteString(sentence)
	}
	content := strings.TrimSpace(sb.String())
	return &WriterResult{
		Content:   content,
		WordCount: countWords(content),
		Provider:  staticProviderName,
	}, nil
}

func (s *StaticProvider) Translate(ctx context.Context, req TranslationRequest) (*TranslationResult, error) {
	return &TranslationResult{
		Translation:    fmt.Sprintf("[%s] %s", req.TargetLanguage, excerpt(req.DocumentText)),
		TargetLanguage: req.TargetLanguage,
		Provider:       staticProviderName,
	}, nil
}

func quizQuestion(title string, i int) domain.QuizQuestion {
	return domain.QuizQuestion{
		Question: fmt.Sprintf("Question %d about %s?", i+1, title),
		Choices:  []string{"Option A", "Option B", "Option C", "Option D"},
		Answer:   i % 4,
	}
}

func flashcard(title string, i int) domain.Flashcard {
	return domain.Flashcard{
		Front: fmt.Sprintf("Term %d from %s", i+1, title),
		Back:  fmt.Sprintf("Definition %d for %s", i+1, title),
	}
}

func splitSentences(text string, limit int) []string {
	var sentences []string
	for _, part := range strings.Split(text, ".") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		sentences = append(sentences, trimmed+".")
		if len(sentences) == limit {
			break
		}
	}
	return sentences
}

var _ Provider = (*StaticProvider)(nil)
