package llm

import (
	"context"

	"cramdesk/internal/domain"
)

const (
	staticProviderName = "static"
	openAIProviderName = "openai"
)

// SummaryRequest asks for a per-section summary of a document.
type SummaryRequest struct {
	Title        string
	DocumentText string
	Locale       string
}

// SummaryResult is the generated summary payload.
type SummaryResult struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
	Provider  string   `json:"-"`
}

// QuizRequest asks for multiple-choice questions over a document. The
// realized question count may be lower than requested; the caller bills the
// realized count.
type QuizRequest struct {
	Title         string
	DocumentText  string
	QuestionCount int
	Locale        string
}

// QuizResult is the generated quiz payload.
type QuizResult struct {
	Questions []domain.QuizQuestion `json:"questions"`
	Provider  string                `json:"-"`
}

// FlashcardRequest asks for front/back study cards over a document.
type FlashcardRequest struct {
	Title        string
	DocumentText string
	CardCount    int
	Locale       string
}

// FlashcardResult is the generated flashcard payload.
type FlashcardResult struct {
	Cards    []domain.Flashcard `json:"cards"`
	Provider string             `json:"-"`
}

// WriterRequest asks for an essay-style draft grounded in a document.
type WriterRequest struct {
	Title        string
	DocumentText string
	Instructions string
	WordCount    int
	Locale       string
}

// WriterResult is the generated draft; WordCount is the realized length used
// for billing.
type WriterResult struct {
	Content   string `json:"content"`
	WordCount int    `json:"word_count"`
	Provider  string `json:"-"`
}

// TranslationRequest asks for a translation of a document into the target
// language, an IETF tag validated before the provider is invoked.
type TranslationRequest struct {
	Title          string
	DocumentText   string
	TargetLanguage string
	LanguageName   string
}

// TranslationResult is the generated translation payload.
type TranslationResult struct {
	Translation    string `json:"translation"`
	TargetLanguage string `json:"target_language"`
	Provider       string `json:"-"`
}

// Provider generates study aids from extracted document text. All calls are
// synchronous; the caller owns timeouts through the context.
type Provider interface {
	Summarize(ctx context.Context, req SummaryRequest) (*SummaryResult, error)
	GenerateQuiz(ctx context.Context, req QuizRequest) (*QuizResult, error)
	GenerateFlashcards(ctx context.Context, req FlashcardRequest) (*FlashcardResult, error)
	Write(ctx context.Context, req WriterRequest) (*WriterResult, error)
	Translate(ctx context.Context, req TranslationRequest) (*TranslationResult, error)
}
