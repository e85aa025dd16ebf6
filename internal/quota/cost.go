package quota

import (
	"fmt"

	"cramdesk/internal/domain"
)

// Page-cost formulas per study aid kind. One page buys roughly five quiz
// questions or 250 generated words; summaries and translations are billed one
// page per document page.
const (
	questionsPerPage  = 5
	wordsPerPage      = 250
	flashcardsPerPage = 10

	MinQuizQuestions = 5
	MaxQuizQuestions = 30

	MinFlashcards = 4
	MaxFlashcards = 40
)

// ClampQuizQuestions bounds a requested question count to the supported range.
func ClampQuizQuestions(n int) int {
	if n < MinQuizQuestions {
		return MinQuizQuestions
	}
	if n > MaxQuizQuestions {
		return MaxQuizQuestions
	}
	return n
}

// ClampFlashcards bounds a requested card count to the supported range.
func ClampFlashcards(n int) int {
	if n < MinFlashcards {
		return MinFlashcards
	}
	if n > MaxFlashcards {
		return MaxFlashcards
	}
	return n
}

// CostFor converts a kind-specific magnitude (question count, word count,
// document page count) into a page cost. It is deterministic and side-effect
// free; requestedUnits must be positive.
func CostFor(kind domain.StudyAidKind, requestedUnits int) (int, error) {
	if requestedUnits <= 0 {
		return 0, fmt.Errorf("quota: requested units must be positive, got %d: %w", requestedUnits, domain.ErrInvalidArgument)
	}
	switch kind {
	case domain.StudyAidQuiz:
		return ceilDiv(ClampQuizQuestions(requestedUnits), questionsPerPage), nil
	case domain.StudyAidWriter:
		return ceilDiv(requestedUnits, wordsPerPage), nil
	case domain.StudyAidFlashcards:
		return ceilDiv(ClampFlashcards(requestedUnits), flashcardsPerPage), nil
	case domain.StudyAidSummary, domain.StudyAidTranslation:
		// Billed per document page.
		return requestedUnits, nil
	default:
		return 0, fmt.Errorf("quota: unknown usage kind %q: %w", kind, domain.ErrInvalidArgument)
	}
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}
