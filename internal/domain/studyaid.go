package domain

import "time"

// StudyAidKind enumerates the generated study aid categories.
type StudyAidKind string

const (
	StudyAidSummary     StudyAidKind = "summary"
	StudyAidQuiz        StudyAidKind = "quiz"
	StudyAidFlashcards  StudyAidKind = "flashcards"
	StudyAidWriter      StudyAidKind = "writer"
	StudyAidTranslation StudyAidKind = "translation"
)

// StudyAid represents one generated artifact derived from a document. The
// payload is stored as raw JSON in the shape the generating provider returned.
type StudyAid struct {
	ID           string
	AccountID    string
	DocumentID   string
	Kind         StudyAidKind
	Language     string
	PagesCharged int
	Payload      []byte
	Provider     string
	CreatedAt    time.Time
}

// QuizQuestion is one question within a generated quiz payload.
type QuizQuestion struct {
	Question  string   `json:"question"`
	Choices   []string `json:"choices"`
	Answer    int      `json:"answer"`
	Rationale string   `json:"rationale,omitempty"`
}

// Flashcard is one card within a generated flashcard payload.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}
