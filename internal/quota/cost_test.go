package quota

import (
	"errors"
	"testing"

	"cramdesk/internal/domain"
)

func TestCostFor(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		kind  domain.StudyAidKind
		units int
		want  int
	}{
		{name: "quiz_exact_pages", kind: domain.StudyAidQuiz, units: 10, want: 2},
		{name: "quiz_rounds_up", kind: domain.StudyAidQuiz, units: 12, want: 3},
		{name: "quiz_clamped_to_minimum", kind: domain.StudyAidQuiz, units: 3, want: 1},
		{name: "quiz_clamped_to_maximum", kind: domain.StudyAidQuiz, units: 100, want: 6},
		{name: "writer_exact_pages", kind: domain.StudyAidWriter, units: 1500, want: 6},
		{name: "writer_rounds_up", kind: domain.StudyAidWriter, units: 251, want: 2},
		{name: "writer_single_word", kind: domain.StudyAidWriter, units: 1, want: 1},
		{name: "flashcards_rounds_up", kind: domain.StudyAidFlashcards, units: 15, want: 2},
		{name: "flashcards_clamped_to_minimum", kind: domain.StudyAidFlashcards, units: 1, want: 1},
		{name: "summary_per_document_page", kind: domain.StudyAidSummary, units: 7, want: 7},
		{name: "translation_per_document_page", kind: domain.StudyAidTranslation, units: 3, want: 3},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := CostFor(tc.kind, tc.units)
			if err != nil {
				t.Fatalf("CostFor(%q, %d) returned error: %v", tc.kind, tc.units, err)
			}
			if got != tc.want {
				t.Fatalf("CostFor(%q, %d) = %d, want %d", tc.kind, tc.units, got, tc.want)
			}
		})
	}
}

func TestCostForRejectsNonPositiveUnits(t *testing.T) {
	t.Parallel()
	for _, units := range []int{0, -1, -500} {
		if _, err := CostFor(domain.StudyAidQuiz, units); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("CostFor(quiz, %d) error = %v, want ErrInvalidArgument", units, err)
		}
	}
}

func TestCostForRejectsUnknownKind(t *testing.T) {
	t.Parallel()
	if _, err := CostFor(domain.StudyAidKind("mindmap"), 10); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("CostFor(mindmap, 10) error = %v, want ErrInvalidArgument", err)
	}
}

func TestClampQuizQuestions(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   int
		want int
	}{
		{in: 1, want: 5},
		{in: 5, want: 5},
		{in: 17, want: 17},
		{in: 30, want: 30},
		{in: 31, want: 30},
	}
	for _, tc := range cases {
		if got := ClampQuizQuestions(tc.in); got != tc.want {
			t.Fatalf("ClampQuizQuestions(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
