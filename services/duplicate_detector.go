package services

import (
	"context"
	"log"
	"strings"

	"github.com/adityarawat/examdesk/model"
)

// QuestionBank is the persisted question store queried for near-matches
type QuestionBank interface {
	// FindDuplicateTexts returns the subset of normalized texts that already
	// exist in the bank under the given kind
	FindDuplicateTexts(ctx context.Context, kind model.QuestionKind, normalizedTexts []string) ([]string, error)
}

// DuplicateDetector flags likely duplicates of already-persisted questions.
// It is advisory only: it never removes or deselects questions, and a store
// failure degrades to zero flags with a warning.
type DuplicateDetector struct {
	bank QuestionBank
}

// NewDuplicateDetector creates a new duplicate detector
func NewDuplicateDetector(bank QuestionBank) *DuplicateDetector {
	return &DuplicateDetector{bank: bank}
}

// Flag returns the set of session-local question IDs considered likely
// duplicates. The returned warning is non-empty if the store could not be
// reached; flags are then empty.
func (d *DuplicateDetector) Flag(ctx context.Context, questions []*ExtractedQuestion) (map[string]bool, string) {
	flags := make(map[string]bool)
	if len(questions) == 0 {
		return flags, ""
	}

	// Group by kind so text matches never cross kinds
	byKind := make(map[model.QuestionKind][]*ExtractedQuestion)
	for _, q := range questions {
		byKind[q.Kind] = append(byKind[q.Kind], q)
	}

	for kind, group := range byKind {
		texts := make([]string, 0, len(group))
		for _, q := range group {
			texts = append(texts, NormalizeQuestionText(q.Text))
		}

		existing, err := d.bank.FindDuplicateTexts(ctx, kind, texts)
		if err != nil {
			log.Printf("DuplicateDetector: question bank unreachable, skipping duplicate check: %v", err)
			return make(map[string]bool), "Duplicate check unavailable; no duplicates flagged"
		}

		existingSet := make(map[string]struct{}, len(existing))
		for _, t := range existing {
			existingSet[t] = struct{}{}
		}

		for _, q := range group {
			if _, ok := existingSet[NormalizeQuestionText(q.Text)]; ok {
				flags[q.ID] = true
			}
		}
	}

	log.Printf("DuplicateDetector: flagged %d of %d questions", len(flags), len(questions))
	return flags, ""
}

// NormalizeQuestionText lowercases and collapses whitespace so near-exact
// matches (spacing, case) compare equal
func NormalizeQuestionText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
