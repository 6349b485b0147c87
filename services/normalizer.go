package services

import (
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/adityarawat/examdesk/model"
	"github.com/google/uuid"
)

// ExtractedQuestion is a candidate question in the import working set. ID is
// assigned at normalization time and is unique within the session; the
// extraction service's own IDs are untrusted and may collide across batches.
type ExtractedQuestion struct {
	ID             string             `json:"id"`
	Kind           model.QuestionKind `json:"kind"`
	Text           string             `json:"text"`
	Options        []string           `json:"options"`
	CorrectOptions []int              `json:"correct_options,omitempty"`
	CorrectAnswer  string             `json:"correct_answer,omitempty"`
	Explanation    string             `json:"explanation,omitempty"`
	Tags           []string           `json:"tags,omitempty"`
	Marks          int                `json:"marks"`
	SourcePage     int                `json:"source_page,omitempty"`
	PassageID      string             `json:"passage_id,omitempty"`
}

// Clone returns an independent copy of the question. Session accessors hand
// out clones so handlers can read them after the session lock is released.
func (q *ExtractedQuestion) Clone() *ExtractedQuestion {
	if q == nil {
		return nil
	}
	dup := *q
	dup.Options = append([]string(nil), q.Options...)
	dup.CorrectOptions = append([]int(nil), q.CorrectOptions...)
	dup.Tags = append([]string(nil), q.Tags...)
	return &dup
}

// ExtractedPassage is a shared reading passage in the import working set
type ExtractedPassage struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Clone returns an independent copy of the passage
func (p *ExtractedPassage) Clone() *ExtractedPassage {
	if p == nil {
		return nil
	}
	dup := *p
	return &dup
}

// NormalizedSet is the canonical output of a completed extraction run
type NormalizedSet struct {
	Questions    []*ExtractedQuestion
	Passages     []*ExtractedPassage
	Instructions []string
	TotalMarks   int
}

// Normalizer turns accumulated raw extraction output into the canonical
// working collections
type Normalizer struct {
	newID func() string
}

// NewNormalizer creates a normalizer using UUIDs for session identifiers
func NewNormalizer() *Normalizer {
	return &Normalizer{newID: uuid.NewString}
}

// Normalize re-keys every question and passage with a session-unique
// identifier, resolves choice answers to option positions, deduplicates
// instruction strings in first-seen order, and computes the advisory total
// marks over the full set
func (n *Normalizer) Normalize(raw *ExtractionResult) *NormalizedSet {
	set := &NormalizedSet{}
	if raw == nil {
		return set
	}

	// Passages first so question references can be remapped
	passageIDs := make(map[string]string, len(raw.Passages))
	for _, rp := range raw.Passages {
		if strings.TrimSpace(rp.Body) == "" {
			continue
		}
		p := &ExtractedPassage{
			ID:    n.newID(),
			Title: strings.TrimSpace(rp.Title),
			Body:  rp.Body,
		}
		if rp.ID != "" {
			passageIDs[rp.ID] = p.ID
		}
		set.Passages = append(set.Passages, p)
	}

	for _, rq := range raw.Questions {
		if strings.TrimSpace(rq.Text) == "" {
			continue
		}

		kind := parseQuestionKind(rq.Kind)

		q := &ExtractedQuestion{
			ID:          n.newID(),
			Kind:        kind,
			Text:        rq.Text,
			Explanation: rq.Explanation,
			Tags:        rq.Tags,
			Marks:       rq.Marks,
			SourcePage:  rq.Page,
		}

		if kind.IsChoice() {
			q.Options = rq.Options
			q.CorrectOptions = ResolveCorrectOptions(rq.CorrectAnswer, rq.Options)
			if len(q.CorrectOptions) == 0 {
				// Unresolvable answer key; left for the reviewer to fix during
				// review, and the commit planner refuses it if still unset
				log.Printf("Normalizer: could not resolve answer %q against %d options",
					rq.CorrectAnswer, len(rq.Options))
			}
		} else {
			q.CorrectAnswer = rq.CorrectAnswer
		}

		if rq.PassageID != "" {
			// Unknown references are dropped rather than pointing at nothing
			q.PassageID = passageIDs[rq.PassageID]
		}

		set.Questions = append(set.Questions, q)
		set.TotalMarks += q.Marks
	}

	set.Instructions = DedupeInstructions(raw.Instructions)

	log.Printf("Normalizer: %d questions, %d passages, %d instructions, %d total marks",
		len(set.Questions), len(set.Passages), len(set.Instructions), set.TotalMarks)

	return set
}

// parseQuestionKind maps the service's kind strings onto known kinds,
// defaulting unknown values to long answer
func parseQuestionKind(s string) model.QuestionKind {
	kind := model.QuestionKind(strings.ToLower(strings.TrimSpace(s)))
	if kind.Valid() {
		return kind
	}
	switch kind {
	case "mcq", "single", "choice":
		return model.KindSingleChoice
	case "multi", "multiple", "multi_select":
		return model.KindMultiChoice
	case "fill", "blank", "fill_in_blank":
		return model.KindFillBlank
	case "short":
		return model.KindShortAnswer
	}
	return model.KindLongAnswer
}

// ResolveCorrectOptions resolves a raw correct-answer string against an
// option list, returning sorted zero-based option positions. Accepted forms,
// comma separated for multi-choice: a zero-based index ("2"), an option
// letter ("B" or "b)"), or the option's full text ("Paris").
func ResolveCorrectOptions(answer string, options []string) []int {
	if len(options) == 0 {
		return nil
	}

	seen := make(map[int]struct{})
	var resolved []int
	add := func(pos int) {
		if pos < 0 || pos >= len(options) {
			return
		}
		if _, ok := seen[pos]; ok {
			return
		}
		seen[pos] = struct{}{}
		resolved = append(resolved, pos)
	}

	for _, token := range strings.Split(answer, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		// Numeric index
		if idx, err := strconv.Atoi(token); err == nil {
			add(idx)
			continue
		}

		// Option letter, tolerating "B", "b", "(b)", "b)"
		letter := strings.Trim(strings.ToLower(token), "().")
		if len(letter) == 1 && letter[0] >= 'a' && letter[0] <= 'z' {
			add(int(letter[0] - 'a'))
			continue
		}

		// Full option text
		for i, opt := range options {
			if strings.EqualFold(strings.TrimSpace(opt), token) {
				add(i)
				break
			}
		}
	}

	sort.Ints(resolved)
	return resolved
}

// DedupeInstructions removes exact-duplicate instruction strings, preserving
// first-seen order
func DedupeInstructions(instructions []string) []string {
	seen := make(map[string]struct{}, len(instructions))
	var deduped []string
	for _, inst := range instructions {
		inst = strings.TrimSpace(inst)
		if inst == "" {
			continue
		}
		if _, ok := seen[inst]; ok {
			continue
		}
		seen[inst] = struct{}{}
		deduped = append(deduped, inst)
	}
	return deduped
}

// TotalMarks sums marks over the questions whose IDs are in selected. It is
// advisory and recomputed whenever the selection or any marks value changes.
func TotalMarks(questions []*ExtractedQuestion, selected map[string]bool) int {
	total := 0
	for _, q := range questions {
		if selected[q.ID] {
			total += q.Marks
		}
	}
	return total
}
