package services

import (
	"fmt"
	"reflect"
	"testing"
)

// sequentialNormalizer issues predictable IDs so tests can reference them
func sequentialNormalizer() *Normalizer {
	n := 0
	return &Normalizer{newID: func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}}
}

func TestNormalizeRekeysCollidingIDs(t *testing.T) {
	// Two batches both returned "q1"; the session must keep both questions
	raw := &ExtractionResult{
		Questions: []RawQuestion{
			{ID: "q1", Kind: "short_answer", Text: "Define entropy."},
			{ID: "q1", Kind: "short_answer", Text: "Define enthalpy."},
		},
	}

	set := sequentialNormalizer().Normalize(raw)
	if len(set.Questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(set.Questions))
	}
	if set.Questions[0].ID == set.Questions[1].ID {
		t.Errorf("colliding upstream IDs were not re-keyed: both %q", set.Questions[0].ID)
	}
}

func TestNormalizeRemapsPassageReferences(t *testing.T) {
	raw := &ExtractionResult{
		Passages: []RawPassage{
			{ID: "p1", Title: "The Water Cycle", Body: "Water evaporates..."},
		},
		Questions: []RawQuestion{
			{ID: "q1", Kind: "short_answer", Text: "What drives evaporation?", PassageID: "p1"},
			{ID: "q2", Kind: "short_answer", Text: "Orphan reference.", PassageID: "p99"},
		},
	}

	set := sequentialNormalizer().Normalize(raw)
	if len(set.Passages) != 1 {
		t.Fatalf("got %d passages, want 1", len(set.Passages))
	}
	if set.Questions[0].PassageID != set.Passages[0].ID {
		t.Errorf("question passage ref %q does not match rekeyed passage %q",
			set.Questions[0].PassageID, set.Passages[0].ID)
	}
	// Unknown passage references are dropped, not preserved verbatim
	if set.Questions[1].PassageID != "" {
		t.Errorf("orphan passage ref kept as %q", set.Questions[1].PassageID)
	}
}

func TestNormalizeSkipsEmptyAndSumsMarks(t *testing.T) {
	raw := &ExtractionResult{
		Questions: []RawQuestion{
			{ID: "q1", Kind: "long_answer", Text: "Explain polymorphism.", Marks: 10},
			{ID: "q2", Kind: "long_answer", Text: "   ", Marks: 5},
			{ID: "q3", Kind: "short_answer", Text: "Name two examples.", Marks: 2},
		},
		Instructions: []string{"Attempt all questions", " Attempt all questions ", "", "Use a blue pen"},
	}

	set := sequentialNormalizer().Normalize(raw)
	if len(set.Questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(set.Questions))
	}
	if set.TotalMarks != 12 {
		t.Errorf("TotalMarks = %d, want 12", set.TotalMarks)
	}
	want := []string{"Attempt all questions", "Use a blue pen"}
	if !reflect.DeepEqual(set.Instructions, want) {
		t.Errorf("Instructions = %v, want %v", set.Instructions, want)
	}
}

func TestNormalizeChoiceAnswers(t *testing.T) {
	raw := &ExtractionResult{
		Questions: []RawQuestion{
			{
				ID: "q1", Kind: "mcq", Text: "Capital of France?",
				Options:       []string{"London", "Berlin", "Paris", "Rome"},
				CorrectAnswer: "Paris",
			},
			{
				ID: "q2", Kind: "multi_choice", Text: "Which are primes?",
				Options:       []string{"2", "4", "5", "9"},
				CorrectAnswer: "a, c",
			},
			{
				ID: "q3", Kind: "single_choice", Text: "Unreadable key.",
				Options:       []string{"Yes", "No"},
				CorrectAnswer: "maybe",
			},
		},
	}

	set := sequentialNormalizer().Normalize(raw)

	if got := set.Questions[0].CorrectOptions; !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("full-text answer resolved to %v, want [2]", got)
	}
	if got := set.Questions[1].CorrectOptions; !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("letter answers resolved to %v, want [0 2]", got)
	}
	// Unresolvable keys stay empty for the reviewer; the commit planner
	// rejects them later
	if got := set.Questions[2].CorrectOptions; len(got) != 0 {
		t.Errorf("unresolvable answer resolved to %v, want empty", got)
	}
}

func TestParseQuestionKindAliases(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"single_choice", "single_choice"},
		{"MCQ", "single_choice"},
		{"multi", "multi_choice"},
		{"fill_in_blank", "fill_blank"},
		{"short", "short_answer"},
		{"essay", "long_answer"},
		{"", "long_answer"},
	}
	for _, tt := range tests {
		if got := parseQuestionKind(tt.in); string(got) != tt.want {
			t.Errorf("parseQuestionKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveCorrectOptions(t *testing.T) {
	options := []string{"Mercury", "Venus", "Earth", "Mars"}

	tests := []struct {
		answer string
		want   []int
	}{
		{"2", []int{2}},
		{"b", []int{1}},
		{"(d)", []int{3}},
		{"Venus", []int{1}},
		{"earth", []int{2}},
		{"0, 3", []int{0, 3}},
		{"d, a", []int{0, 3}}, // sorted
		{"b, b, 1", []int{1}}, // deduped
		{"9", nil},
		{"Pluto", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got := ResolveCorrectOptions(tt.answer, options)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ResolveCorrectOptions(%q) = %v, want %v", tt.answer, got, tt.want)
		}
	}

	if got := ResolveCorrectOptions("1", nil); got != nil {
		t.Errorf("no options should resolve nothing, got %v", got)
	}
}

func TestTotalMarksFollowsSelection(t *testing.T) {
	questions := []*ExtractedQuestion{
		{ID: "a", Marks: 5},
		{ID: "b", Marks: 3},
		{ID: "c", Marks: 2},
	}
	selected := map[string]bool{"a": true, "b": true, "c": true}

	if got := TotalMarks(questions, selected); got != 10 {
		t.Errorf("all selected: %d, want 10", got)
	}

	selected["b"] = false
	if got := TotalMarks(questions, selected); got != 7 {
		t.Errorf("after deselect: %d, want 7", got)
	}
}
