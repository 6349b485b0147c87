package services

import (
	"errors"
	"testing"
)

func plannerQuestions() []*ExtractedQuestion {
	return []*ExtractedQuestion{
		{
			ID: "a", Kind: "single_choice", Text: "Capital of France?",
			Options: []string{"London", "Paris"}, CorrectOptions: []int{1}, Marks: 1,
		},
		{ID: "b", Kind: "long_answer", Text: "Discuss.", Marks: 10},
	}
}

func allSelected(questions []*ExtractedQuestion) map[string]bool {
	selected := make(map[string]bool, len(questions))
	for _, q := range questions {
		selected[q.ID] = true
	}
	return selected
}

func TestBuildCommitPayloadNewExam(t *testing.T) {
	questions := plannerQuestions()
	target := CommitTarget{Mode: TargetNew, Title: "Physics Midterm", DurationMinutes: 90}

	payload, err := BuildCommitPayload(questions, nil, []string{"Answer all"}, allSelected(questions), target, true)
	if err != nil {
		t.Fatalf("BuildCommitPayload: %v", err)
	}
	if len(payload.Questions) != 2 {
		t.Errorf("got %d questions, want 2", len(payload.Questions))
	}
	if payload.TotalMarks != 11 {
		t.Errorf("TotalMarks = %d, want 11", payload.TotalMarks)
	}
	if len(payload.Instructions) != 1 {
		t.Errorf("instructions not carried: %v", payload.Instructions)
	}
}

func TestBuildCommitPayloadInstructionsFlag(t *testing.T) {
	questions := plannerQuestions()
	target := CommitTarget{Mode: TargetNew, Title: "Physics Midterm"}

	payload, err := BuildCommitPayload(questions, nil, []string{"Answer all"}, allSelected(questions), target, false)
	if err != nil {
		t.Fatalf("BuildCommitPayload: %v", err)
	}
	if len(payload.Instructions) != 0 {
		t.Errorf("instructions carried despite flag off: %v", payload.Instructions)
	}
}

func TestBuildCommitPayloadSkipsDeselected(t *testing.T) {
	questions := plannerQuestions()
	selected := allSelected(questions)
	selected["a"] = false

	payload, err := BuildCommitPayload(questions, nil, nil, selected,
		CommitTarget{Mode: TargetNew, Title: "T"}, false)
	if err != nil {
		t.Fatalf("BuildCommitPayload: %v", err)
	}
	if len(payload.Questions) != 1 || payload.Questions[0].Text != "Discuss." {
		t.Errorf("payload questions = %+v", payload.Questions)
	}
	if payload.TotalMarks != 10 {
		t.Errorf("TotalMarks = %d, want 10", payload.TotalMarks)
	}
}

func TestBuildCommitPayloadIncompleteTarget(t *testing.T) {
	questions := plannerQuestions()
	selected := allSelected(questions)

	tests := []struct {
		name    string
		target  CommitTarget
		missing string
	}{
		{"new without title", CommitTarget{Mode: TargetNew}, "exam title"},
		{"existing without exam", CommitTarget{Mode: TargetExisting, SectionID: 3}, "exam id"},
		{"existing without section", CommitTarget{Mode: TargetExisting, ExamID: 7}, "section id"},
		{"unknown mode", CommitTarget{Mode: "merge"}, "target mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildCommitPayload(questions, nil, nil, selected, tt.target, false)
			var incomplete *IncompleteTargetError
			if !errors.As(err, &incomplete) {
				t.Fatalf("got %v, want IncompleteTargetError", err)
			}
			if incomplete.Missing != tt.missing {
				t.Errorf("Missing = %q, want %q", incomplete.Missing, tt.missing)
			}
		})
	}
}

func TestBuildCommitPayloadRejectsUnresolvedChoice(t *testing.T) {
	questions := []*ExtractedQuestion{
		{
			ID: "a", Kind: "single_choice", Text: "Broken key?",
			Options: []string{"Yes", "No"},
		},
	}

	_, err := BuildCommitPayload(questions, nil, nil, allSelected(questions),
		CommitTarget{Mode: TargetNew, Title: "T"}, false)
	if err == nil {
		t.Fatal("expected error for choice question with no resolved answer")
	}
}

func TestBuildCommitPayloadRejectsEmptySelection(t *testing.T) {
	questions := plannerQuestions()
	selected := map[string]bool{"a": false, "b": false}

	_, err := BuildCommitPayload(questions, nil, nil, selected,
		CommitTarget{Mode: TargetNew, Title: "T"}, false)
	if !errors.Is(err, ErrNoQuestionsSelected) {
		t.Errorf("got %v, want ErrNoQuestionsSelected", err)
	}
}

func TestBuildCommitPayloadCarriesAllPassages(t *testing.T) {
	questions := plannerQuestions()
	passages := []*ExtractedPassage{
		{ID: "p1", Body: "Referenced"},
		{ID: "p2", Body: "Unreferenced"},
	}
	questions[1].PassageID = "p1"

	payload, err := BuildCommitPayload(questions, passages, nil, allSelected(questions),
		CommitTarget{Mode: TargetExisting, ExamID: 1, SectionID: 2}, false)
	if err != nil {
		t.Fatalf("BuildCommitPayload: %v", err)
	}
	if len(payload.Passages) != 2 {
		t.Errorf("got %d passages, want 2", len(payload.Passages))
	}
	if payload.Questions[1].PassageRef != "p1" {
		t.Errorf("passage ref = %q", payload.Questions[1].PassageRef)
	}
}
