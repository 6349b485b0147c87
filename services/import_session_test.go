package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/adityarawat/examdesk/model"
)

func reviewingSession(t *testing.T, questions []*ExtractedQuestion, passages []*ExtractedPassage) *ImportSession {
	t.Helper()

	s := NewImportSession("sess-1", 42)
	if err := s.AttachPages(testPages(4), 4); err != nil {
		t.Fatalf("AttachPages: %v", err)
	}
	if err := s.SelectAllPages(); err != nil {
		t.Fatalf("SelectAllPages: %v", err)
	}
	_, gen, err := s.BeginExtraction()
	if err != nil {
		t.Fatalf("BeginExtraction: %v", err)
	}
	set := &NormalizedSet{Questions: questions, Passages: passages}
	if err := s.CompleteExtraction(gen, set, nil, ""); err != nil {
		t.Fatalf("CompleteExtraction: %v", err)
	}
	return s
}

func TestSessionHappyPath(t *testing.T) {
	s := NewImportSession("sess-1", 7)
	if s.State() != StateUpload {
		t.Fatalf("new session state = %q", s.State())
	}

	if err := s.AttachPages(testPages(3), 3); err != nil {
		t.Fatalf("AttachPages: %v", err)
	}
	if s.State() != StateSelecting {
		t.Fatalf("state after attach = %q", s.State())
	}

	if err := s.SelectPage(0); err != nil {
		t.Fatalf("SelectPage: %v", err)
	}
	if err := s.SelectPage(2); err != nil {
		t.Fatalf("SelectPage: %v", err)
	}

	pages, gen, err := s.BeginExtraction()
	if err != nil {
		t.Fatalf("BeginExtraction: %v", err)
	}
	if len(pages) != 2 || pages[0].Index != 0 || pages[1].Index != 2 {
		t.Errorf("frozen pages = %v", pages)
	}

	questions := []*ExtractedQuestion{{ID: "a", Text: "Q?", Marks: 5}}
	if err := s.CompleteExtraction(gen, &NormalizedSet{Questions: questions}, nil, ""); err != nil {
		t.Fatalf("CompleteExtraction: %v", err)
	}
	if s.State() != StateReviewing {
		t.Fatalf("state after complete = %q", s.State())
	}

	snap := s.Snapshot()
	if snap.SelectedQuestions != 1 || snap.SelectedTotalMarks != 5 {
		t.Errorf("snapshot = %+v", snap)
	}

	if err := s.Proceed(); err != nil {
		t.Fatalf("Proceed: %v", err)
	}
	if err := s.MarkCommitted(); err != nil {
		t.Fatalf("MarkCommitted: %v", err)
	}
	if s.State() != StateCommitted {
		t.Fatalf("final state = %q", s.State())
	}
}

func TestSessionSelectionFreezeIgnoresLaterChanges(t *testing.T) {
	s := NewImportSession("sess-1", 7)
	s.AttachPages(testPages(3), 3)
	s.SelectPage(1)

	pages, _, err := s.BeginExtraction()
	if err != nil {
		t.Fatalf("BeginExtraction: %v", err)
	}
	if len(pages) != 1 || pages[0].Index != 1 {
		t.Fatalf("frozen pages = %v", pages)
	}

	// Selection mutations are rejected while extracting
	if err := s.SelectPage(2); err == nil {
		t.Error("SelectPage allowed during extraction")
	}
}

func TestSessionBeginExtractionEmptySelection(t *testing.T) {
	s := NewImportSession("sess-1", 7)
	s.AttachPages(testPages(3), 3)

	_, _, err := s.BeginExtraction()
	if !errors.Is(err, ErrEmptySelection) {
		t.Errorf("got %v, want ErrEmptySelection", err)
	}
}

func TestSessionFailedRunDiscardsEverything(t *testing.T) {
	s := NewImportSession("sess-1", 7)
	s.AttachPages(testPages(4), 4)
	s.SelectAllPages()

	_, gen, err := s.BeginExtraction()
	if err != nil {
		t.Fatalf("BeginExtraction: %v", err)
	}

	if err := s.FailExtraction(gen); err != nil {
		t.Fatalf("FailExtraction: %v", err)
	}
	if s.State() != StateUpload {
		t.Fatalf("state after failure = %q, want upload", s.State())
	}

	snap := s.Snapshot()
	if snap.QuestionCount != 0 || snap.PassageCount != 0 || len(snap.Instructions) != 0 {
		t.Errorf("failed run left residue: %+v", snap)
	}

	// A completion from the failed generation must be rejected
	err = s.CompleteExtraction(gen, &NormalizedSet{}, nil, "")
	if !errors.Is(err, ErrStaleRun) {
		t.Errorf("stale completion: got %v, want ErrStaleRun", err)
	}

	// Pages survive so the reviewer can re-select without re-uploading
	if err := s.ResumeSelection(); err != nil {
		t.Fatalf("ResumeSelection: %v", err)
	}
	if s.State() != StateSelecting {
		t.Errorf("state after resume = %q", s.State())
	}
}

func TestSessionAbandonRejectsLateResults(t *testing.T) {
	s := NewImportSession("sess-1", 7)
	s.AttachPages(testPages(4), 4)
	s.SelectAllPages()

	_, gen, err := s.BeginExtraction()
	if err != nil {
		t.Fatalf("BeginExtraction: %v", err)
	}

	s.Abandon()
	if !s.Abandoned() {
		t.Fatal("session not marked abandoned")
	}

	// The in-flight run finishes afterwards; its result is discarded
	err = s.CompleteExtraction(gen, &NormalizedSet{
		Questions: []*ExtractedQuestion{{ID: "a", Text: "Q?"}},
	}, nil, "")
	if !errors.Is(err, ErrStaleRun) {
		t.Fatalf("late completion: got %v, want ErrStaleRun", err)
	}
	if s.Snapshot().QuestionCount != 0 {
		t.Error("late result mutated an abandoned session")
	}
}

func TestSessionToggleVersusDelete(t *testing.T) {
	questions := []*ExtractedQuestion{
		{ID: "a", Text: "First?", Marks: 4},
		{ID: "b", Text: "Second?", Marks: 6},
	}
	s := reviewingSession(t, questions, nil)

	// Toggle keeps the question in the working set
	if err := s.ToggleQuestion("a"); err != nil {
		t.Fatalf("ToggleQuestion: %v", err)
	}
	snap := s.Snapshot()
	if snap.QuestionCount != 2 || snap.SelectedQuestions != 1 {
		t.Errorf("after toggle: %+v", snap)
	}
	if snap.SelectedTotalMarks != 6 {
		t.Errorf("marks after toggle = %d, want 6", snap.SelectedTotalMarks)
	}

	// Toggling back restores it
	if err := s.ToggleQuestion("a"); err != nil {
		t.Fatalf("ToggleQuestion: %v", err)
	}
	if got := s.Snapshot().SelectedTotalMarks; got != 10 {
		t.Errorf("marks after re-toggle = %d, want 10", got)
	}

	// Delete removes it permanently
	if err := s.DeleteQuestion("a"); err != nil {
		t.Fatalf("DeleteQuestion: %v", err)
	}
	snap = s.Snapshot()
	if snap.QuestionCount != 1 || snap.SelectedTotalMarks != 6 {
		t.Errorf("after delete: %+v", snap)
	}

	if err := s.ToggleQuestion("a"); !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("toggle of deleted question: got %v, want ErrQuestionNotFound", err)
	}
}

func TestSessionEditQuestion(t *testing.T) {
	questions := []*ExtractedQuestion{
		{ID: "a", Kind: "short_answer", Text: "Old text", Marks: 2},
	}
	s := reviewingSession(t, questions, nil)

	text := "New text"
	marks := 5
	if err := s.EditQuestion("a", QuestionEdit{Text: &text, Marks: &marks}); err != nil {
		t.Fatalf("EditQuestion: %v", err)
	}

	items, err := s.RenderReview()
	if err != nil {
		t.Fatalf("RenderReview: %v", err)
	}
	if items[0].Question.Text != "New text" || items[0].Question.Marks != 5 {
		t.Errorf("edit not applied: %+v", items[0].Question)
	}
	// Unset fields are untouched
	if items[0].Question.Kind != "short_answer" {
		t.Errorf("kind changed to %q", items[0].Question.Kind)
	}

	if err := s.EditQuestion("missing", QuestionEdit{Text: &text}); !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("edit of unknown question: got %v, want ErrQuestionNotFound", err)
	}
}

func TestSessionEditQuestionRejectsInvalidKind(t *testing.T) {
	questions := []*ExtractedQuestion{{ID: "a", Kind: "short_answer", Text: "Q?"}}
	s := reviewingSession(t, questions, nil)

	bad := model.QuestionKind("essay")
	err := s.EditQuestion("a", QuestionEdit{Kind: &bad})
	var kindErr *InvalidQuestionKindError
	if !errors.As(err, &kindErr) {
		t.Fatalf("EditQuestion with bad kind: got %v, want InvalidQuestionKindError", err)
	}
	if kindErr.Kind != bad {
		t.Errorf("error reports kind %q, want %q", kindErr.Kind, bad)
	}

	items, err := s.RenderReview()
	if err != nil {
		t.Fatalf("RenderReview: %v", err)
	}
	if items[0].Question.Kind != "short_answer" {
		t.Errorf("rejected edit changed kind to %q", items[0].Question.Kind)
	}
}

func TestSessionReviewReturnsCopies(t *testing.T) {
	passages := []*ExtractedPassage{{ID: "p1", Body: "Passage body"}}
	questions := []*ExtractedQuestion{
		{ID: "a", Kind: "single_choice", Text: "Before", Options: []string{"x", "y"}, PassageID: "p1"},
	}
	s := reviewingSession(t, questions, passages)

	items, err := s.RenderReview()
	if err != nil {
		t.Fatalf("RenderReview: %v", err)
	}

	text := "After"
	if err := s.EditQuestion("a", QuestionEdit{Text: &text}); err != nil {
		t.Fatalf("EditQuestion: %v", err)
	}
	if items[0].Question.Text != "Before" {
		t.Errorf("rendered item mutated by later edit: %q", items[0].Question.Text)
	}

	// Scribbling on rendered items must not leak into the working set
	items[0].Question.Options[0] = "scribble"
	items[0].Passage.Body = "scribble"
	qs, ps, _, _ := s.WorkingSet()
	if qs[0].Options[0] != "x" {
		t.Errorf("working set option = %q", qs[0].Options[0])
	}
	if ps[0].Body != "Passage body" {
		t.Errorf("working set passage = %q", ps[0].Body)
	}

	// WorkingSet results are detached the same way
	qs[0].Text = "scribble"
	again, _, _, _ := s.WorkingSet()
	if again[0].Text != "After" {
		t.Errorf("working set text = %q", again[0].Text)
	}
}

func TestSessionConcurrentReviewAndEdit(t *testing.T) {
	questions := []*ExtractedQuestion{{ID: "a", Text: "Start", Options: []string{"x"}}}
	s := reviewingSession(t, questions, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			text := fmt.Sprintf("Edit %d", i)
			if err := s.EditQuestion("a", QuestionEdit{Text: &text}); err != nil {
				t.Errorf("EditQuestion: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 200; i++ {
		items, err := s.RenderReview()
		if err != nil {
			t.Fatalf("RenderReview: %v", err)
		}
		if _, err := json.Marshal(items); err != nil {
			t.Fatalf("marshal review items: %v", err)
		}
	}
	<-done
}

func TestSessionRenderReviewPassageOnce(t *testing.T) {
	passages := []*ExtractedPassage{{ID: "p1", Body: "Shared passage"}}
	questions := []*ExtractedQuestion{
		{ID: "a", Text: "First?", PassageID: "p1"},
		{ID: "b", Text: "Standalone?"},
		{ID: "c", Text: "Second on passage?", PassageID: "p1"},
	}
	s := reviewingSession(t, questions, passages)

	items, err := s.RenderReview()
	if err != nil {
		t.Fatalf("RenderReview: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	if items[0].Passage == nil {
		t.Error("first referencing question missing its passage")
	}
	if items[1].Passage != nil {
		t.Error("standalone question carries a passage")
	}
	if items[2].Passage != nil {
		t.Error("passage rendered twice")
	}
}

func TestSessionProceedRequiresSelection(t *testing.T) {
	questions := []*ExtractedQuestion{{ID: "a", Text: "Only?"}}
	s := reviewingSession(t, questions, nil)

	if err := s.ToggleQuestion("a"); err != nil {
		t.Fatalf("ToggleQuestion: %v", err)
	}
	if err := s.Proceed(); !errors.Is(err, ErrNoQuestionsSelected) {
		t.Errorf("proceed with nothing selected: got %v", err)
	}

	s.ToggleQuestion("a")
	if err := s.Proceed(); err != nil {
		t.Fatalf("Proceed: %v", err)
	}

	// Edits are rejected while finalizing; Back returns to reviewing with
	// everything intact
	if err := s.ToggleQuestion("a"); err == nil {
		t.Error("toggle allowed while finalizing")
	}
	if err := s.Back(); err != nil {
		t.Fatalf("Back: %v", err)
	}
	if got := s.Snapshot().SelectedQuestions; got != 1 {
		t.Errorf("selection lost across back: %d", got)
	}
}

func TestSessionInvalidTransitions(t *testing.T) {
	s := NewImportSession("sess-1", 7)

	var transition *InvalidTransitionError

	if _, _, err := s.BeginExtraction(); !errors.As(err, &transition) {
		t.Errorf("extraction from upload: got %v", err)
	}
	if err := s.Proceed(); !errors.As(err, &transition) {
		t.Errorf("proceed from upload: got %v", err)
	}
	if _, err := s.RenderReview(); !errors.As(err, &transition) {
		t.Errorf("review from upload: got %v", err)
	}
	if err := s.ResumeSelection(); !errors.As(err, &transition) {
		t.Errorf("resume without pages: got %v", err)
	}

	s.AttachPages(testPages(2), 2)
	if err := s.AttachPages(testPages(2), 2); !errors.As(err, &transition) {
		t.Errorf("double attach: got %v", err)
	}
}
