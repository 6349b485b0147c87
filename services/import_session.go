package services

import (
	"sync"
	"time"

	"github.com/adityarawat/examdesk/model"
)

// SessionState is the import session's position in the review workflow
type SessionState string

const (
	StateUpload     SessionState = "upload"
	StateSelecting  SessionState = "selecting"
	StateExtracting SessionState = "extracting"
	StateReviewing  SessionState = "reviewing"
	StateFinalizing SessionState = "finalizing_details"
	StateCommitted  SessionState = "committed"
)

// ImportSession owns the mutable working set of one document import. It is
// an explicit state machine independent of any rendering layer; handlers are
// pure consumers of its snapshot. Sessions are fully independent of each
// other. The mutex serializes concurrent HTTP access; pipeline work within a
// session is sequential.
type ImportSession struct {
	mu sync.Mutex

	id        string
	ownerID   uint
	state     SessionState
	createdAt time.Time
	updatedAt time.Time
	abandoned bool

	// generation is bumped whenever the session resets or is abandoned; an
	// extraction run started under an older generation must not mutate the
	// session when it eventually finishes
	generation int

	pages     []RasterPage
	pageCount int
	selection *PageSelection
	frozen    []int

	questions        []*ExtractedQuestion
	passages         []*ExtractedPassage
	instructions     []string
	reviewSelected   map[string]bool
	duplicateFlags   map[string]bool
	duplicateWarning string
}

// NewImportSession creates a session in the upload state
func NewImportSession(id string, ownerID uint) *ImportSession {
	now := time.Now()
	return &ImportSession{
		id:        id,
		ownerID:   ownerID,
		state:     StateUpload,
		createdAt: now,
		updatedAt: now,
	}
}

// ID returns the session identifier
func (s *ImportSession) ID() string { return s.id }

// OwnerID returns the reviewer who opened the session
func (s *ImportSession) OwnerID() uint { return s.ownerID }

func (s *ImportSession) touch() { s.updatedAt = time.Now() }

// AttachPages installs the rasterized pages of a fresh upload and moves the
// session to selecting. Allowed from upload (including after a failed run).
func (s *ImportSession) AttachPages(pages []RasterPage, pageCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUpload {
		return &InvalidTransitionError{State: s.state, Action: "attach pages"}
	}

	s.pages = pages
	s.pageCount = pageCount
	s.selection = NewPageSelection(pageCount)
	s.state = StateSelecting
	s.touch()
	return nil
}

// ResumeSelection returns to selecting after a failed run without
// re-uploading, reusing the already-rasterized pages
func (s *ImportSession) ResumeSelection() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUpload || len(s.pages) == 0 {
		return &InvalidTransitionError{State: s.state, Action: "resume selection"}
	}

	s.state = StateSelecting
	s.touch()
	return nil
}

// SelectPage adds a page to the selection
func (s *ImportSession) SelectPage(index int) error {
	return s.mutateSelection("select page", func() error { return s.selection.Select(index) })
}

// DeselectPage removes a page from the selection
func (s *ImportSession) DeselectPage(index int) error {
	return s.mutateSelection("deselect page", func() error { return s.selection.Deselect(index) })
}

// SelectAllPages selects every page
func (s *ImportSession) SelectAllPages() error {
	return s.mutateSelection("select all pages", func() error { s.selection.SelectAll(); return nil })
}

// ClearPages empties the selection
func (s *ImportSession) ClearPages() error {
	return s.mutateSelection("clear page selection", func() error { s.selection.Clear(); return nil })
}

func (s *ImportSession) mutateSelection(action string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSelecting {
		return &InvalidTransitionError{State: s.state, Action: action}
	}
	if err := fn(); err != nil {
		return err
	}
	s.touch()
	return nil
}

// BeginExtraction freezes the current page selection and moves to
// extracting. It returns the selected pages in frozen order plus the run
// generation, which must be passed back to CompleteExtraction or
// FailExtraction. Later selection changes do not affect the returned pages.
func (s *ImportSession) BeginExtraction() ([]RasterPage, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSelecting {
		return nil, 0, &InvalidTransitionError{State: s.state, Action: "begin extraction"}
	}
	if s.selection.Count() == 0 {
		return nil, 0, ErrEmptySelection
	}

	s.frozen = s.selection.Snapshot()
	selected := make([]RasterPage, 0, len(s.frozen))
	for _, idx := range s.frozen {
		selected = append(selected, s.pages[idx])
	}

	s.state = StateExtracting
	s.touch()
	return selected, s.generation, nil
}

// CompleteExtraction installs a normalized result set and moves to
// reviewing. All questions start selected. A stale or abandoned run is
// rejected with ErrStaleRun and must be discarded by the caller.
func (s *ImportSession) CompleteExtraction(generation int, set *NormalizedSet, flags map[string]bool, warning string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.abandoned || generation != s.generation {
		return ErrStaleRun
	}
	if s.state != StateExtracting {
		return &InvalidTransitionError{State: s.state, Action: "complete extraction"}
	}

	s.questions = set.Questions
	s.passages = set.Passages
	s.instructions = set.Instructions
	if flags == nil {
		flags = make(map[string]bool)
	}
	s.duplicateFlags = flags
	s.duplicateWarning = warning

	s.reviewSelected = make(map[string]bool, len(set.Questions))
	for _, q := range set.Questions {
		s.reviewSelected[q.ID] = true
	}

	s.state = StateReviewing
	s.touch()
	return nil
}

// FailExtraction aborts the run and returns the session to upload for
// re-upload or re-selection. Accumulated partial results are discarded
// entirely; no partial-success state is exposed.
func (s *ImportSession) FailExtraction(generation int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.abandoned || generation != s.generation {
		return ErrStaleRun
	}
	if s.state != StateExtracting {
		return &InvalidTransitionError{State: s.state, Action: "fail extraction"}
	}

	s.generation++
	s.frozen = nil
	s.questions = nil
	s.passages = nil
	s.instructions = nil
	s.reviewSelected = nil
	s.duplicateFlags = nil
	s.duplicateWarning = ""

	s.state = StateUpload
	s.touch()
	return nil
}

// ToggleQuestion flips a question's review selection membership
func (s *ImportSession) ToggleQuestion(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReviewing {
		return &InvalidTransitionError{State: s.state, Action: "toggle question"}
	}
	if s.findQuestion(id) == nil {
		return ErrQuestionNotFound
	}

	s.reviewSelected[id] = !s.reviewSelected[id]
	s.touch()
	return nil
}

// QuestionEdit is a partial update of a question's fields; nil fields are
// left unchanged
type QuestionEdit struct {
	Kind           *model.QuestionKind `json:"kind,omitempty"`
	Text           *string             `json:"text,omitempty"`
	Options        *[]string           `json:"options,omitempty"`
	CorrectOptions *[]int              `json:"correct_options,omitempty"`
	CorrectAnswer  *string             `json:"correct_answer,omitempty"`
	Explanation    *string             `json:"explanation,omitempty"`
	Tags           *[]string           `json:"tags,omitempty"`
	Marks          *int                `json:"marks,omitempty"`
}

// EditQuestion applies an in-place edit to a question in the working set
func (s *ImportSession) EditQuestion(id string, edit QuestionEdit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReviewing {
		return &InvalidTransitionError{State: s.state, Action: "edit question"}
	}
	q := s.findQuestion(id)
	if q == nil {
		return ErrQuestionNotFound
	}

	if edit.Kind != nil {
		if !edit.Kind.Valid() {
			return &InvalidQuestionKindError{Kind: *edit.Kind}
		}
		q.Kind = *edit.Kind
	}
	if edit.Text != nil {
		q.Text = *edit.Text
	}
	if edit.Options != nil {
		q.Options = *edit.Options
	}
	if edit.CorrectOptions != nil {
		q.CorrectOptions = *edit.CorrectOptions
	}
	if edit.CorrectAnswer != nil {
		q.CorrectAnswer = *edit.CorrectAnswer
	}
	if edit.Explanation != nil {
		q.Explanation = *edit.Explanation
	}
	if edit.Tags != nil {
		q.Tags = *edit.Tags
	}
	if edit.Marks != nil {
		q.Marks = *edit.Marks
	}

	s.touch()
	return nil
}

// DeleteQuestion removes a question from both the working collection and the
// review selection. Other questions keep their identifiers.
func (s *ImportSession) DeleteQuestion(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReviewing {
		return &InvalidTransitionError{State: s.state, Action: "delete question"}
	}

	for i, q := range s.questions {
		if q.ID == id {
			s.questions = append(s.questions[:i], s.questions[i+1:]...)
			delete(s.reviewSelected, id)
			delete(s.duplicateFlags, id)
			s.touch()
			return nil
		}
	}
	return ErrQuestionNotFound
}

// Proceed moves to finalizing details; requires at least one selected question
func (s *ImportSession) Proceed() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReviewing {
		return &InvalidTransitionError{State: s.state, Action: "proceed"}
	}

	for _, selected := range s.reviewSelected {
		if selected {
			s.state = StateFinalizing
			s.touch()
			return nil
		}
	}
	return ErrNoQuestionsSelected
}

// Back returns from finalizing details to reviewing, preserving all edits
func (s *ImportSession) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateFinalizing {
		return &InvalidTransitionError{State: s.state, Action: "go back"}
	}

	s.state = StateReviewing
	s.touch()
	return nil
}

// MarkCommitted moves the session to its terminal state after a successful
// persistence call. On persistence failure the caller leaves the session in
// finalizing details so the reviewer can retry.
func (s *ImportSession) MarkCommitted() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateFinalizing {
		return &InvalidTransitionError{State: s.state, Action: "commit"}
	}

	s.state = StateCommitted
	s.pages = nil
	s.touch()
	return nil
}

// Abandon terminates the session from any state. An in-flight extraction run
// is allowed to finish in the background, but its result is rejected.
func (s *ImportSession) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.abandoned = true
	s.generation++
	s.pages = nil
	s.touch()
}

// Abandoned reports whether the session was abandoned
func (s *ImportSession) Abandoned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.abandoned
}

func (s *ImportSession) findQuestion(id string) *ExtractedQuestion {
	for _, q := range s.questions {
		if q.ID == id {
			return q
		}
	}
	return nil
}

// ReviewItem is one entry of the review render output. Passage is non-nil on
// the first item referencing it and nil on every later one, so each passage
// renders exactly once.
type ReviewItem struct {
	Passage   *ExtractedPassage  `json:"passage,omitempty"`
	Question  *ExtractedQuestion `json:"question"`
	Selected  bool               `json:"selected"`
	Duplicate bool               `json:"duplicate"`
}

// RenderReview produces the review list in working-set order with the
// passage-once guard applied. Items hold copies, so callers may read and
// serialize them after the session lock is released without racing a
// concurrent edit.
func (s *ImportSession) RenderReview() ([]ReviewItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReviewing && s.state != StateFinalizing {
		return nil, &InvalidTransitionError{State: s.state, Action: "render review"}
	}

	passages := make(map[string]*ExtractedPassage, len(s.passages))
	for _, p := range s.passages {
		passages[p.ID] = p
	}

	shown := make(map[string]bool)
	items := make([]ReviewItem, 0, len(s.questions))
	for _, q := range s.questions {
		item := ReviewItem{
			Question:  q.Clone(),
			Selected:  s.reviewSelected[q.ID],
			Duplicate: s.duplicateFlags[q.ID],
		}
		if q.PassageID != "" && !shown[q.PassageID] {
			if p, ok := passages[q.PassageID]; ok {
				item.Passage = p.Clone()
				shown[q.PassageID] = true
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// SessionSnapshot is a read-only view of the session for API responses
type SessionSnapshot struct {
	ID                 string       `json:"id"`
	State              SessionState `json:"state"`
	PageCount          int          `json:"page_count"`
	SelectedPages      []int        `json:"selected_pages,omitempty"`
	QuestionCount      int          `json:"question_count"`
	SelectedQuestions  int          `json:"selected_questions"`
	PassageCount       int          `json:"passage_count"`
	Instructions       []string     `json:"instructions,omitempty"`
	SelectedTotalMarks int          `json:"selected_total_marks"`
	DuplicateCount     int          `json:"duplicate_count"`
	DuplicateWarning   string       `json:"duplicate_warning,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// Snapshot returns a read-only copy of the session's observable state
func (s *ImportSession) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SessionSnapshot{
		ID:               s.id,
		State:            s.state,
		PageCount:        s.pageCount,
		QuestionCount:    len(s.questions),
		PassageCount:     len(s.passages),
		Instructions:     s.instructions,
		DuplicateWarning: s.duplicateWarning,
		CreatedAt:        s.createdAt,
		UpdatedAt:        s.updatedAt,
	}
	if s.selection != nil && s.state == StateSelecting {
		snap.SelectedPages = s.selection.Snapshot()
	}
	for _, flagged := range s.duplicateFlags {
		if flagged {
			snap.DuplicateCount++
		}
	}
	for _, selected := range s.reviewSelected {
		if selected {
			snap.SelectedQuestions++
		}
	}
	snap.SelectedTotalMarks = TotalMarks(s.questions, s.reviewSelected)
	return snap
}

// WorkingSet returns the questions, passages, instructions, and review
// selection for commit planning. Everything returned is a copy; the live
// working set stays behind the session lock.
func (s *ImportSession) WorkingSet() ([]*ExtractedQuestion, []*ExtractedPassage, []string, map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	questions := make([]*ExtractedQuestion, 0, len(s.questions))
	for _, q := range s.questions {
		questions = append(questions, q.Clone())
	}
	passages := make([]*ExtractedPassage, 0, len(s.passages))
	for _, p := range s.passages {
		passages = append(passages, p.Clone())
	}
	instructions := append([]string(nil), s.instructions...)
	selected := make(map[string]bool, len(s.reviewSelected))
	for id, sel := range s.reviewSelected {
		selected[id] = sel
	}
	return questions, passages, instructions, selected
}

// IdleSince returns the time of the last mutation
func (s *ImportSession) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// State returns the current state
func (s *ImportSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
