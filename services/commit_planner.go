package services

import (
	"fmt"
	"strings"

	"github.com/adityarawat/examdesk/model"
)

// Commit target modes
const (
	TargetNew      = "new"
	TargetExisting = "existing"
)

// CommitTarget is the destination of a committed import; exactly one variant
// is active
type CommitTarget struct {
	Mode string `json:"mode" validate:"required,oneof=new existing"`

	// Mode "new"
	Title           string `json:"title,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`

	// Mode "existing"
	ExamID    uint `json:"exam_id,omitempty"`
	SectionID uint `json:"section_id,omitempty"`
}

// CommitQuestion is one question of the persistence payload
type CommitQuestion struct {
	Kind           model.QuestionKind
	Text           string
	Options        []string
	CorrectOptions []int
	CorrectAnswer  string
	Explanation    string
	Tags           []string
	Marks          int
	SourcePage     int
	PassageRef     string // session-local passage ID, resolved at persist time
}

// CommitPassage is one passage of the persistence payload
type CommitPassage struct {
	Ref   string // session-local ID
	Title string
	Body  string
}

// CommitPayload is the single persistence request built from a confirmed review
type CommitPayload struct {
	Target       CommitTarget
	Questions    []CommitQuestion
	Passages     []CommitPassage
	Instructions []string
	TotalMarks   int
}

// BuildCommitPayload packages the selected subset of the working set plus the
// target into one persistence payload. Validation failures leave the session
// untouched so the reviewer can correct and retry.
func BuildCommitPayload(
	questions []*ExtractedQuestion,
	passages []*ExtractedPassage,
	instructions []string,
	selected map[string]bool,
	target CommitTarget,
	includeInstructions bool,
) (*CommitPayload, error) {
	switch target.Mode {
	case TargetNew:
		if strings.TrimSpace(target.Title) == "" {
			return nil, &IncompleteTargetError{Missing: "exam title"}
		}
	case TargetExisting:
		if target.ExamID == 0 {
			return nil, &IncompleteTargetError{Missing: "exam id"}
		}
		if target.SectionID == 0 {
			return nil, &IncompleteTargetError{Missing: "section id"}
		}
	default:
		return nil, &IncompleteTargetError{Missing: "target mode"}
	}

	payload := &CommitPayload{Target: target}

	referenced := make(map[string]bool)
	for _, q := range questions {
		if !selected[q.ID] {
			continue
		}

		if q.Kind.IsChoice() {
			if len(q.Options) == 0 {
				return nil, fmt.Errorf("question %q has no options", truncate(q.Text, 60))
			}
			if len(q.CorrectOptions) == 0 {
				return nil, fmt.Errorf("question %q has no resolvable correct answer", truncate(q.Text, 60))
			}
			for _, pos := range q.CorrectOptions {
				if pos < 0 || pos >= len(q.Options) {
					return nil, fmt.Errorf("question %q answer position %d out of range", truncate(q.Text, 60), pos)
				}
			}
		}

		payload.Questions = append(payload.Questions, CommitQuestion{
			Kind:           q.Kind,
			Text:           q.Text,
			Options:        q.Options,
			CorrectOptions: q.CorrectOptions,
			CorrectAnswer:  q.CorrectAnswer,
			Explanation:    q.Explanation,
			Tags:           q.Tags,
			Marks:          q.Marks,
			SourcePage:     q.SourcePage,
			PassageRef:     q.PassageID,
		})
		payload.TotalMarks += q.Marks
		if q.PassageID != "" {
			referenced[q.PassageID] = true
		}
	}

	if len(payload.Questions) == 0 {
		return nil, ErrNoQuestionsSelected
	}

	// The full passage list goes along; passages referenced by no selected
	// question are still kept so later imports into the same exam can link them
	for _, p := range passages {
		payload.Passages = append(payload.Passages, CommitPassage{
			Ref:   p.ID,
			Title: p.Title,
			Body:  p.Body,
		})
	}

	if includeInstructions {
		payload.Instructions = instructions
	}

	return payload, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
