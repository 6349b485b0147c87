package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/adityarawat/examdesk/model"
	"gorm.io/gorm"
)

// ExamService is the persistence collaborator for the exam and question bank
type ExamService struct {
	db *gorm.DB
}

// NewExamService creates a new exam service
func NewExamService(db *gorm.DB) *ExamService {
	return &ExamService{db: db}
}

// ListExams returns all exams with their sections preloaded
func (s *ExamService) ListExams(ctx context.Context) ([]model.Exam, error) {
	var exams []model.Exam
	err := s.db.WithContext(ctx).
		Preload("Sections").
		Order("created_at DESC").
		Find(&exams).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	return exams, nil
}

// ListSections returns the sections of one exam with question counts
func (s *ExamService) ListSections(ctx context.Context, examID uint) ([]model.ExamSection, error) {
	var exam model.Exam
	if err := s.db.WithContext(ctx).First(&exam, examID).Error; err != nil {
		return nil, err
	}

	var sections []model.ExamSection
	err := s.db.WithContext(ctx).
		Preload("Questions").
		Where("exam_id = ?", examID).
		Order("id").
		Find(&sections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	return sections, nil
}

// FindDuplicateTexts returns the subset of normalized texts already present
// in the question bank under the given kind
func (s *ExamService) FindDuplicateTexts(ctx context.Context, kind model.QuestionKind, normalizedTexts []string) ([]string, error) {
	if len(normalizedTexts) == 0 {
		return nil, nil
	}

	var existing []string
	err := s.db.WithContext(ctx).
		Model(&model.Question{}).
		Where("kind = ? AND normalized_text IN ?", kind, normalizedTexts).
		Pluck("normalized_text", &existing).Error
	if err != nil {
		return nil, fmt.Errorf("duplicate lookup failed: %w", err)
	}
	return existing, nil
}

// CommitImport persists a commit payload in one transaction and returns the
// exam ID the questions landed in
func (s *ExamService) CommitImport(ctx context.Context, payload *CommitPayload) (uint, error) {
	var examID uint

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sectionID, resolvedExamID, err := s.resolveTarget(tx, payload)
		if err != nil {
			return err
		}
		examID = resolvedExamID

		// Passages are shared across questions; persist them once and map
		// session refs to row IDs
		passageIDs := make(map[string]uint, len(payload.Passages))
		for _, cp := range payload.Passages {
			passage := model.Passage{Title: cp.Title, Body: cp.Body}
			if err := tx.Create(&passage).Error; err != nil {
				return fmt.Errorf("failed to create passage: %w", err)
			}
			passageIDs[cp.Ref] = passage.ID
		}

		for _, cq := range payload.Questions {
			question := model.Question{
				SectionID:      sectionID,
				Kind:           cq.Kind,
				Text:           cq.Text,
				NormalizedText: NormalizeQuestionText(cq.Text),
				CorrectAnswer:  cq.CorrectAnswer,
				CorrectOptions: joinPositions(cq.CorrectOptions),
				Explanation:    cq.Explanation,
				Marks:          cq.Marks,
				SourcePage:     cq.SourcePage,
			}
			if cq.PassageRef != "" {
				if pid, ok := passageIDs[cq.PassageRef]; ok {
					question.PassageID = &pid
				}
			}

			if err := tx.Create(&question).Error; err != nil {
				return fmt.Errorf("failed to create question: %w", err)
			}

			for pos, text := range cq.Options {
				option := model.QuestionOption{
					QuestionID: question.ID,
					Position:   pos,
					Text:       text,
				}
				if err := tx.Create(&option).Error; err != nil {
					return fmt.Errorf("failed to create question option: %w", err)
				}
			}

			for _, tagName := range cq.Tags {
				tagName = strings.TrimSpace(tagName)
				if tagName == "" {
					continue
				}
				var tag model.Tag
				if err := tx.Where("name = ?", tagName).FirstOrCreate(&tag, model.Tag{Name: tagName}).Error; err != nil {
					return fmt.Errorf("failed to resolve tag %q: %w", tagName, err)
				}
				if err := tx.Model(&question).Association("Tags").Append(&tag); err != nil {
					return fmt.Errorf("failed to link tag %q: %w", tagName, err)
				}
			}
		}

		// Keep the exam's advisory total in step with the committed questions
		if err := tx.Model(&model.Exam{}).
			Where("id = ?", examID).
			UpdateColumn("total_marks", gorm.Expr("total_marks + ?", payload.TotalMarks)).Error; err != nil {
			return fmt.Errorf("failed to update exam total marks: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Printf("ExamService: committed %d questions into exam %d", len(payload.Questions), examID)
	return examID, nil
}

// resolveTarget creates the new exam/section or verifies the existing pair,
// returning the target section and exam IDs
func (s *ExamService) resolveTarget(tx *gorm.DB, payload *CommitPayload) (sectionID, examID uint, err error) {
	switch payload.Target.Mode {
	case TargetNew:
		exam := model.Exam{
			Title:           payload.Target.Title,
			DurationMinutes: payload.Target.DurationMinutes,
		}
		if err := tx.Create(&exam).Error; err != nil {
			return 0, 0, fmt.Errorf("failed to create exam: %w", err)
		}

		section := model.ExamSection{
			ExamID:       exam.ID,
			Name:         "Section A",
			Instructions: strings.Join(payload.Instructions, "\n"),
		}
		if err := tx.Create(&section).Error; err != nil {
			return 0, 0, fmt.Errorf("failed to create section: %w", err)
		}
		return section.ID, exam.ID, nil

	case TargetExisting:
		var section model.ExamSection
		err := tx.Where("id = ? AND exam_id = ?", payload.Target.SectionID, payload.Target.ExamID).
			First(&section).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return 0, 0, fmt.Errorf("section %d not found in exam %d", payload.Target.SectionID, payload.Target.ExamID)
			}
			return 0, 0, fmt.Errorf("failed to load target section: %w", err)
		}

		if len(payload.Instructions) > 0 {
			merged := section.Instructions
			if merged != "" {
				merged += "\n"
			}
			merged += strings.Join(payload.Instructions, "\n")
			if err := tx.Model(&section).UpdateColumn("instructions", merged).Error; err != nil {
				return 0, 0, fmt.Errorf("failed to update section instructions: %w", err)
			}
		}
		return section.ID, payload.Target.ExamID, nil
	}

	return 0, 0, &IncompleteTargetError{Missing: "target mode"}
}

// joinPositions renders zero-based option positions as "0,2"
func joinPositions(positions []int) string {
	if len(positions) == 0 {
		return ""
	}
	parts := make([]string, len(positions))
	for i, p := range positions {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}
