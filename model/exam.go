package model

import (
	"time"

	"gorm.io/gorm"
)

// Exam represents a persisted exam in the question bank
type Exam struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	Title           string         `gorm:"type:varchar(255);not null" json:"title"`
	DurationMinutes int            `gorm:"default:0" json:"duration_minutes"`
	TotalMarks      int            `gorm:"default:0" json:"total_marks"`

	// Relationships
	Sections []ExamSection `gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE" json:"sections,omitempty"`
}

// ExamSection groups questions within an exam
type ExamSection struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	ExamID       uint           `gorm:"not null;index" json:"exam_id"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	Instructions string         `gorm:"type:text" json:"instructions,omitempty"`

	// Relationships
	Exam      Exam       `gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE" json:"-"`
	Questions []Question `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

// ExamSummary is a lightweight version for listing
type ExamSummary struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	DurationMinutes int       `json:"duration_minutes"`
	TotalMarks      int       `json:"total_marks"`
	SectionCount    int       `json:"section_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// ToSummary converts Exam to ExamSummary
func (e *Exam) ToSummary() ExamSummary {
	return ExamSummary{
		ID:              e.ID,
		Title:           e.Title,
		DurationMinutes: e.DurationMinutes,
		TotalMarks:      e.TotalMarks,
		SectionCount:    len(e.Sections),
		CreatedAt:       e.CreatedAt,
	}
}

// ExamSectionSummary is used when picking a commit target
type ExamSectionSummary struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	QuestionCount int    `json:"question_count"`
}

// ToSummary converts ExamSection to ExamSectionSummary
func (s *ExamSection) ToSummary() ExamSectionSummary {
	return ExamSectionSummary{
		ID:            s.ID,
		Name:          s.Name,
		QuestionCount: len(s.Questions),
	}
}
