package model

import (
	"time"

	"gorm.io/gorm"
)

// QuestionKind classifies how a question is answered
type QuestionKind string

const (
	KindSingleChoice QuestionKind = "single_choice"
	KindMultiChoice  QuestionKind = "multi_choice"
	KindFillBlank    QuestionKind = "fill_blank"
	KindShortAnswer  QuestionKind = "short_answer"
	KindLongAnswer   QuestionKind = "long_answer"
)

// IsChoice reports whether the kind carries an option list
func (k QuestionKind) IsChoice() bool {
	return k == KindSingleChoice || k == KindMultiChoice
}

// Valid reports whether the kind is one of the known values
func (k QuestionKind) Valid() bool {
	switch k {
	case KindSingleChoice, KindMultiChoice, KindFillBlank, KindShortAnswer, KindLongAnswer:
		return true
	}
	return false
}

// Question represents a persisted question in the bank
type Question struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	SectionID uint           `gorm:"not null;index" json:"section_id"`
	Kind      QuestionKind   `gorm:"type:varchar(20);not null" json:"kind"`
	Text      string         `gorm:"type:text;not null" json:"text"`
	// NormalizedText is the lowercased, whitespace-collapsed form of Text,
	// indexed so duplicate checks are a single IN query
	NormalizedText string `gorm:"type:text;index" json:"-"`
	// CorrectOptions holds zero-based option positions for choice kinds,
	// comma separated ("1" or "0,2"); CorrectAnswer holds free text otherwise
	CorrectOptions string `gorm:"type:varchar(50)" json:"correct_options,omitempty"`
	CorrectAnswer  string `gorm:"type:text" json:"correct_answer,omitempty"`
	Explanation    string `gorm:"type:text" json:"explanation,omitempty"`
	Marks          int    `gorm:"default:0" json:"marks"`
	SourcePage     int    `gorm:"default:0" json:"source_page,omitempty"`
	PassageID      *uint  `gorm:"index" json:"passage_id,omitempty"`

	// Relationships
	Section ExamSection      `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE" json:"-"`
	Options []QuestionOption `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"options,omitempty"`
	Passage *Passage         `gorm:"foreignKey:PassageID;constraint:OnDelete:SET NULL" json:"passage,omitempty"`
	Tags    []Tag            `gorm:"many2many:question_tags;" json:"tags,omitempty"`
}

// QuestionOption is one answer option of a choice question, ordered by Position
type QuestionOption struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	QuestionID uint           `gorm:"not null;index" json:"question_id"`
	Position   int            `gorm:"not null" json:"position"`
	Text       string         `gorm:"type:text;not null" json:"text"`

	Question Question `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"-"`
}

// Passage is a shared reading or case-study body referenced by questions
type Passage struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Title     string         `gorm:"type:varchar(255)" json:"title"`
	Body      string         `gorm:"type:text;not null" json:"body"`
}

// Tag is an entry in the read-only question-tag directory
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
}
