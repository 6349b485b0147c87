package database

import (
	"fmt"
	"log"

	"github.com/adityarawat/examdesk/model"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll() error {
	log.Println("🌱 Starting database seeding...")

	if err := s.SeedTags(); err != nil {
		return fmt.Errorf("failed to seed tags: %w", err)
	}

	if err := s.SeedSampleExam(); err != nil {
		return fmt.Errorf("failed to seed sample exam: %w", err)
	}

	log.Println("✅ Database seeding completed successfully!")
	return nil
}

// SeedTags creates the starter tag directory
func (s *Seeder) SeedTags() error {
	tags := []string{
		"algebra", "calculus", "mechanics", "thermodynamics",
		"organic-chemistry", "data-structures", "operating-systems",
		"grammar", "comprehension",
	}

	for _, name := range tags {
		var tag model.Tag
		if err := s.db.Where(model.Tag{Name: name}).FirstOrCreate(&tag, model.Tag{Name: name}).Error; err != nil {
			return err
		}
	}

	log.Printf("Seeder: ensured %d tags", len(tags))
	return nil
}

// SeedSampleExam creates one example exam with a section and a couple of
// questions so a fresh install has something to browse
func (s *Seeder) SeedSampleExam() error {
	var count int64
	if err := s.db.Model(&model.Exam{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("Seeder: exams already present, skipping sample exam")
		return nil
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		exam := model.Exam{
			Title:           "Sample Physics Paper",
			DurationMinutes: 90,
			TotalMarks:      11,
		}
		if err := tx.Create(&exam).Error; err != nil {
			return err
		}

		section := model.ExamSection{
			ExamID:       exam.ID,
			Name:         "Section A",
			Instructions: "Attempt all questions.",
		}
		if err := tx.Create(&section).Error; err != nil {
			return err
		}

		questions := []model.Question{
			{
				SectionID:      section.ID,
				Kind:           model.KindSingleChoice,
				Text:           "Which quantity is conserved in an elastic collision?",
				NormalizedText: "which quantity is conserved in an elastic collision?",
				CorrectOptions: "1",
				Marks:          1,
			},
			{
				SectionID:      section.ID,
				Kind:           model.KindLongAnswer,
				Text:           "Derive the equation of motion for a simple pendulum.",
				NormalizedText: "derive the equation of motion for a simple pendulum.",
				Marks:          10,
			},
		}
		for i := range questions {
			if err := tx.Create(&questions[i]).Error; err != nil {
				return err
			}
		}

		options := []model.QuestionOption{
			{QuestionID: questions[0].ID, Position: 0, Text: "Momentum only"},
			{QuestionID: questions[0].ID, Position: 1, Text: "Momentum and kinetic energy"},
			{QuestionID: questions[0].ID, Position: 2, Text: "Kinetic energy only"},
			{QuestionID: questions[0].ID, Position: 3, Text: "Neither"},
		}
		for i := range options {
			if err := tx.Create(&options[i]).Error; err != nil {
				return err
			}
		}

		log.Printf("Seeder: created sample exam %d", exam.ID)
		return nil
	})
}

// RunSeeds is the entry point used by the seed command
func RunSeeds(db *gorm.DB) error {
	return NewSeeder(db).SeedAll()
}
