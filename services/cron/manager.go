package cron

import (
	"log"

	"github.com/adityarawat/examdesk/services"
	"github.com/robfig/cron/v3"
)

// CronManager manages all scheduled maintenance jobs
type CronManager struct {
	cron     *cron.Cron
	registry *services.SessionRegistry
}

// NewCronManager creates a new cron manager
func NewCronManager(registry *services.SessionRegistry) *CronManager {
	// Seconds precision matches the schedule specs below
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:     c,
		registry: registry,
	}
}

// Start registers and starts all cron jobs
func (m *CronManager) Start() error {
	log.Println("Starting cron jobs...")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	log.Println("Cron jobs started successfully")
	return nil
}

// Stop stops all cron jobs and waits for running ones to finish
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

func (m *CronManager) registerJobs() error {
	// Every 10 minutes: sweep abandoned/committed/idle import sessions so
	// raster pages don't pile up in memory
	_, err := m.cron.AddFunc("0 */10 * * * *", func() {
		log.Println("Cron: running sweep_import_sessions")
		m.SweepImportSessions()
	})
	if err != nil {
		return err
	}

	return nil
}
