package cron

import "log"

// SweepImportSessions discards import sessions that are abandoned, committed,
// or idle past their TTL
func (m *CronManager) SweepImportSessions() {
	removed := m.registry.SweepExpired()
	if removed > 0 {
		log.Printf("Cron: sweep_import_sessions removed %d sessions", removed)
	}
}
