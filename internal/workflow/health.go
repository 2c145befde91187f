package workflow

import (
	"context"

	"relic/internal/stage"
)

// Health reports the readiness of every configured stage.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	checks := make([]stage.Health, 0, len(m.sequence())+1)
	for _, st := range m.sequence() {
		checks = append(checks, st.handler.HealthCheck(ctx))
	}
	checks = append(checks, m.organizer.HealthCheck(ctx))
	return checks
}

// Ready reports whether every stage passed its health check.
func (m *Manager) Ready(ctx context.Context) bool {
	for _, health := range m.Health(ctx) {
		if !health.Ready {
			return false
		}
	}
	return true
}
