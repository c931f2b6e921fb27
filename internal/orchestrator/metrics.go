package orchestrator

import (
	"sync"
	"time"

	"github.com/fabrica-ai/fabrica/pkg/models"
)

// metrics aggregates project outcomes across the whole process. All
// updates happen under one lock since they span projects.
type metrics struct {
	mu         sync.Mutex
	total      int
	active     int
	completed  int
	failed     int
	avgSeconds float64
}

func (m *metrics) projectCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	m.active++
}

// projectCompleted folds the project duration into the running mean
// using the incremental update newAvg = oldAvg + (x - oldAvg) / n.
func (m *metrics) projectCompleted(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active--
	m.completed++
	x := duration.Seconds()
	m.avgSeconds += (x - m.avgSeconds) / float64(m.completed)
}

func (m *metrics) projectFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active--
	m.failed++
}

func (m *metrics) snapshot() models.MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	rate := 1.0
	if m.completed+m.failed > 0 {
		rate = float64(m.completed) / float64(m.completed+m.failed)
	}
	return models.MetricsSnapshot{
		TotalProjects:     m.total,
		ActiveProjects:    m.active,
		CompletedProjects: m.completed,
		FailedProjects:    m.failed,
		AvgGenerationTime: m.avgSeconds,
		SuccessRate:       rate,
	}
}
