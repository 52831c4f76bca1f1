package eventhandler

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nivesh-labs/nivesh-progress/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE METRICS
// ══════════════════════════════════════════════════════════════════════════════

// EngineMetrics counts the core progress activity from the domain events:
// XP granted by source, level-ups and achievement unlocks.
type EngineMetrics struct {
	xpGranted    *prometheus.CounterVec
	grants       *prometheus.CounterVec
	levelUps     prometheus.Counter
	achievements *prometheus.CounterVec
}

// NewEngineMetrics creates the subscriber and registers its collectors.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		xpGranted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "progress",
			Subsystem: "engine",
			Name:      "xp_granted_total",
			Help:      "Total XP granted, by grant source.",
		}, []string{"source"}),
		grants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "progress",
			Subsystem: "engine",
			Name:      "grants_total",
			Help:      "XP grants recorded, by grant source.",
		}, []string{"source"}),
		levelUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "progress",
			Subsystem: "engine",
			Name:      "level_ups_total",
			Help:      "Level-ups reached.",
		}),
		achievements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "progress",
			Subsystem: "engine",
			Name:      "achievements_unlocked_total",
			Help:      "Achievements unlocked, by achievement.",
		}, []string{"achievement"}),
	}

	if reg != nil {
		reg.MustRegister(m.xpGranted, m.grants, m.levelUps, m.achievements)
	}

	return m
}

// Handle implements shared.EventHandler. Unknown events are ignored so the
// subscriber can be attached to every event type it may ever care about.
func (m *EngineMetrics) Handle(_ context.Context, event shared.Event) error {
	switch e := event.(type) {
	case shared.XPGainedEvent:
		m.xpGranted.WithLabelValues(e.Source).Add(float64(e.Amount))
		m.grants.WithLabelValues(e.Source).Inc()
	case shared.LevelUpEvent:
		m.levelUps.Inc()
	case shared.AchievementUnlockedEvent:
		m.achievements.WithLabelValues(e.AchievementKey).Inc()
	}
	return nil
}
