package logging

import (
	"github.com/linuxmatters/avc/internal/control"
	"github.com/sirupsen/logrus"
)

// Tracer logs each controller decision as one structured record.
type Tracer struct {
	log   *logrus.Entry
	level logrus.Level
}

// NewTracer returns a tracer writing to log at info level.
func NewTracer(log *logrus.Entry) *Tracer {
	return &Tracer{log: log, level: logrus.InfoLevel}
}

// Trace implements control.Tracer.
func (t *Tracer) Trace(d control.Decision) {
	t.log.WithFields(DecisionFields(d)).Log(t.level, "Volume cycle")
}

// DecisionFields returns the trace fields for d.
func DecisionFields(d control.Decision) logrus.Fields {
	return logrus.Fields{
		"monitor_peak":   d.MonitorPeak,
		"capture_peak":   d.CapturePeak,
		"delta":          d.Delta,
		"current_volume": d.CurrentVolume,
		"volume_change":  d.Modifier,
		"next_volume":    d.NextVolume,
		"applied":        d.Applied,
	}
}
