package ballast

import (
	"strconv"
	"time"
)

// Reporter receives lifecycle events of allocations and stress sessions.
type Reporter interface {
	Report(ev Event) error
}

// Event describes one allocation, release or stress session transition.
type Event struct {
	Type    string
	EventID string
	Time    time.Time
	Success bool
	// Fields carries the parameters of the operation, eg. "target_mb" or "threads"
	Fields map[string]string
}

// report hands the event to the reporter without blocking the caller.
func (b *Ballast) report(typ eventType, success bool, fields map[string]string) {
	result := "ok"
	if !success {
		result = "failed"
	}
	b.metrics.Events.WithLabelValues(type2name[typ], result).Inc()

	if b.opts.Reporter == nil {
		return
	}

	ev := Event{
		Type:    type2name[typ],
		EventID: type2name[typ] + "-" + strconv.FormatUint(b.eventSeq.Add(1), 10),
		Time:    time.Now(),
		Success: success,
		Fields:  fields,
	}
	reporter := b.opts.Reporter
	b.goWithRecover(func() {
		if err := reporter.Report(ev); err != nil {
			b.opts.Logger.Errorf("[ballast] report event %s failed: %v", ev.EventID, err)
		}
	})
}

func stressFields(p StressParams) map[string]string {
	return map[string]string{
		"threads":   strconv.Itoa(p.Threads),
		"duration":  strconv.Itoa(p.DurationSec),
		"intensity": strconv.FormatFloat(p.Intensity, 'f', 2, 64),
	}
}
