package learn

import "github.com/airlearn/airlearn/learn/trace"

// TraceObserver records controller events into a RunTrace.
type TraceObserver struct {
	Trace *trace.RunTrace
}

// ObserveStep implements Observer.
func (o *TraceObserver) ObserveStep(ev StepEvent) {
	if !o.Trace.Enabled() {
		return
	}
	o.Trace.RecordStep(trace.StepRecord{
		Episode:          ev.Episode,
		Step:             ev.Step,
		Clients:          ev.State.Clients,
		Handshake:        ev.State.Handshake,
		OfflineSteps:     ev.State.OfflineSteps,
		ComboID:          int(ev.Combo.ID),
		Combo:            ev.Combo.String(),
		Decision:         string(ev.Decision),
		Epsilon:          ev.Epsilon,
		Measured:         ev.Measured,
		Effective:        ev.Effective,
		Performance:      ev.Performance,
		Reward:           ev.Reward,
		Predicted:        ev.Outcome.Predicted,
		QValue:           ev.QValue,
		NextClients:      ev.Next.Clients,
		NextOfflineSteps: ev.Next.OfflineSteps,
	})
}

// ObserveEpisode implements Observer.
func (o *TraceObserver) ObserveEpisode(ev EpisodeEvent) {
	if !o.Trace.Enabled() {
		return
	}
	o.Trace.RecordEpisode(trace.EpisodeRecord{
		Episode:   ev.Episode,
		Accuracy:  ev.Metrics.Accuracy,
		Precision: ev.Metrics.Precision,
		Recall:    ev.Metrics.Recall,
		F1:        ev.Metrics.F1,
		Epsilon:   ev.Epsilon,
	})
}
