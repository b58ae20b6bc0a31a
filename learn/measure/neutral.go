package measure

import (
	"context"
	"time"

	"github.com/airlearn/airlearn/learn"
)

// NeutralProbe reports a fixed performance value.
type NeutralProbe struct {
	Value float64
}

// Measure implements learn.PerformanceProbe.
func (p NeutralProbe) Measure(ctx context.Context, _ time.Duration) (float64, error) {
	return p.Value, ctx.Err()
}

// NeutralPresence reports no associated clients.
type NeutralPresence struct{}

// Scan implements learn.PresenceScanner.
func (NeutralPresence) Scan(ctx context.Context, _ learn.Target, _ time.Duration) (learn.ClientSet, error) {
	return learn.ClientSet{}, ctx.Err()
}

// NeutralTraffic reports no EAPOL frames and no handshake.
type NeutralTraffic struct{}

// Analyze implements learn.TrafficAnalyzer.
func (NeutralTraffic) Analyze(ctx context.Context, _ time.Duration) (learn.TrafficFeatures, error) {
	return learn.TrafficFeatures{}, ctx.Err()
}
