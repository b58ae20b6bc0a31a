package learn

import (
	"hash/fnv"
	"math/rand"
)

// RunKey is the seed of a run. Replaying a run with the same key, config and
// measurements reproduces every decision.
type RunKey int64

// NewRunKey wraps a seed.
func NewRunKey(seed int64) RunKey {
	return RunKey(seed)
}

// Random streams drawn from a PartitionedRNG.
const (
	// SubsystemPolicy feeds exploration draws and random combo picks. It is
	// seeded with the run key itself, so a seed means the same thing with or
	// without a synthetic target attached.
	SubsystemPolicy = "policy"

	// SubsystemEnvironment feeds the synthetic target's per-launch rounding
	// and reading noise.
	SubsystemEnvironment = "environment"
)

// SubsystemKind names the stream that fixes the synthetic strength of an action kind.
func SubsystemKind(name string) string {
	return "kind_" + name
}

// PartitionedRNG hands out one independent stream per subsystem, all
// derived from the run key. Adding a consumer of one stream never shifts the
// draws of another.
//
// Streams other than SubsystemPolicy are seeded with key ^ FNV-1a(name).
// Not safe for concurrent use; the controller goroutine owns it.
type PartitionedRNG struct {
	key     RunKey
	streams map[string]*rand.Rand
}

// NewPartitionedRNG creates the stream set for key.
func NewPartitionedRNG(key RunKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, streams: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the stream for name, creating it on first use.
// Repeated calls return the same *rand.Rand.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	r, ok := p.streams[name]
	if !ok {
		r = rand.New(rand.NewSource(p.seedFor(name)))
		p.streams[name] = r
	}
	return r
}

func (p *PartitionedRNG) seedFor(name string) int64 {
	if name == SubsystemPolicy {
		return int64(p.key)
	}
	return int64(p.key) ^ fnv1a64(name)
}

// Key returns the run key.
func (p *PartitionedRNG) Key() RunKey {
	return p.key
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
