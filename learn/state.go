package learn

import (
	"fmt"
	"sort"
)

// State is the discrete observation the policy conditions on.
// Comparable, so it is used directly as a Q-table key.
type State struct {
	Clients      int  // effective client count
	Handshake    bool // a handshake was observed in the last capture
	OfflineSteps int  // consecutive steps with zero effective clients
}

// String renders the state as a tuple.
func (s State) String() string {
	return fmt.Sprintf("(%d, %t, %d)", s.Clients, s.Handshake, s.OfflineSteps)
}

// ClientSet is a set of client identifiers seen associated to the target.
type ClientSet map[string]struct{}

// NewClientSet builds a set from ids.
func NewClientSet(ids ...string) ClientSet {
	s := make(ClientSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Len returns the set size. Safe on a nil set.
func (s ClientSet) Len() int {
	return len(s)
}

// Intersect returns the members of s that are also in other.
func (s ClientSet) Intersect(other ClientSet) ClientSet {
	out := make(ClientSet)
	for id := range s {
		if _, ok := other[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// Sorted returns the members in lexical order.
func (s ClientSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// TrafficFeatures is the result of offline analysis of a capture window.
type TrafficFeatures struct {
	EAPOLCount        int  `json:"eapol_count" yaml:"eapol_count"`
	HandshakeObserved bool `json:"handshake_observed" yaml:"handshake_observed"`
}

// EffectiveClients suppresses noisy presence readings: a count that falls
// below half of the baseline population is treated as zero.
func EffectiveClients(measured, baselinePopulation int) int {
	if float64(measured) >= float64(baselinePopulation)/2 {
		return measured
	}
	return 0
}

// NextOfflineSteps advances the offline-duration counter: reset while the
// target has clients, 1 on the step that takes it offline, +1 while it stays offline.
func NextOfflineSteps(oldClients, oldOffline, effective int) int {
	if effective > 0 {
		return 0
	}
	if oldClients > 0 {
		return 1
	}
	return oldOffline + 1
}

// ObserveState combines a presence reading and traffic features into the next State.
func ObserveState(prev State, effective int, features TrafficFeatures) State {
	return State{
		Clients:      effective,
		Handshake:    features.HandshakeObserved,
		OfflineSteps: NextOfflineSteps(prev.Clients, prev.OfflineSteps, effective),
	}
}
