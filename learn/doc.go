// Package learn provides the adaptive action-selection engine.
//
// # Reading Guide
//
// Start with these files to understand the learning kernel:
//   - catalog.go: atomic actions, combos, and the combinatorial action space
//   - qtable.go and policy.go: the sparse Q store and epsilon-greedy selection
//   - controller.go: the episode/step loop with its launch/settle/stop/join barrier
//
// # Architecture
//
// The learn package defines the model, the learning rules and the collaborator
// interfaces; implementations of the collaborators live in sub-packages:
//   - learn/runner/: execution of combos as external worker processes
//   - learn/measure/: reachability probe, client presence scan, traffic analysis
//   - learn/simenv/: a deterministic synthetic target implementing every collaborator
//   - learn/trace/: decision trace recording
//   - learn/telemetry/: Prometheus export of run progress
//
// # Key Interfaces
//
//   - Executor: launch a combo's workers, stop all, join
//   - PerformanceProbe: successful-interaction rate over a window
//   - PresenceScanner: client ids associated to the target
//   - TrafficAnalyzer: handshake features of a capture window
//   - Observer: step and episode notifications
package learn
