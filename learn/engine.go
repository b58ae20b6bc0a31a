package learn

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Engine owns the learning state of one run: the catalog, the Q table, the
// epsilon-greedy policy, the classifier and the outcome history. All episodes
// share it; nothing is reset between episodes.
type Engine struct {
	catalog    *Catalog
	q          *QTable
	policy     *EpsilonGreedy
	classifier *Classifier
	history    *History
	reward     RewardConfig
	rng        *PartitionedRNG
}

// NewEngine validates cfg and builds the engine. Every configuration error
// surfaces here, before any step runs.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	catalog, err := NewCatalog(cfg.Kinds, cfg.Levels, cfg.MaxCombo)
	if err != nil {
		return nil, fmt.Errorf("building action catalog: %w", err)
	}
	rng := NewPartitionedRNG(NewRunKey(cfg.Learning.Seed))
	q := NewQTable(catalog, cfg.Learning.Alpha, cfg.Learning.Gamma)

	logrus.Debugf("action catalog: %d kinds, %d atomic actions, %d combos (max combo %d)",
		len(cfg.Kinds), len(catalog.atomic), catalog.Len(), cfg.MaxCombo)

	return &Engine{
		catalog:    catalog,
		q:          q,
		policy:     NewEpsilonGreedy(cfg.Exploration, catalog, q, rng.ForSubsystem(SubsystemPolicy)),
		classifier: NewClassifier(cfg.Outcome),
		history:    NewHistory(),
		reward:     cfg.Reward,
		rng:        rng,
	}, nil
}

// Select picks the combo to apply in state s.
func (e *Engine) Select(s State) (ActionCombo, Decision, error) {
	id, decision, err := e.policy.Select(s)
	if err != nil {
		return ActionCombo{}, "", err
	}
	combo, err := e.catalog.Combo(id)
	if err != nil {
		return ActionCombo{}, "", err
	}
	return combo, decision, nil
}

// Reward computes the step reward from measurements and the client transition.
func (e *Engine) Reward(baseline, current float64, oldClients, newClients int) float64 {
	return e.reward.Reward(baseline, current, oldClients, newClients)
}

// Record classifies a reward and appends the outcome to the history.
func (e *Engine) Record(reward float64) OutcomeRecord {
	r := e.classifier.Classify(reward)
	e.history.Record(r)
	return r
}

// Learn applies the Q update for one transition and returns the new value.
func (e *Engine) Learn(s State, id ComboID, reward float64, next State) (float64, error) {
	return e.q.Update(s, id, reward, next)
}

// EndEpisode computes metrics over the full history, then decays epsilon.
func (e *Engine) EndEpisode() Metrics {
	m := e.history.Metrics()
	e.policy.Decay()
	return m
}

// Best returns the best known combo for s, or nil if s has no entries.
func (e *Engine) Best(s State) *ActionCombo {
	id, _, ok := e.q.Best(s)
	if !ok {
		return nil
	}
	combo, err := e.catalog.Combo(id)
	if err != nil {
		return nil
	}
	return &combo
}

// Catalog returns the immutable action space.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// QTable returns the Q-value store.
func (e *Engine) QTable() *QTable { return e.q }

// Epsilon returns the current exploration rate.
func (e *Engine) Epsilon() float64 { return e.policy.Epsilon() }

// History returns the outcome history.
func (e *Engine) History() *History { return e.history }

// RNG returns the run's partitioned RNG.
func (e *Engine) RNG() *PartitionedRNG { return e.rng }
