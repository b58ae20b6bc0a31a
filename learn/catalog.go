package learn

import (
	"errors"
	"fmt"
	"strings"
)

// MaxCatalogSize bounds the number of combos a catalog may hold. Larger
// products are a configuration error rather than a slow start.
const MaxCatalogSize = 1 << 20

var (
	// ErrEmptyCatalog is returned when no atomic action can be built.
	ErrEmptyCatalog = errors.New("action catalog is empty")
	// ErrInvalidLevels is returned for an empty, non-positive or duplicated level set.
	ErrInvalidLevels = errors.New("invalid intensity levels")
	// ErrUnknownCombo is returned when a ComboID does not belong to the catalog.
	ErrUnknownCombo = errors.New("unknown action combo")
)

// Levels holds the four discrete intensity dimensions of an atomic action.
type Levels struct {
	Rate     int `yaml:"rate"`
	Threads  int `yaml:"threads"`
	Power    int `yaml:"power"`
	Duration int `yaml:"duration"`
}

// LevelSets lists the allowed, ordered levels for each intensity dimension.
type LevelSets struct {
	Rate     []int `yaml:"rate"`
	Threads  []int `yaml:"threads"`
	Power    []int `yaml:"power"`
	Duration []int `yaml:"duration"`
}

// DefaultLevelSets returns the level sets of the reference run.
func DefaultLevelSets() LevelSets {
	return LevelSets{
		Rate:     []int{1, 2},
		Threads:  []int{1, 2},
		Power:    []int{1},
		Duration: []int{1, 2},
	}
}

// Validate returns an error wrapping ErrInvalidLevels if any dimension is unusable.
func (ls LevelSets) Validate() error {
	dims := []struct {
		name   string
		levels []int
	}{
		{"rate", ls.Rate},
		{"threads", ls.Threads},
		{"power", ls.Power},
		{"duration", ls.Duration},
	}
	for _, d := range dims {
		if len(d.levels) == 0 {
			return fmt.Errorf("%w: %s has no levels", ErrInvalidLevels, d.name)
		}
		seen := make(map[int]bool, len(d.levels))
		for _, lv := range d.levels {
			if lv <= 0 {
				return fmt.Errorf("%w: %s level must be positive, got %d", ErrInvalidLevels, d.name, lv)
			}
			if seen[lv] {
				return fmt.Errorf("%w: %s level %d listed twice", ErrInvalidLevels, d.name, lv)
			}
			seen[lv] = true
		}
	}
	return nil
}

// AtomicAction is one parameterized unit of disruption: an action kind name
// plus its intensity levels. Comparable and immutable.
type AtomicAction struct {
	Kind   string
	Levels Levels
}

// String renders the action the way step logs print combo members.
func (a AtomicAction) String() string {
	return fmt.Sprintf("%s, rate=%d, thr=%d, power=%d, dur=%d",
		a.Kind, a.Levels.Rate, a.Levels.Threads, a.Levels.Power, a.Levels.Duration)
}

// ComboID is the index of an ActionCombo in its Catalog.
type ComboID int

// ActionCombo is a set of 1..K distinct atomic actions applied together in one step.
type ActionCombo struct {
	ID      ComboID
	Actions []AtomicAction
}

// Size returns the number of atomic actions in the combo.
func (c ActionCombo) Size() int {
	return len(c.Actions)
}

// String renders the combo as its members joined by " + ".
func (c ActionCombo) String() string {
	parts := make([]string, len(c.Actions))
	for i, a := range c.Actions {
		parts[i] = fmt.Sprintf("[%s]", a)
	}
	return strings.Join(parts, " + ")
}

// Catalog is the immutable action space of a run: every atomic action and
// every combo of 1..MaxCombo of them.
//
// Combos are enumerated by size, then lexicographically by atomic index, so a
// lower ComboID always means fewer actions or an earlier member list.
type Catalog struct {
	kinds    []string
	atomic   []AtomicAction
	combos   []ActionCombo
	maxCombo int
}

// NewCatalog builds the atomic action product and the combo catalog.
// All configuration errors are reported here, before any step runs.
func NewCatalog(kinds []string, levels LevelSets, maxCombo int) (*Catalog, error) {
	if len(kinds) == 0 {
		return nil, fmt.Errorf("%w: no action kinds configured", ErrEmptyCatalog)
	}
	seen := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		if k == "" {
			return nil, fmt.Errorf("action kind name must not be empty")
		}
		if seen[k] {
			return nil, fmt.Errorf("action kind %q listed twice", k)
		}
		seen[k] = true
	}
	if err := levels.Validate(); err != nil {
		return nil, err
	}
	if maxCombo < 1 {
		return nil, fmt.Errorf("max combo size must be at least 1, got %d", maxCombo)
	}

	atomic := buildAtomicActions(kinds, levels)
	if len(atomic) == 0 {
		return nil, ErrEmptyCatalog
	}
	total := CountCombos(len(atomic), maxCombo)
	if total > MaxCatalogSize {
		return nil, fmt.Errorf("combo catalog of %d atomic actions with max combo %d has %d members, limit is %d",
			len(atomic), maxCombo, total, MaxCatalogSize)
	}

	return &Catalog{
		kinds:    append([]string(nil), kinds...),
		atomic:   atomic,
		combos:   buildCombos(atomic, maxCombo, total),
		maxCombo: maxCombo,
	}, nil
}

func buildAtomicActions(kinds []string, ls LevelSets) []AtomicAction {
	var out []AtomicAction
	for _, k := range kinds {
		for _, rate := range ls.Rate {
			for _, thr := range ls.Threads {
				for _, pw := range ls.Power {
					for _, dur := range ls.Duration {
						out = append(out, AtomicAction{
							Kind:   k,
							Levels: Levels{Rate: rate, Threads: thr, Power: pw, Duration: dur},
						})
					}
				}
			}
		}
	}
	return out
}

// buildCombos enumerates r-subsets of atomic for r = 1..maxCombo.
func buildCombos(atomic []AtomicAction, maxCombo, total int) []ActionCombo {
	combos := make([]ActionCombo, 0, total)
	n := len(atomic)
	for r := 1; r <= maxCombo && r <= n; r++ {
		idx := make([]int, r)
		for i := range idx {
			idx[i] = i
		}
		for {
			members := make([]AtomicAction, r)
			for i, j := range idx {
				members[i] = atomic[j]
			}
			combos = append(combos, ActionCombo{ID: ComboID(len(combos)), Actions: members})

			// advance to the next index tuple in lexicographic order
			i := r - 1
			for i >= 0 && idx[i] == n-r+i {
				i--
			}
			if i < 0 {
				break
			}
			idx[i]++
			for j := i + 1; j < r; j++ {
				idx[j] = idx[j-1] + 1
			}
		}
	}
	return combos
}

// CountCombos returns Σ_{r=1}^{k} C(n, r). Saturates at MaxCatalogSize+1.
func CountCombos(n, k int) int {
	total := 0
	c := 1 // C(n, 0)
	for r := 1; r <= k && r <= n; r++ {
		c = c * (n - r + 1) / r
		total += c
		if total > MaxCatalogSize || c > MaxCatalogSize {
			return MaxCatalogSize + 1
		}
	}
	return total
}

// Kinds returns the configured action kind names.
func (c *Catalog) Kinds() []string {
	return append([]string(nil), c.kinds...)
}

// Atomic returns a copy of the atomic action catalog.
func (c *Catalog) Atomic() []AtomicAction {
	return append([]AtomicAction(nil), c.atomic...)
}

// Len returns the number of combos.
func (c *Catalog) Len() int {
	return len(c.combos)
}

// MaxCombo returns the configured maximum combo size.
func (c *Catalog) MaxCombo() int {
	return c.maxCombo
}

// Contains reports whether id names a combo of this catalog.
func (c *Catalog) Contains(id ComboID) bool {
	return id >= 0 && int(id) < len(c.combos)
}

// Combo returns the combo with the given id.
func (c *Catalog) Combo(id ComboID) (ActionCombo, error) {
	if !c.Contains(id) {
		return ActionCombo{}, fmt.Errorf("%w: id %d outside [0, %d)", ErrUnknownCombo, id, len(c.combos))
	}
	return c.combos[id], nil
}
