package learn

import "fmt"

// QTable is the sparse Q-value store: State → ComboID → value.
// Rows are created lazily; a missing entry reads as zero.
//
// Thread-safety: NOT thread-safe. Owned by one Engine and touched only by the
// controller goroutine.
type QTable struct {
	alpha   float64
	gamma   float64
	catalog *Catalog
	rows    map[State]map[ComboID]float64
}

// NewQTable creates an empty table bound to a catalog.
func NewQTable(catalog *Catalog, alpha, gamma float64) *QTable {
	return &QTable{
		alpha:   alpha,
		gamma:   gamma,
		catalog: catalog,
		rows:    make(map[State]map[ComboID]float64),
	}
}

// Value returns Q[s][id], zero if absent.
func (q *QTable) Value(s State, id ComboID) float64 {
	return q.rows[s][id]
}

// MaxValue returns max over the state's recorded entries, or 0 for an empty row.
func (q *QTable) MaxValue(s State) float64 {
	_, v, ok := q.Best(s)
	if !ok {
		return 0.0
	}
	return v
}

// Best returns the argmax combo of a state's row.
// Ties resolve to the lowest ComboID. ok is false when the state has no entries.
func (q *QTable) Best(s State) (id ComboID, value float64, ok bool) {
	row := q.rows[s]
	if len(row) == 0 {
		return 0, 0, false
	}
	first := true
	for cid, v := range row {
		if first || v > value || (v == value && cid < id) {
			id, value, first = cid, v, false
		}
	}
	return id, value, true
}

// Update applies one-step Q-learning:
// Q(s,a) ← Q(s,a) + α·(r + γ·max_a' Q(s',a') − Q(s,a)).
// Returns the new value.
func (q *QTable) Update(s State, id ComboID, reward float64, next State) (float64, error) {
	if !q.catalog.Contains(id) {
		return 0, fmt.Errorf("%w: cannot update id %d", ErrUnknownCombo, id)
	}
	old := q.Value(s, id)
	nxt := q.MaxValue(next)
	updated := old + q.alpha*(reward+q.gamma*nxt-old)

	row, ok := q.rows[s]
	if !ok {
		row = make(map[ComboID]float64)
		q.rows[s] = row
	}
	row[id] = updated
	return updated, nil
}

// Row returns a copy of the state's entries.
func (q *QTable) Row(s State) map[ComboID]float64 {
	out := make(map[ComboID]float64, len(q.rows[s]))
	for k, v := range q.rows[s] {
		out[k] = v
	}
	return out
}

// States returns the number of states with at least one entry.
func (q *QTable) States() int {
	return len(q.rows)
}

// Len returns the total number of recorded entries.
func (q *QTable) Len() int {
	n := 0
	for _, row := range q.rows {
		n += len(row)
	}
	return n
}
