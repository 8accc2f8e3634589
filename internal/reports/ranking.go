package reports

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Ranked is one entry of a Top selection.
type Ranked[K comparable] struct {
	Key    K
	Metric decimal.Decimal
}

// Tally accumulates a numeric metric per key while remembering the order
// in which keys were first seen. Top uses that order to break metric ties
// deterministically, so repeated runs over the same input always rank
// identically. A Tally is built, read and discarded within a single
// aggregation call; it is not safe for concurrent use and never shared.
type Tally[K comparable] struct {
	order  []K
	metric map[K]decimal.Decimal
}

func NewTally[K comparable]() *Tally[K] {
	return &Tally[K]{metric: make(map[K]decimal.Decimal)}
}

func (t *Tally[K]) Add(key K, delta decimal.Decimal) {
	if _, seen := t.metric[key]; !seen {
		t.order = append(t.order, key)
	}
	t.metric[key] = t.metric[key].Add(delta)
}

func (t *Tally[K]) Get(key K) decimal.Decimal {
	return t.metric[key]
}

func (t *Tally[K]) Len() int {
	return len(t.order)
}

// Top returns up to n entries sorted descending by metric, ties broken by
// first-seen order. n <= 0 returns every entry. The receiver is not
// modified; Top is a pure read.
func (t *Tally[K]) Top(n int) []Ranked[K] {
	entries := make([]Ranked[K], 0, len(t.order))
	for _, key := range t.order {
		entries = append(entries, Ranked[K]{Key: key, Metric: t.metric[key]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Metric.GreaterThan(entries[j].Metric)
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
