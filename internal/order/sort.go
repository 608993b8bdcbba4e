package order

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/eapache/queue"
)

// ErrCyclicDependency is returned when a table's constraints cannot be
// linearized.
var ErrCyclicDependency = errors.New("cyclic dependency")

// CycleError reports the items Sort could not place.
type CycleError struct {
	// Table is the name of the constraint table that contains the cycle.
	Table string

	// Unresolved lists the items that were never emitted, in input order.
	Unresolved []string

	// Constraints lists the constraints between unresolved items.
	Constraints []Edge
}

func (e *CycleError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s in %s: unresolved %s", ErrCyclicDependency, e.Table, strings.Join(e.Unresolved, ", "))
	if len(e.Constraints) > 0 {
		parts := make([]string, len(e.Constraints))
		for i, c := range e.Constraints {
			parts[i] = c.Before + " -> " + c.After
		}
		fmt.Fprintf(&b, " (constraints %s)", strings.Join(parts, ", "))
	}
	return b.String()
}

func (e *CycleError) Unwrap() error {
	return ErrCyclicDependency
}

// Sort returns items in an order that satisfies every constraint in t whose
// endpoints are both present in items.
//
// Constraints naming items that are absent from the input are ignored. If
// several items share a name, constraints on that name apply to all of them.
// Items that become ready together keep their relative input order.
func Sort[T any](items []T, t *Table, nameOf func(T) string) ([]T, error) {
	index := make(map[string][]int, len(items))
	for i, item := range items {
		name := nameOf(item)
		index[name] = append(index[name], i)
	}

	// targets[i] holds the item indices that must follow item i
	targets := make([][]int, len(items))
	inDegree := make([]int, len(items))
	for i, item := range items {
		for _, after := range t.After(nameOf(item)) {
			for _, j := range index[after] {
				targets[i] = append(targets[i], j)
				inDegree[j]++
			}
		}
		// items released by the same pop are queued in input order
		slices.Sort(targets[i])
	}

	ready := queue.New()
	for i := range items {
		if inDegree[i] == 0 {
			ready.Add(i)
		}
	}

	sorted := make([]T, 0, len(items))
	for ready.Length() > 0 {
		i := ready.Remove().(int)
		sorted = append(sorted, items[i])
		for _, j := range targets[i] {
			inDegree[j]--
			if inDegree[j] == 0 {
				ready.Add(j)
			}
		}
	}

	if len(sorted) == len(items) {
		return sorted, nil
	}
	return nil, cycleError(items, t, nameOf, inDegree)
}

// cycleError builds the diagnostic for the items left with a positive
// in-degree.
func cycleError[T any](items []T, t *Table, nameOf func(T) string, inDegree []int) *CycleError {
	stuck := make(map[string]bool)
	err := &CycleError{Table: t.Name()}
	for i, item := range items {
		if inDegree[i] > 0 {
			name := nameOf(item)
			if !stuck[name] {
				stuck[name] = true
				err.Unresolved = append(err.Unresolved, name)
			}
		}
	}
	for _, e := range t.Edges() {
		if stuck[e.Before] && stuck[e.After] {
			err.Constraints = append(err.Constraints, e)
		}
	}
	return err
}
