package order

// Edge is a single constraint: Before must be sequenced ahead of After.
type Edge struct {
	Before string
	After  string
}

// Table is a named set of ordering constraints.
// It maps each item name to the names that must come after it.
//
// Table is not safe for concurrent mutation. Constraints are declared during
// the single-threaded registration phase and only read afterwards.
type Table struct {
	name string

	// after maps a source name to its targets, in declaration order
	after map[string][]string

	// sources records first-seen order of source names for Edges()
	sources []string
}

// NewTable creates an empty constraint table.
// The name is used in diagnostics and cycle errors.
func NewTable(name string) *Table {
	return &Table{
		name:  name,
		after: make(map[string][]string),
	}
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Add records that before must be sequenced ahead of after.
// Duplicate constraints are ignored.
func (t *Table) Add(before, after string) {
	targets, exists := t.after[before]
	if !exists {
		t.sources = append(t.sources, before)
	}
	for _, existing := range targets {
		if existing == after {
			return
		}
	}
	t.after[before] = append(targets, after)
}

// After returns the names that must come after name.
// The returned slice must not be modified.
func (t *Table) After(name string) []string {
	return t.after[name]
}

// Edges returns all constraints in declaration order.
func (t *Table) Edges() []Edge {
	edges := make([]Edge, 0, t.Len())
	for _, src := range t.sources {
		for _, dst := range t.after[src] {
			edges = append(edges, Edge{Before: src, After: dst})
		}
	}
	return edges
}

// Len returns the number of constraints.
func (t *Table) Len() int {
	n := 0
	for _, targets := range t.after {
		n += len(targets)
	}
	return n
}

// Prune removes every constraint that names an item for which known returns
// false, and returns the removed constraints in declaration order.
func (t *Table) Prune(known func(name string) bool) []Edge {
	var dropped []Edge
	sources := t.sources[:0]
	for _, src := range t.sources {
		targets := t.after[src]
		if !known(src) {
			for _, dst := range targets {
				dropped = append(dropped, Edge{Before: src, After: dst})
			}
			delete(t.after, src)
			continue
		}

		kept := targets[:0]
		for _, dst := range targets {
			if known(dst) {
				kept = append(kept, dst)
			} else {
				dropped = append(dropped, Edge{Before: src, After: dst})
			}
		}
		if len(kept) == 0 {
			delete(t.after, src)
			continue
		}
		t.after[src] = kept
		sources = append(sources, src)
	}
	t.sources = sources
	return dropped
}
