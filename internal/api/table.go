package api

import (
	"errors"
	"fmt"
	"sort"
)

// OperationID is the dense integer assigned to an intercepted entry point.
type OperationID int

// NoOperation is returned by lookups that fail.
const NoOperation OperationID = -1

// ErrDuplicateOperation is returned when a table lists a name twice.
var ErrDuplicateOperation = errors.New("duplicate operation name")

// Entry describes one operation when building a Table.
type Entry struct {
	// Name is the entry point name, e.g. "glDrawArrays".
	Name string

	// Group names the canonical operation this one aliases.
	// Empty means the operation is its own group.
	Group string
}

// Operation is one row of a Table.
type Operation struct {
	ID    OperationID
	Name  string
	Group string
}

// Table maps operation names to IDs and groups.
// A Table is immutable once built and safe for concurrent use.
type Table struct {
	ops    []Operation
	byName map[string]OperationID
	groups map[string][]OperationID
}

// NewTable builds a table; IDs are assigned in entry order starting at 0.
func NewTable(entries ...Entry) (*Table, error) {
	t := &Table{
		ops:    make([]Operation, 0, len(entries)),
		byName: make(map[string]OperationID, len(entries)),
		groups: make(map[string][]OperationID),
	}

	for i, e := range entries {
		if _, exists := t.byName[e.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateOperation, e.Name)
		}
		group := e.Group
		if group == "" {
			group = e.Name
		}
		id := OperationID(i)
		t.ops = append(t.ops, Operation{ID: id, Name: e.Name, Group: group})
		t.byName[e.Name] = id
		t.groups[group] = append(t.groups[group], id)
	}

	return t, nil
}

// MustTable is like NewTable but panics on error.
// Use only for tables compiled into the program.
func MustTable(entries ...Entry) *Table {
	t, err := NewTable(entries...)
	if err != nil {
		panic("invalid operation table: " + err.Error())
	}
	return t
}

// Len returns the number of operations.
func (t *Table) Len() int {
	return len(t.ops)
}

// Valid reports whether id is inside the table.
func (t *Table) Valid(id OperationID) bool {
	return id >= 0 && int(id) < len(t.ops)
}

// Operation returns the row for id.
func (t *Table) Operation(id OperationID) (Operation, bool) {
	if !t.Valid(id) {
		return Operation{}, false
	}
	return t.ops[id], true
}

// Name returns the entry point name for id, or "" if id is out of range.
func (t *Table) Name(id OperationID) string {
	if !t.Valid(id) {
		return ""
	}
	return t.ops[id].Name
}

// Lookup returns the ID of the named operation.
func (t *Table) Lookup(name string) (OperationID, bool) {
	id, ok := t.byName[name]
	if !ok {
		return NoOperation, false
	}
	return id, true
}

// Group returns the members of the named group.
// The returned slice must not be modified.
func (t *Table) Group(group string) []OperationID {
	return t.groups[group]
}

// Groups returns all group names, sorted.
func (t *Table) Groups() []string {
	names := make([]string, 0, len(t.groups))
	for name := range t.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
