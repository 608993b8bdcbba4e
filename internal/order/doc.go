// Package order linearizes named items under "X precedes Y" constraints.
//
// A Table holds one family of constraints (for example filter-set load order
// or filter execution order). Sort applies Kahn's algorithm to a list of
// items and a Table:
//
//	t := order.NewTable("filter order")
//	t.Add("invoke", "trace") // invoke runs before trace
//	sorted, err := order.Sort(filters, t, (*Filter).Name)
//
// When several items become ready at the same time they are emitted in their
// input order. Callers must not rely on any other tie-break.
package order
