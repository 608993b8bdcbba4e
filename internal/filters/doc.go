// Package filters provides the built-in filter-sets.
//
//   - log is the bootstrap filter-set. Every other filter-set depends on it,
//     and it owns the logger they write to.
//   - invoke is the pass-through filter-set. Its filter forwards each call
//     to the real implementation.
//   - trace logs every call after it has been invoked.
package filters
