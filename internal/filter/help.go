package filter

import (
	"fmt"
	"io"
	"sort"
)

// Help writes a listing of every registered filter-set, sorted by name,
// with its help text and variables.
func (rt *Runtime) Help(w io.Writer) error {
	sets := rt.FilterSets()
	sort.Slice(sets, func(i, j int) bool { return sets[i].name < sets[j].name })

	if _, err := fmt.Fprintln(w, "Usage: filter-sets and their variables"); err != nil {
		return err
	}
	for _, s := range sets {
		if _, err := fmt.Fprintf(w, "  %s: %s\n", s.name, s.help); err != nil {
			return err
		}
		for _, v := range s.variables {
			if _, err := fmt.Fprintf(w, "      %s <%s>: %s\n", v.Name, v.Type, v.Help); err != nil {
				return err
			}
		}
	}
	return nil
}
