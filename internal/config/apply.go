package config

import (
	"errors"
	"fmt"

	"github.com/dshills/glintercept/internal/filter"
)

// Apply configures and adds every filter-set of c to rt. It must run
// before rt is finalized. The first failure is returned.
func Apply(rt *filter.Runtime, c *Chain) error {
	for _, e := range c.FilterSets {
		for _, kv := range e.Settings() {
			if err := rt.Configure(e.Name, kv[0], kv[1]); err != nil {
				return fmt.Errorf("chain %s: %w", c.Name, err)
			}
		}
		if err := rt.Add(e.Name, e.IsActive()); err != nil {
			return fmt.Errorf("chain %s: %w", c.Name, err)
		}
	}
	return nil
}

// Reapply updates a finalized runtime to match c: variables are set again
// and each filter-set is activated or deactivated to match its entry.
// Entries whose filter-set was not loaded are reported; the rest are still
// applied.
func Reapply(rt *filter.Runtime, c *Chain) error {
	var errs []error
	for _, e := range c.FilterSets {
		if !rt.IsLoaded(e.Name) {
			errs = append(errs, fmt.Errorf("chain %s: %w: %s", c.Name, filter.ErrNotLoaded, e.Name))
			continue
		}
		for _, kv := range e.Settings() {
			if err := rt.Configure(e.Name, kv[0], kv[1]); err != nil {
				errs = append(errs, err)
			}
		}

		var err error
		if e.IsActive() {
			err = rt.Activate(e.Name)
		} else {
			err = rt.Deactivate(e.Name)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
