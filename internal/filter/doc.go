// Package filter is the filter-set runtime: registration, dependency
// resolution, activation and per-call dispatch.
//
// # Lifecycle
//
// A Runtime goes through three phases:
//
//  1. Registration. Plugins call RegisterFilterSet, Depends,
//     OrderFilterSets and OrderFilters. The host then calls Add for every
//     filter-set it wants, which pulls in dependencies. Nothing here is
//     safe for concurrent use.
//  2. Finalize. Added filter-sets are sorted by the load-order constraints
//     and loaded in that order. Each Load creates the set's filters and
//     catchers. The collected filters are then sorted by the filter order
//     constraints, the bypass table is computed and the scratch arena is
//     sealed.
//  3. Dispatch. Every intercepted call goes through Dispatch, which runs the
//     catchers registered for the call's operation in filter order while
//     holding the runtime's single dispatch lock.
//
// Shutdown deactivates and unloads every loaded filter-set in reverse load
// order.
//
// # Example
//
//	rt := filter.New(api.GL(), filter.WithLogger(logger))
//	set, _ := rt.RegisterFilterSet(filter.FilterSetInfo{
//	    Name: "counter",
//	    Help: "counts draw calls",
//	    Plugin: filter.Funcs{LoadFunc: func(s *filter.FilterSet) error {
//	        f, err := s.NewFilter("counter")
//	        if err != nil {
//	            return err
//	        }
//	        return f.Catches("glDrawArrays", false, func(c *api.Call, d filter.CallbackData) bool {
//	            draws++
//	            return true
//	        })
//	    }},
//	})
//	rt.OrderFilters("invoke", "counter")
//	_ = rt.Add(set.Name(), true)
//	if err := rt.Finalize(); err != nil {
//	    return err
//	}
//	rt.Dispatch(api.NewCall(op))
//
// # Activation from callbacks
//
// Callbacks run with the dispatch lock held, so they must not call Activate
// or Deactivate. They use FilterSet.ActivateDeferred and
// FilterSet.DeactivateDeferred instead; those requests are applied after the
// current chain has finished and take effect from the next Dispatch.
package filter
