package api

// Call is the record the interception wrapper builds for one intercepted
// call.
type Call struct {
	// Op identifies the intercepted entry point.
	Op OperationID

	// Args holds the call arguments in declaration order.
	Args []any

	// Ret receives the return value, if the operation has one.
	Ret any

	// Arena is the scratch buffer shared by all filter-sets for this call.
	// The dispatcher sets it before the first callback runs.
	Arena []byte

	// Real invokes the real implementation. It may be nil when the wrapper
	// has nothing to forward to.
	Real func(c *Call)
}

// NewCall creates a call record for op.
func NewCall(op OperationID, args ...any) *Call {
	return &Call{Op: op, Args: args}
}

// Invoke runs the real implementation if there is one.
// It reports whether anything was invoked.
func (c *Call) Invoke() bool {
	if c.Real == nil {
		return false
	}
	c.Real(c)
	return true
}
