// Package api describes the intercepted API as the dispatcher sees it.
//
// The interception layer is generated ahead of time: every intercepted entry
// point gets a dense OperationID in [0, Table.Len()), and every intercepted
// call is handed to the dispatcher as a Call record. This package only holds
// those already-generated tables; it knows nothing about what any operation
// does.
//
// Operations that are aliases of each other (for example an extension entry
// point and the core function it was promoted to) share a group. The group is
// named after its canonical operation.
package api
