// Package dispatcher implements a synchronous broadcast dispatcher with
// in-cycle dependency ordering.
//
// Callers register handlers and dispatch payloads; every registered handler
// receives every payload. A running handler may call WaitFor to force other
// handlers to run first within the same dispatch cycle.
//
// ARCHITECTURE:
//
// Single goroutine, no suspension points:
// A dispatch cycle is one call to Dispatch and all handler and WaitFor
// activity it triggers. "Waiting" is ordinary call-stack descent: WaitFor
// invokes the demanded handler immediately and returns when it is done.
//
// Cycle flow:
//  1. Dispatch / DispatchAction curate the call into a payload
//  2. The dispatch filter chain runs; its terminal stage starts the cycle
//  3. Registered tokens are walked in registration order
//  4. Each token not already pending is invoked through the resolver
//  5. dispatching and the current payload are released on every exit path
//
// Ordering:
// Absent WaitFor, handlers run in registration order. WaitFor edges pull
// handlers forward; each handler present at cycle start runs at most once.
//
// Cycle detection:
// A token that is pending but not handled is on the call stack. Waiting on it
// again is a circular dependency and fails with KindCircularDependency; the
// error carries the offending path.
//
// Failure:
// The first failure inside a cycle (a handler error, or a WaitFor violation)
// becomes the cycle's fault. Handlers not yet invoked never run, even when the
// handler that received the error swallows it. Completed handlers keep their
// effects; there is no rollback.
//
// Middleware:
// Two append-only filter chains, both composed right-to-left so the
// earliest-added filter is outermost. Register filters wrap a handler once,
// at Register time. Dispatch filters wrap every Dispatch call and may
// continue, drop the dispatch, or re-dispatch through a Redispatcher that
// bypasses the filter chain.
//
// Thread-safety:
// A Dispatcher is NOT safe for concurrent use. Handlers re-enter it (WaitFor,
// Register, nested Dispatch) on the same goroutine, so it carries no lock.
// Token sources are safe for concurrent use.
package dispatcher
