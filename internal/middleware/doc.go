// Package middleware provides stock filters for the dispatcher's two
// middleware chains.
//
// Register filters wrap a single handler and are installed with
// Dispatcher.AddRegisterFilter. Dispatch filters wrap every Dispatch call and
// are installed with Dispatcher.AddDispatchFilter. Both chains are applied
// right-to-left: the first filter added is the outermost wrapper.
//
//	d.AddDispatchFilter(middleware.Logging(logger))   // outermost
//	d.AddDispatchFilter(middleware.Gate("paused"))
//	d.AddRegisterFilter(middleware.Recover(logger))
//
// # Built-in Filters
//
//   - [Logging] logs each dispatch, its action type, duration and outcome
//   - [Gate] drops dispatches whose payload sets a boolean field
//   - [Redirect] re-dispatches a payload as a different action
//   - [Recover] turns handler panics into errors
//   - [Only] restricts a handler to a set of action types
package middleware
