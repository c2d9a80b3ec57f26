// Package analyze inspects declared waitFor dependencies before anything is
// dispatched.
//
// A waitFor graph maps each handler name to the handlers it waits for. At run
// time the dispatcher rejects circular waits with a CircularDependency error;
// this package finds the same cycles statically so scenario files can be
// checked without running them.
package analyze
