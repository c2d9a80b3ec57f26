package dispatcher

import "github.com/roach88/flux/internal/value"

// Payload is the data delivered to every handler in a cycle.
//
// By convention an action payload carries its type as a string "type" field.
type Payload = value.Object

// Handler receives every dispatched payload.
//
// A non-nil error aborts the current cycle: handlers not yet invoked never
// run, and the error is returned from Dispatch unmodified.
type Handler func(p Payload) error

// TypeField is the payload field that carries the action type.
const TypeField = "type"

// ActionPayload builds a payload from an action type and its fields.
//
// Returns a new object: a shallow copy of fields (nil means empty) with
// TypeField set to actionType. fields is never modified.
func ActionPayload(actionType string, fields Payload) Payload {
	p := fields.Clone()
	p[TypeField] = value.String(actionType)
	return p
}

// TypeOf returns the action type carried by p.
// Returns false if p has no type field or the field is not a string.
func TypeOf(p Payload) (string, bool) {
	return p.Str(TypeField)
}

// typeFilter wraps h so it only runs for payloads of the given action type.
// Other payloads complete the handler successfully without calling h.
func typeFilter(actionType string, h Handler) Handler {
	return func(p Payload) error {
		if t, ok := TypeOf(p); ok && t == actionType {
			return h(p)
		}
		return nil
	}
}
