package middleware

import (
	"github.com/roach88/flux/internal/dispatcher"
	"github.com/roach88/flux/internal/value"
)

// Redirect returns a dispatch filter that re-dispatches any payload carrying
// field as an actionType action instead. The redirected action's fields are
// the field's value when it is an object, or {field: value} otherwise.
//
// The redirected dispatch bypasses the filter chain, so filters added before
// Redirect do not see it twice.
func Redirect(field, actionType string) dispatcher.DispatchFilterFactory {
	return func(r dispatcher.Redispatcher) dispatcher.DispatchFilter {
		return func(p dispatcher.Payload, next dispatcher.DispatchFunc) error {
			v, ok := p[field]
			if !ok {
				return next(p)
			}
			fields, isObj := v.(value.Object)
			if !isObj {
				fields = dispatcher.Payload{field: v}
			}
			return r.DispatchAction(actionType, fields)
		}
	}
}
