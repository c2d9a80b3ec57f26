package middleware

import "github.com/roach88/flux/internal/dispatcher"

// Gate returns a dispatch filter that drops any payload whose field holds
// Bool(true). Other payloads continue unchanged.
func Gate(field string) dispatcher.DispatchFilterFactory {
	return func(dispatcher.Redispatcher) dispatcher.DispatchFilter {
		return func(p dispatcher.Payload, next dispatcher.DispatchFunc) error {
			if p.Truthy(field) {
				return nil
			}
			return next(p)
		}
	}
}
