// Package fault provides a normalized error taxonomy for guarded operations.
//
// Every failure that crosses the middleware boundary is classified into one
// of seven kinds (Validation, NotFound, Conflict, Forbidden, RateLimited,
// Unavailable, Internal) and carried as a *fault.Error with a correlation id,
// so the same logical failure can be matched across server logs and
// client-visible messages.
//
// # Classification
//
// Classify applies an ordered rule list, first match wins:
//
//	err := classifier.Classify(rawErr)
//	if err.Kind == fault.RateLimited {
//	    // surface retry guidance
//	}
//
// Domain layers produce faults directly via the constructors (NewValidation,
// NewNotFound, NewConflict, NewForbidden); storage driver errors and
// infrastructure sentinels are recognized by the classifier. Anything
// unrecognized becomes Internal with the raw message withheld from the
// outward response unless the classifier was built in debug mode.
package fault
