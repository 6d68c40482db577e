// Package errors defines the sentinel errors returned by sous.
//
// Callers classify failures with errors.Is. Components wrap a sentinel
// together with the underlying cause, so both remain visible in the chain:
//
//	return fmt.Errorf("%w: %s: %w", kerrors.ErrCloneFailed, url, err)
package errors
