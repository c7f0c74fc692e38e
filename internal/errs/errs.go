// README: Error taxonomy shared by the tracking core and its transports.
//
// Callers compare with errors.Is; wrapped errors keep the sentinel in their
// chain so the HTTP layer can map them to status codes.
package errs

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrDriverUnavailable   = errors.New("driver unavailable")
	ErrOrderNotAssignable  = errors.New("order has no assigned driver")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrConflict            = errors.New("concurrent modification")
	ErrBadRequest          = errors.New("bad request")
)

// NotFound wraps ErrNotFound with the kind and id of the missing entity.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

// Upstream wraps a failed persistence or cache call. Errors that already
// carry a taxonomy sentinel are returned unchanged.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstreamUnavailable, err)
}

// Classified reports whether err already belongs to the taxonomy.
func Classified(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrUnauthorized, ErrInvalidTransition, ErrDriverUnavailable,
		ErrOrderNotAssignable, ErrUpstreamUnavailable, ErrConflict, ErrBadRequest,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsTimeout reports whether err came from an exceeded deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
