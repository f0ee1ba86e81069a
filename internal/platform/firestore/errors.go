package firestore

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error records which state operation failed and the gRPC code it failed with.
type Error struct {
	Op   string
	Code codes.Code
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("firestore %s (%s): %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether retrying later may succeed.
func (e *Error) Transient() bool {
	switch e.Code {
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted, codes.DeadlineExceeded, codes.Internal:
		return true
	}
	return false
}

// WrapError tags err with op. Context errors and already wrapped errors are
// returned unchanged; a gRPC Canceled becomes context.Canceled.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var wrapped *Error
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.As(err, &wrapped) {
		return err
	}
	code := status.Code(err)
	if code == codes.Canceled {
		return context.Canceled
	}
	return &Error{Op: op, Code: code, Err: err}
}

// IsNotFound reports whether err is a missing document.
func IsNotFound(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == codes.NotFound
	}
	return status.Code(err) == codes.NotFound
}

// IsTransient reports whether err is a temporary backend failure.
func IsTransient(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Transient()
}
