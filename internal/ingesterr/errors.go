// Package ingesterr defines the sentinel error taxonomy shared across
// the ingest path: the orchestrator, the store gateway, and the HTTP
// front-end all wrap one of these with fmt.Errorf("...: %w", ...) and
// unwrap with errors.Is to decide how to report a failure.
package ingesterr

import "errors"

var (
	ErrConfigInvalid        = errors.New("config invalid")
	ErrBadRequest           = errors.New("bad request")
	ErrUnknownMessageType   = errors.New("unknown message type")
	ErrConflict             = errors.New("conflict")
	ErrTransientStore       = errors.New("transient store error")
	ErrOverloaded           = errors.New("overloaded")
	ErrPredicateUnsupported = errors.New("predicate operator unsupported")
	ErrInternal             = errors.New("internal error")
)
