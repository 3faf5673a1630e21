package office

import "errors"

// ErrShuttingDown is returned by Submit once an office has entered the
// SHUTDOWN state, and settles any queued entry that had not yet started
// service when shutdown began.
var ErrShuttingDown = errors.New("office: shutting down")

// ErrCancelled is settled onto a queue entry when the execution substrate
// cancels the context an office worker (or the submitter) was waiting on.
var ErrCancelled = errors.New("office: cancelled")
