package ops

import (
	"errors"
	"fmt"
)

// Operation errors. Executors wrap these so callers can classify
// failures with errors.Is.
var (
	// ErrUnknownOperation is returned when an operation is not registered.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrInvalidParameters is returned when required parameters are
	// missing or malformed.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrPermissionScope is returned when a path escapes the workspace
	// root or a URL scheme is not allowed.
	ErrPermissionScope = errors.New("outside permitted scope")

	// ErrAlreadyExists is returned when a create would clobber an
	// existing file without overwrite.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotFound is returned when the named file or directory does not
	// exist.
	ErrNotFound = errors.New("not found")

	// ErrTransport is returned for network failures and non-2xx
	// responses.
	ErrTransport = errors.New("transport failure")

	// ErrPartialResult marks an operation that completed with
	// degradations, e.g. a sync that skipped malformed records. The
	// result output still carries the summary.
	ErrPartialResult = errors.New("completed with partial results")

	// ErrOperationNameEmpty is returned when registering a nameless
	// operation.
	ErrOperationNameEmpty = errors.New("operation name cannot be empty")

	// ErrOperationExecuteNil is returned when registering an operation
	// without an execute function.
	ErrOperationExecuteNil = errors.New("operation execute function cannot be nil")

	// ErrOperationAlreadyRegistered is returned when registering a
	// duplicate name.
	ErrOperationAlreadyRegistered = errors.New("operation already registered")
)

func invalidParams(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameters, fmt.Sprintf(format, args...))
}
