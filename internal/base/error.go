package base

import (
	"github.com/cockroachdb/errors"
)

// Sentinel markers for the status taxonomy. An error from a public
// operation in scan/ and lake/ is nil, is ErrEndOfFile (a distinguished,
// non-error control-flow signal), wraps one of the sentinels below, or is
// an underlying filesystem error passed through from vfs. Callers
// classify errors with the Is* helpers rather than string matching.
var (
	// ErrEndOfFile is a distinguished, non-error status used for control
	// flow: it terminates a scan cleanly and is never surfaced to a caller
	// as a failure.
	ErrEndOfFile = errors.New("end of file")

	// ErrNotFound means a get/list/delete call did not find the requested
	// object.
	ErrNotFound = errors.New("not found")

	// ErrCorruption means an object was read but failed to parse, or
	// exceeded the size this process is willing to hold in memory.
	ErrCorruption = errors.New("corruption")

	// ErrInvalidArgument means a caller-supplied value failed validation
	// before any I/O was attempted.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInternal means an invariant was violated while applying a txn log
	// to a metadata snapshot.
	ErrInternal = errors.New("internal error")

	// ErrAborted means a result queue was shut down while a producer was
	// mid-put.
	ErrAborted = errors.New("aborted")

	// ErrCancelled means the scan node was closed.
	ErrCancelled = errors.New("cancelled")

	// ErrNotSupported means a schema-change txn log was presented for
	// application; the publish path never supports those.
	ErrNotSupported = errors.New("not supported")
)

// NotFoundf builds an ErrNotFound-flavored error with detail, matched later
// with IsNotFound.
func NotFoundf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrNotFound)
}

// Corruptionf builds an ErrCorruption-flavored error with detail.
func Corruptionf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCorruption)
}

// InvalidArgumentf builds an ErrInvalidArgument-flavored error with detail.
func InvalidArgumentf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidArgument)
}

// InternalErrorf builds an ErrInternal-flavored error with detail.
func InternalErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInternal)
}

// IsNotFound reports whether err (or a cause in its chain) is ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsCorruption reports whether err (or a cause in its chain) is ErrCorruption.
func IsCorruption(err error) bool { return errors.Is(err, ErrCorruption) }

// IsEndOfFile reports whether err is the distinguished EOF status.
func IsEndOfFile(err error) bool { return errors.Is(err, ErrEndOfFile) }

// IsCancelled reports whether err is ErrCancelled.
func IsCancelled(err error) bool { return errors.Is(err, ErrCancelled) }

// IsAborted reports whether err is ErrAborted.
func IsAborted(err error) bool { return errors.Is(err, ErrAborted) }
