// Package vfs defines the FileSystem contract consumed by the Lake Tablet
// Manager, and ships two implementations: Disk (a real,
// POSIX-backed filesystem) and Mem (an in-memory filesystem for tests).
//
// The interface stays close to a namespace-for-files split between
// "where files live" and "the files themselves," trimmed to the
// operations the tablet manager actually needs: list a directory, open
// a file for sequential append-only writes, open a file for random
// reads, delete a file.
package vfs

import "io"

// CreateMode selects how NewWritableFile opens its target.
type CreateMode int

const (
	// CreateOrOpenWithTruncate creates the file if absent and truncates it
	// to zero length if present. This is the only mode the tablet manager
	// uses: every metadata/log object is write-once content, and a retried
	// write after a partial failure must reproduce byte-identical content.
	CreateOrOpenWithTruncate CreateMode = iota
)

// WritableFileOptions configures NewWritableFile.
type WritableFileOptions struct {
	// SyncOnClose fsyncs the file (and, for Disk, the parent directory
	// entry) before Close returns, so that a completed write call is
	// durable before put_tablet_metadata/put_txn_log report success.
	SyncOnClose bool
	Mode        CreateMode
}

// WritableFile is an append-only, then closed, sequence of bytes.
type WritableFile interface {
	Append(p []byte) error
	Close() error
}

// RandomAccessFile supports the tablet manager's whole-object reads.
type RandomAccessFile interface {
	Size() (int64, error)
	ReadAtFully(off int64, buf []byte) error
	io.Closer
}

// FileSystem is the contract consumed by the tablet manager through a
// LocationProvider-resolved path; it never sees tablet/version
// identifiers directly.
type FileSystem interface {
	// IterateDir invokes cb with the basename of each immediate child of
	// path. Iteration stops early if cb returns false.
	IterateDir(path string, cb func(name string) bool) error

	NewWritableFile(opts WritableFileOptions, path string) (WritableFile, error)
	NewRandomAccessFile(path string) (RandomAccessFile, error)
	DeleteFile(path string) error

	// MkdirAll creates path and any missing parents; it is a no-op if path
	// already exists as a directory.
	MkdirAll(path string) error
}
