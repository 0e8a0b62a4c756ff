package vfs

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"

	"github.com/lakedb/lakedb/internal/base"
)

// Disk is a FileSystem backed by the local POSIX filesystem (or, in
// production, a FUSE/object-store mount presenting a POSIX view — the
// object-store-vs-local distinction is a deployment detail the tablet
// manager doesn't need to know about).
type Disk struct{}

// NewDisk returns the local-filesystem FileSystem implementation.
func NewDisk() *Disk { return &Disk{} }

func (d *Disk) IterateDir(path string, cb func(name string) bool) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base.NotFoundf("directory %s does not exist", path)
		}
		return errors.Wrapf(err, "iterate_dir %s", path)
	}
	for _, e := range entries {
		if !cb(e.Name()) {
			break
		}
	}
	return nil
}

func (d *Disk) MkdirAll(path string) error {
	return errors.Wrapf(os.MkdirAll(path, 0o755), "mkdir_all %s", path)
}

func (d *Disk) NewWritableFile(opts WritableFileOptions, path string) (WritableFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "new_writable_file %s", path)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "new_writable_file %s", path)
	}
	return &diskWritableFile{f: f, syncOnClose: opts.SyncOnClose, dir: filepath.Dir(path)}, nil
}

func (d *Disk) NewRandomAccessFile(path string) (RandomAccessFile, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, base.NotFoundf("object %s not found", path)
		}
		return nil, errors.Wrapf(err, "new_random_access_file %s", path)
	}
	return &diskRandomAccessFile{f: f}, nil
}

func (d *Disk) DeleteFile(path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return base.NotFoundf("object %s not found", path)
		}
		return errors.Wrapf(err, "delete_file %s", path)
	}
	return nil
}

type diskWritableFile struct {
	f           *os.File
	dir         string
	syncOnClose bool
}

func (w *diskWritableFile) Append(p []byte) error {
	_, err := w.f.Write(p)
	return errors.Wrapf(err, "append %s", w.f.Name())
}

func (w *diskWritableFile) Close() error {
	if w.syncOnClose {
		if err := w.f.Sync(); err != nil {
			_ = w.f.Close()
			return errors.Wrapf(err, "fsync %s", w.f.Name())
		}
		if err := syncDir(w.dir); err != nil {
			_ = w.f.Close()
			return err
		}
	}
	return errors.Wrapf(w.f.Close(), "close %s", w.f.Name())
}

// syncDir fsyncs the directory entry so a crash right after Close cannot
// leave the file's name un-persisted even though its data was fsynced.
func syncDir(dir string) error {
	fd, err := unix.Open(dir, unix.O_RDONLY, 0)
	if err != nil {
		return errors.Wrapf(err, "open dir %s for fsync", dir)
	}
	defer unix.Close(fd)
	return errors.Wrapf(unix.Fsync(fd), "fsync dir %s", dir)
}

type diskRandomAccessFile struct {
	f *os.File
}

func (r *diskRandomAccessFile) Size() (int64, error) {
	fi, err := r.f.Stat()
	if err != nil {
		return 0, errors.Wrapf(err, "stat %s", r.f.Name())
	}
	return fi.Size(), nil
}

func (r *diskRandomAccessFile) ReadAtFully(off int64, buf []byte) error {
	_, err := r.f.ReadAt(buf, off)
	return errors.Wrapf(err, "read_at %s", r.f.Name())
}

func (r *diskRandomAccessFile) Close() error {
	return errors.Wrapf(r.f.Close(), "close %s", r.f.Name())
}
