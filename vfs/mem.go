package vfs

import (
	"path"
	"sync"

	"github.com/lakedb/lakedb/internal/base"
)

// Mem is an in-memory FileSystem, a trimmed node/tree shape with no
// crash-clone machinery: that facility simulates torn writes across
// process restarts, which the tablet manager tests here don't need since
// durability itself is the FS's job, not something under test at this
// layer.
type Mem struct {
	mu    sync.Mutex
	dirs  map[string]bool
	files map[string][]byte
	// Reads counts NewRandomAccessFile calls, used by publish idempotency
	// tests to assert zero txn-log reads on replay.
	Reads int
}

// NewMem returns an empty in-memory FileSystem.
func NewMem() *Mem {
	return &Mem{
		dirs:  map[string]bool{"/": true},
		files: map[string][]byte{},
	}
}

func (m *Mem) MkdirAll(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[path.Clean(p)] = true
	return nil
}

func (m *Mem) IterateDir(dir string, cb func(name string) bool) error {
	m.mu.Lock()
	dir = path.Clean(dir)
	var names []string
	for p := range m.files {
		if path.Dir(p) == dir {
			names = append(names, path.Base(p))
		}
	}
	m.mu.Unlock()
	for _, n := range names {
		if !cb(n) {
			break
		}
	}
	return nil
}

func (m *Mem) NewWritableFile(_ WritableFileOptions, p string) (WritableFile, error) {
	p = path.Clean(p)
	return &memWritableFile{fs: m, path: p}, nil
}

func (m *Mem) NewRandomAccessFile(p string) (RandomAccessFile, error) {
	p = path.Clean(p)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++
	data, ok := m.files[p]
	if !ok {
		return nil, base.NotFoundf("object %s not found", p)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return &memRandomAccessFile{data: cp}, nil
}

func (m *Mem) DeleteFile(p string) error {
	p = path.Clean(p)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[p]; !ok {
		return base.NotFoundf("object %s not found", p)
	}
	delete(m.files, p)
	return nil
}

// Exists reports whether p has been written. Test helper only.
func (m *Mem) Exists(p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path.Clean(p)]
	return ok
}

type memWritableFile struct {
	fs   *Mem
	path string
	buf  []byte
}

func (w *memWritableFile) Append(p []byte) error {
	w.buf = append(w.buf, p...)
	return nil
}

func (w *memWritableFile) Close() error {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	w.fs.files[w.path] = w.buf
	return nil
}

type memRandomAccessFile struct {
	data []byte
}

func (r *memRandomAccessFile) Size() (int64, error) { return int64(len(r.data)), nil }

func (r *memRandomAccessFile) ReadAtFully(off int64, buf []byte) error {
	if off < 0 || off+int64(len(buf)) > int64(len(r.data)) {
		return base.Corruptionf("read_at out of range")
	}
	copy(buf, r.data[off:off+int64(len(buf))])
	return nil
}

func (r *memRandomAccessFile) Close() error { return nil }
