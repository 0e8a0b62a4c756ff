package lake

import (
	"context"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/lakedb/lakedb/internal/base"
	"github.com/lakedb/lakedb/internal/cache"
	"github.com/lakedb/lakedb/vfs"
)

// CreateTabletRequest is the minimal input to create_tablet.
type CreateTabletRequest struct {
	TabletID uint64
	Columns  []ColumnSchema
}

// Manager is the TabletManager front door: create/drop tablets,
// put/get/delete/list metadata and txn logs, publish, compact.
type Manager struct {
	fs       vfs.FileSystem
	location *LocationProvider
	cache    *cache.Cache
	schemas  *SchemaMap
	logger   base.Logger

	group singleflight.Group // coalesces concurrent cache misses for the same key
}

// NewManager wires a Manager against fs (rooted via location) and a
// shared MetaCache capacity in bytes.
func NewManager(fs vfs.FileSystem, location *LocationProvider, cacheCapacity int64) *Manager {
	return &Manager{
		fs:       fs,
		location: location,
		cache:    cache.New(cacheCapacity),
		schemas:  NewSchemaMap(),
		logger:   base.DefaultLogger{},
	}
}

// SetLogger overrides the default logger.
func (m *Manager) SetLogger(l base.Logger) { m.logger = l }

// CreateTablet builds a minimal metadata protobuf (version=1,
// next_rowset_id=1, schema with unique column ids 0..N-1) and writes it.
func (m *Manager) CreateTablet(ctx context.Context, req CreateTabletRequest) error {
	cols := make([]ColumnSchema, len(req.Columns))
	for i, c := range req.Columns {
		c.ID = uint32(i)
		cols[i] = c
	}
	md := &TabletMetadata{
		TabletID:     req.TabletID,
		Version:      1,
		NextRowsetID: 1,
		Schema:       &TabletSchema{Columns: cols},
	}
	return m.PutTabletMetadata(ctx, md)
}

// PutTabletMetadata serializes md to tbl_<id:016X>_<version>, writes it
// durably, then inserts it into the MetaCache.
func (m *Manager) PutTabletMetadata(ctx context.Context, md *TabletMetadata) error {
	path := m.location.MetadataPath(md.TabletID, md.Version)
	if err := m.writeObject(path, md.Marshal()); err != nil {
		return err
	}
	h := m.cache.Set(path, md)
	h.Release()
	return nil
}

// GetTabletMetadata resolves (tabletID, version) through the location
// provider and delegates to GetTabletMetadataAt.
func (m *Manager) GetTabletMetadata(ctx context.Context, tabletID uint64, version int64) (*TabletMetadata, error) {
	return m.GetTabletMetadataAt(ctx, m.location.MetadataPath(tabletID, version), true)
}

// GetTabletMetadataAt looks up path directly; fillCache controls whether a
// miss is inserted into the MetaCache after being read.
func (m *Manager) GetTabletMetadataAt(ctx context.Context, path string, fillCache bool) (*TabletMetadata, error) {
	if h, ok := m.cache.Get(path); ok {
		defer h.Release()
		return h.Value().(*TabletMetadata), nil
	}

	v, err, _ := m.group.Do(path, func() (interface{}, error) {
		data, err := m.readObject(path)
		if err != nil {
			return nil, err
		}
		md := &TabletMetadata{}
		if err := md.Unmarshal(data); err != nil {
			return nil, base.Corruptionf("parse tablet metadata %s: %v", path, err)
		}
		return md, nil
	})
	if err != nil {
		return nil, err
	}
	md := v.(*TabletMetadata)

	if fillCache {
		h := m.cache.Set(path, md)
		h.Release()
	}
	return md, nil
}

// DeleteTabletMetadata erases the cache entry and deletes the object.
func (m *Manager) DeleteTabletMetadata(ctx context.Context, tabletID uint64, version int64) error {
	path := m.location.MetadataPath(tabletID, version)
	m.cache.Delete(path)
	return m.fs.DeleteFile(path)
}

// TabletMetadataIter lazily resolves each listed name to a parsed
// metadata on demand.
type TabletMetadataIter struct {
	m       *Manager
	paths   []string
	pos     int
}

// Next returns the next metadata, or (nil, false, nil) once exhausted.
func (it *TabletMetadataIter) Next(ctx context.Context) (*TabletMetadata, bool, error) {
	if it.pos >= len(it.paths) {
		return nil, false, nil
	}
	path := it.paths[it.pos]
	it.pos++
	md, err := it.m.GetTabletMetadataAt(ctx, path, true)
	if err != nil {
		return nil, false, err
	}
	return md, true, nil
}

// ListTabletMetadata iterates the tablet root, collecting names under the
// tbl_ prefix (optionally filtered to one tablet id), and returns a lazy
// iterator.
func (m *Manager) ListTabletMetadata(ctx context.Context, tabletID uint64, filterTablet bool) (*TabletMetadataIter, error) {
	prefix := m.location.MetadataPrefix(tabletID, filterTablet)
	names, err := m.listNames(prefix)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = m.location.Root() + "/" + n
	}
	return &TabletMetadataIter{m: m, paths: paths}, nil
}

// PutTxnLog serializes log to txn_<id:016X>_<txnId>, rejecting logs
// missing required fields.
func (m *Manager) PutTxnLog(ctx context.Context, log *TxnLog) error {
	if log.TabletID == 0 {
		return base.InvalidArgumentf("txn log missing tablet_id")
	}
	if log.TxnID == 0 {
		return base.InvalidArgumentf("txn log missing txn_id")
	}
	path := m.location.TxnLogPath(log.TabletID, log.TxnID)
	if err := m.writeObject(path, log.Marshal()); err != nil {
		return err
	}
	h := m.cache.Set(path, log)
	h.Release()
	return nil
}

// GetTxnLog looks up (tabletID, txnID), cache-first.
func (m *Manager) GetTxnLog(ctx context.Context, tabletID uint64, txnID int64) (*TxnLog, error) {
	path := m.location.TxnLogPath(tabletID, txnID)
	if h, ok := m.cache.Get(path); ok {
		defer h.Release()
		return h.Value().(*TxnLog), nil
	}

	v, err, _ := m.group.Do(path, func() (interface{}, error) {
		data, err := m.readObject(path)
		if err != nil {
			return nil, err
		}
		log := &TxnLog{}
		if err := log.Unmarshal(data); err != nil {
			return nil, base.Corruptionf("parse txn log %s: %v", path, err)
		}
		return log, nil
	})
	if err != nil {
		return nil, err
	}
	log := v.(*TxnLog)
	h := m.cache.Set(path, log)
	h.Release()
	return log, nil
}

// DeleteTxnLog erases the cache entry and deletes the object.
func (m *Manager) DeleteTxnLog(ctx context.Context, tabletID uint64, txnID int64) error {
	path := m.location.TxnLogPath(tabletID, txnID)
	m.cache.Delete(path)
	return m.fs.DeleteFile(path)
}

// ListTxnLog symmetrically lists txn_ objects.
func (m *Manager) ListTxnLog(ctx context.Context, tabletID uint64, filterTablet bool) ([]string, error) {
	prefix := m.location.TxnLogPrefix(tabletID, filterTablet)
	return m.listNames(prefix)
}

// GetTabletSchema looks up schema_<id>, deduping a cache miss through the
// process-wide SchemaMap.
func (m *Manager) GetTabletSchema(ctx context.Context, tabletID uint64) (*TabletSchema, error) {
	key := schemaCacheKey(tabletID)
	if h, ok := m.cache.Get(key); ok {
		defer h.Release()
		return h.Value().(weightedSchema).TabletSchema, nil
	}

	iter, err := m.ListTabletMetadata(ctx, tabletID, true)
	if err != nil {
		return nil, err
	}
	md, ok, err := iter.Next(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, base.NotFoundf("no metadata for tablet %016X", tabletID)
	}

	canonical, inserted := m.schemas.Dedup(md.Schema)
	weight := int64(0)
	if inserted {
		weight = canonical.Weight()
	}
	h := m.cache.Set(key, weightedSchema{TabletSchema: canonical, weight: weight})
	defer h.Release()
	return canonical, nil
}

// weightedSchema lets get_tablet_schema charge the cache 0 weight when the
// schema's bytes are already accounted for by the metadata object that
// contains it.
type weightedSchema struct {
	*TabletSchema
	weight int64
}

func (w weightedSchema) Weight() int64 { return w.weight }

// DropTablet iterates the root, erases every object (and cache entry)
// under either prefix, plus the schema cache entry.
func (m *Manager) DropTablet(ctx context.Context, tabletID uint64) error {
	names, err := m.listNames("")
	if err != nil {
		return err
	}
	tblPrefix := m.location.MetadataPrefix(tabletID, true)
	txnPrefix := m.location.TxnLogPrefix(tabletID, true)

	for _, n := range names {
		if !strings.HasPrefix(n, tblPrefix) && !strings.HasPrefix(n, txnPrefix) {
			continue
		}
		path := m.location.Root() + "/" + n
		m.cache.Delete(path)
		if err := m.fs.DeleteFile(path); err != nil && !base.IsNotFound(err) {
			return err
		}
	}
	m.cache.Delete(schemaCacheKey(tabletID))
	return nil
}

// PruneMetaCache runs an eviction pass. The sharded LRU in internal/cache
// evicts inline on every Set once a shard exceeds budget, so this mostly
// exists as a documented entry point; it is still useful as an explicit
// call after a bulk load.
func (m *Manager) PruneMetaCache() {
	// internal/cache.Cache evicts synchronously in Set; nothing to do here
	// beyond exposing this as a named operation.
}

func (m *Manager) writeObject(path string, payload []byte) error {
	f, err := m.fs.NewWritableFile(vfs.WritableFileOptions{
		SyncOnClose: true,
		Mode:        vfs.CreateOrOpenWithTruncate,
	}, path)
	if err != nil {
		return err
	}
	if err := f.Append(wrapObject(payload)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (m *Manager) readObject(path string) ([]byte, error) {
	f, err := m.fs.NewRandomAccessFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	size, err := f.Size()
	if err != nil {
		return nil, err
	}
	if size > math.MaxInt32 {
		return nil, base.Corruptionf("object %s too large: %d bytes", path, size)
	}
	buf := make([]byte, size)
	if err := f.ReadAtFully(0, buf); err != nil {
		return nil, err
	}
	return unwrapObject(buf)
}

func (m *Manager) listNames(prefix string) ([]string, error) {
	var names []string
	err := m.fs.IterateDir(m.location.Root(), func(name string) bool {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
