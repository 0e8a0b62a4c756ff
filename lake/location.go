package lake

import "fmt"

// LocationProvider maps (tablet_id, version/txn_id/segment_name) to
// object paths. The tablet
// root is a directory; children are flat files named by the prefixes
// below.
type LocationProvider struct {
	root string
}

// NewLocationProvider roots every path this provider produces under root
// (an object-store bucket/prefix, or a plain directory for vfs.Disk).
func NewLocationProvider(root string) *LocationProvider {
	return &LocationProvider{root: root}
}

// Root returns the tablet root directory.
func (p *LocationProvider) Root() string { return p.root }

// MetadataPath formats tbl_<tabletId:016X>_<version>.
func (p *LocationProvider) MetadataPath(tabletID uint64, version int64) string {
	return fmt.Sprintf("%s/tbl_%016X_%d", p.root, tabletID, version)
}

// MetadataPrefix formats the tbl_ listing prefix, filtered to one tablet
// when filterTablet is true.
func (p *LocationProvider) MetadataPrefix(tabletID uint64, filterTablet bool) string {
	if filterTablet {
		return fmt.Sprintf("tbl_%016X_", tabletID)
	}
	return "tbl_"
}

// TxnLogPath formats txn_<tabletId:016X>_<txnId>.
func (p *LocationProvider) TxnLogPath(tabletID uint64, txnID int64) string {
	return fmt.Sprintf("%s/txn_%016X_%d", p.root, tabletID, txnID)
}

// TxnLogPrefix formats the txn_ listing prefix, filtered to one tablet
// when filterTablet is true.
func (p *LocationProvider) TxnLogPrefix(tabletID uint64, filterTablet bool) string {
	if filterTablet {
		return fmt.Sprintf("txn_%016X_", tabletID)
	}
	return "txn_"
}

// SegmentPath passes a DataSource-supplied segment filename through the
// location provider.
func (p *LocationProvider) SegmentPath(name string) string {
	return fmt.Sprintf("%s/%s", p.root, name)
}
