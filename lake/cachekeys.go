package lake

import "fmt"

// cache keys: metadata/txn-log values are keyed by their full object
// path; schemas are keyed by schema_<tabletId>.

func schemaCacheKey(tabletID uint64) string {
	return fmt.Sprintf("schema_%016X", tabletID)
}
