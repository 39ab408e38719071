package badger

import (
	"encoding/binary"
	"fmt"
)

// Key prefixes for different data types
const (
	vectorEntryPrefix  = "vecent"
	vectorDocPrefix    = "vecdoc"
	documentPrefix     = "docrec"
	queryCachePrefix   = "qcache"
	statsCounterPrefix = "stats"
)

// makeEntryKey generates a key for an index entry by chunk ID.
func makeEntryKey(chunkID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", vectorEntryPrefix, chunkID))
}

// makeDocEntryKey generates a composite key for the document index.
// Format: prefix:documentID\x00:ordinal
// The NUL terminator keeps "doc-1" from matching keys of "doc-12"; the
// BigEndian ordinal makes lexicographic iteration follow chunk order.
func makeDocEntryKey(documentID string, ordinal int) []byte {
	prefix := []byte(vectorDocPrefix + ":" + documentID + "\x00:")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(ordinal))
	return buf
}

// makeDocIndexPrefix generates the iteration prefix covering every document
// index key of a document.
func makeDocIndexPrefix(documentID string) []byte {
	return []byte(vectorDocPrefix + ":" + documentID + "\x00:")
}

// makeDocumentKey generates a key for a document metadata record.
func makeDocumentKey(documentID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", documentPrefix, documentID))
}

// makeCacheKey generates a key for a cached search response.
func makeCacheKey(cacheKey string) []byte {
	return []byte(fmt.Sprintf("%s:%s", queryCachePrefix, cacheKey))
}

// makeCounterKey generates a key for a stats counter.
func makeCounterKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", statsCounterPrefix, name))
}
