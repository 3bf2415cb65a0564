package repository

import (
	"encoding/binary"
	"fmt"
)

// Key schema for the pebble driver:
//
//	usr:<id>           -> pebbleUser (JSON)
//	unm:<username>     -> user id (8 bytes, big endian)
//	seq:users          -> last allocated user id
//	pos:<id>:<symbol>  -> shares (8 bytes, big endian)
//	hsq:<id>           -> last history sequence of the user
//	his:<id>:<seq>     -> types.HistoryEntry (JSON)
//
// Ids and sequences are zero-padded hex so lexical order matches numeric
// order.
const (
	prefixUser     = "usr:"
	prefixUsername = "unm:"
	prefixPosition = "pos:"
	prefixHistSeq  = "hsq:"
	prefixHistory  = "his:"
)

func userKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%016x", prefixUser, id))
}

func usernameKey(name string) []byte {
	return []byte(prefixUsername + name)
}

func userSeqKey() []byte { return []byte("seq:users") }

func positionKeyBytes(id int64, symbol string) []byte {
	return []byte(fmt.Sprintf("%s%016x:%s", prefixPosition, id, symbol))
}

func positionPrefix(id int64) []byte {
	return []byte(fmt.Sprintf("%s%016x:", prefixPosition, id))
}

func historySeqKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%016x", prefixHistSeq, id))
}

func historyKey(id int64, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%016x:%016x", prefixHistory, id, seq))
}

func historyPrefix(id int64) []byte {
	return []byte(fmt.Sprintf("%s%016x:", prefixHistory, id))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

func encodeUint(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func decodeUint(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("bad counter length %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}
