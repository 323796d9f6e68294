// Package gapstore persists confirmed prime-gap proof-of-work hits to an
// embedded key-value store, for audit and replay.
//
// gapstore never persists blocks, wallets, or chain state — only the
// (H, s, a, start, end, merit, difficulty) record of each hit the sieve
// engine reports as valid.
//
// The teacher's internal/storage is a generic Get/Put/Delete/Has/ForEach
// KV facade plus a separate PrefixDB layer so several unrelated record
// kinds (blocks, UTXOs, wallet entries) can share one physical database.
// gapstore has exactly one record kind — a confirmed Hit — so that
// generality has no job to do here: both backends key and encode Hit
// records directly behind a three-method Store interface, with no generic
// key/value parameter a caller could use to store anything else.
package gapstore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// Hit is a confirmed prime-gap proof-of-work, recorded for audit/replay.
type Hit struct {
	Hash        []byte `json:"hash"`   // little-endian H
	Shift       uint16 `json:"shift"`  // s
	Adder       []byte `json:"adder"`  // little-endian a
	Start       []byte `json:"start"`  // little-endian start
	End         []byte `json:"end"`    // little-endian end
	Merit       uint64 `json:"merit"`
	Difficulty  uint64 `json:"difficulty"`
	FoundAtUsec int64  `json:"found_at_usec"`
}

// Store persists and replays confirmed hits. Both implementations key
// records by discovery time so ForEachHit always replays them in
// ascending order.
type Store interface {
	PutHit(h Hit) error
	ForEachHit(fn func(Hit) error) error
	Close() error
}

// hitPrefix namespaces hit records within the Badger database, which —
// unlike MemoryStore — has no separate "table" concept of its own, so a
// byte prefix is the idiomatic way to reserve this keyspace should the
// database ever need to hold more than one record kind.
var hitPrefix = []byte("hit/")

// hitKey orders hits by discovery time within the Badger keyspace.
func hitKey(h Hit) []byte {
	key := make([]byte, len(hitPrefix)+8)
	copy(key, hitPrefix)
	binary.BigEndian.PutUint64(key[len(hitPrefix):], uint64(h.FoundAtUsec))
	return key
}

func marshalHit(h Hit) ([]byte, error) {
	val, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("marshal hit: %w", err)
	}
	return val, nil
}

func unmarshalHit(val []byte) (Hit, error) {
	var h Hit
	if err := json.Unmarshal(val, &h); err != nil {
		return Hit{}, fmt.Errorf("unmarshal hit: %w", err)
	}
	return h, nil
}
