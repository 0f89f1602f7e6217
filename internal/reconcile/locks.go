package reconcile

import (
	"hash/fnv"
	"sync"
)

const lockShards = 64

// lockTable serializes reconciliation per fingerprint without a global lock.
// Fingerprints hash onto a fixed set of shards; unrelated fingerprints only
// contend when they collide on a shard.
type lockTable struct {
	shards [lockShards]sync.Mutex
}

func (t *lockTable) lockFor(fingerprint string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fingerprint))
	return &t.shards[h.Sum32()%lockShards]
}
