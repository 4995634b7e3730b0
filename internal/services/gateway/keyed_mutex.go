package gateway

import (
	"hash/fnv"
	"sync"
)

// keyedMutex serializes webhook and poll events for the same gateway
// transaction while letting events for different transactions proceed in
// parallel. Striped: distinct keys may share a shard, which only costs a
// little parallelism.
type keyedMutex struct {
	shards [64]sync.Mutex
}

// lock takes the shard for key and returns its unlock func.
func (k *keyedMutex) lock(key string) func() {
	h := fnv.New32a()
	h.Write([]byte(key))
	m := &k.shards[h.Sum32()%uint32(len(k.shards))]
	m.Lock()
	return m.Unlock
}
