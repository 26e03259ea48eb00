package gate

import (
	"hash/fnv"
	"sync"
)

const lockShardCount = 32

// lockTable hands out one mutex per symbol. Locks are created lazily and
// never removed, so the identity of a symbol's lock is stable for the
// process lifetime and two goroutines can never hold different locks for
// the same symbol.
type lockTable struct {
	shards [lockShardCount]lockShard
}

type lockShard struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	t := &lockTable{}
	for i := range t.shards {
		t.shards[i].locks = make(map[string]*sync.Mutex)
	}
	return t
}

func (t *lockTable) lockFor(symbol string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	shard := &t.shards[h.Sum32()%lockShardCount]

	shard.mu.Lock()
	defer shard.mu.Unlock()

	l, ok := shard.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		shard.locks[symbol] = l
	}
	return l
}
