// Package lru implements the bounded recency window described in
// spec.md §4.7: an intrusive doubly-linked list over a fixed arena of
// node slots, paired with a hash index, so that splice-to-MRU is index
// surgery rather than an allocation. Grounded on the original cache's
// core/include/lru.hpp (a boost::intrusive list + unordered_set pair)
// and on the teacher's tinylfu/list.go intrusive-list idiom, adapted per
// spec.md §9 ("Intrusive LRU": "model this as an arena of node slots with
// (prev, next, hash_next) indices").
package lru

import (
	"math/rand"
)

// nilIndex marks an absent neighbour or an unallocated slot.
const nilIndex = -1

type node struct {
	key        uint32
	expiration uint32
	prev, next int32
}

// LRU is a bounded, intrusive-style recency window over 32-bit keys with
// per-entry expiration.
type LRU struct {
	nodes []node
	index map[uint32]int32

	head, tail int32 // head = MRU end, tail = LRU end
	used       int
	capacity   int

	ttlEvictionProb float64
	rng             *rand.Rand
}

// New creates an LRU of the given capacity. ttlEvictionProb, if > 0,
// switches Get's eviction check to Bernoulli sampling with that
// probability instead of comparing against now (spec.md §4.7, §6
// TTL_EVICTION_PROB). seed, if 0, seeds the sampler from a
// non-deterministic source.
func New(capacity int, ttlEvictionProb float64, seed int64) *LRU {
	if seed == 0 {
		seed = rand.Int63()
	}
	return &LRU{
		nodes:           make([]node, capacity),
		index:           make(map[uint32]int32, capacity),
		head:            nilIndex,
		tail:            nilIndex,
		capacity:        capacity,
		ttlEvictionProb: ttlEvictionProb,
		rng:             rand.New(rand.NewSource(seed)),
	}
}

// Update records an access to key with expiration exp. If key is already
// present, its expiration is overwritten, it is spliced to the MRU end and
// evicted is false — no admission, the key is just refreshed. Otherwise, if the window is at
// capacity, the current LRU-end node is recycled in place (its key and
// expiration overwritten) and moved to the MRU end; the key it used to
// hold is returned as evicted. If the window isn't yet full, a fresh slot
// is used and no eviction occurs.
func (l *LRU) Update(key uint32, exp uint32) (evictedKey uint32, evicted bool) {
	if i, ok := l.index[key]; ok {
		l.nodes[i].expiration = exp
		l.moveToFront(i)
		return 0, false
	}

	if l.used == l.capacity {
		victim := l.tail
		evictedKey = l.nodes[victim].key
		delete(l.index, evictedKey)

		l.nodes[victim].key = key
		l.nodes[victim].expiration = exp
		l.index[key] = victim
		l.moveToFront(victim)
		return evictedKey, true
	}

	i := int32(l.used)
	l.nodes[i] = node{key: key, expiration: exp, prev: nilIndex, next: nilIndex}
	l.index[key] = i
	l.used++
	l.pushFront(i)
	return 0, false
}

// Get reports whether key is present and not evicted. Eviction is decided
// either by Bernoulli sampling (if ttlEvictionProb > 0) or by comparing
// the entry's expiration against now. A hit splices the node to the MRU
// end; an eviction removes it and frees its slot for reuse.
func (l *LRU) Get(key uint32, now uint32) bool {
	i, ok := l.index[key]
	if !ok {
		return false
	}

	var shouldEvict bool
	if l.ttlEvictionProb > 0 {
		shouldEvict = l.rng.Float64() < l.ttlEvictionProb
	} else {
		shouldEvict = l.nodes[i].expiration < now
	}

	if shouldEvict {
		l.remove(i)
		return false
	}

	l.moveToFront(i)
	return true
}

// Len reports the number of resident entries.
func (l *LRU) Len() int {
	return len(l.index)
}

func (l *LRU) unlink(i int32) {
	n := &l.nodes[i]
	if n.prev != nilIndex {
		l.nodes[n.prev].next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nilIndex {
		l.nodes[n.next].prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nilIndex, nilIndex
}

func (l *LRU) pushFront(i int32) {
	n := &l.nodes[i]
	n.prev = nilIndex
	n.next = l.head
	if l.head != nilIndex {
		l.nodes[l.head].prev = i
	}
	l.head = i
	if l.tail == nilIndex {
		l.tail = i
	}
}

func (l *LRU) moveToFront(i int32) {
	if l.head == i {
		return
	}
	l.unlink(i)
	l.pushFront(i)
}

// remove splices a node out of the list entirely and compacts the backing
// arena by moving the last live slot into the freed position, keeping the
// arena dense without needing a separate free list.
func (l *LRU) remove(i int32) {
	delete(l.index, l.nodes[i].key)
	l.unlink(i)

	last := int32(l.used - 1)
	if i != last {
		l.nodes[i] = l.nodes[last]
		l.index[l.nodes[i].key] = i
		if l.nodes[i].prev != nilIndex {
			l.nodes[l.nodes[i].prev].next = i
		} else {
			l.head = i
		}
		if l.nodes[i].next != nilIndex {
			l.nodes[l.nodes[i].next].prev = i
		} else {
			l.tail = i
		}
	}
	l.used--
}
