// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cache

// Pool is a bounded set of idle values grouped by key.
type Pool[K comparable, V any] struct {
	capacity int
	onEvict  func(K, V)

	order  lruList[K, V]
	byKey  map[K][]*lruNode[K, V]
	hits   uint64
	misses uint64
	evicts uint64
}

// Stats contains pool statistics.
type Stats struct {
	// Len is the number of idle values held.
	Len int
	// Capacity is the maximum number of idle values.
	Capacity int
	// Hits counts Take calls that returned a value.
	Hits uint64
	// Misses counts Take calls that found nothing.
	Misses uint64
	// Evictions counts values dropped for capacity or by Clear.
	Evictions uint64
}

// NewPool creates a pool holding at most capacity values. onEvict may be
// nil. A capacity of 0 keeps nothing: every Put evicts immediately.
func NewPool[K comparable, V any](capacity int, onEvict func(K, V)) *Pool[K, V] {
	return &Pool[K, V]{
		capacity: max(capacity, 0),
		onEvict:  onEvict,
		byKey:    make(map[K][]*lruNode[K, V]),
	}
}

// Put returns an idle value to the pool, evicting the oldest values if
// the pool is over capacity.
func (p *Pool[K, V]) Put(key K, value V) {
	node := p.order.PushFront(key, value)
	p.byKey[key] = append(p.byKey[key], node)
	for p.order.len > p.capacity {
		p.evict(p.order.Back())
	}
}

// Take removes and returns the most recently returned value for key.
func (p *Pool[K, V]) Take(key K) (V, bool) {
	nodes := p.byKey[key]
	if len(nodes) == 0 {
		p.misses++
		var zero V
		return zero, false
	}
	node := nodes[len(nodes)-1]
	p.unlink(node)
	p.hits++
	return node.value, true
}

// Len returns the number of idle values.
func (p *Pool[K, V]) Len() int {
	return p.order.len
}

// Clear evicts every value.
func (p *Pool[K, V]) Clear() {
	for p.order.len > 0 {
		p.evict(p.order.Back())
	}
}

// Stats returns pool statistics.
func (p *Pool[K, V]) Stats() Stats {
	return Stats{
		Len:       p.order.len,
		Capacity:  p.capacity,
		Hits:      p.hits,
		Misses:    p.misses,
		Evictions: p.evicts,
	}
}

func (p *Pool[K, V]) evict(node *lruNode[K, V]) {
	p.unlink(node)
	p.evicts++
	if p.onEvict != nil {
		p.onEvict(node.key, node.value)
	}
}

// unlink removes node from both the recency list and its key group.
func (p *Pool[K, V]) unlink(node *lruNode[K, V]) {
	p.order.Remove(node)
	nodes := p.byKey[node.key]
	for i, n := range nodes {
		if n == node {
			nodes = append(nodes[:i], nodes[i+1:]...)
			break
		}
	}
	if len(nodes) == 0 {
		delete(p.byKey, node.key)
	} else {
		p.byKey[node.key] = nodes
	}
}
