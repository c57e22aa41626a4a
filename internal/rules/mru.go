package rules

import "container/list"

// MRU is an insertion-ordered association whose lookups move the found key
// to the front. It supports only what rule dispatch needs: Put, Get and
// ordered iteration. It is not safe for concurrent use.
type MRU[K comparable, V any] struct {
	order *list.List
	index map[K]*list.Element
}

type mruEntry[K comparable, V any] struct {
	key   K
	value V
}

// NewMRU returns an empty cache.
func NewMRU[K comparable, V any]() *MRU[K, V] {
	return &MRU[K, V]{
		order: list.New(),
		index: make(map[K]*list.Element),
	}
}

// Put appends k at the back. Putting an existing key replaces its value in
// place without changing the order.
func (m *MRU[K, V]) Put(k K, v V) {
	if el, ok := m.index[k]; ok {
		el.Value.(*mruEntry[K, V]).value = v
		return
	}
	m.index[k] = m.order.PushBack(&mruEntry[K, V]{key: k, value: v})
}

// Get returns the value for k and promotes k to the front.
func (m *MRU[K, V]) Get(k K) (V, bool) {
	el, ok := m.index[k]
	if !ok {
		var zero V
		return zero, false
	}
	m.order.MoveToFront(el)
	return el.Value.(*mruEntry[K, V]).value, true
}

// Len returns the number of keys.
func (m *MRU[K, V]) Len() int { return m.order.Len() }

// Keys returns the keys, most recently used first.
func (m *MRU[K, V]) Keys() []K {
	keys := make([]K, 0, m.order.Len())
	for el := m.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*mruEntry[K, V]).key)
	}
	return keys
}

// Each visits entries in recency order without reordering them. Iteration
// stops when fn returns false. fn must not modify the cache.
func (m *MRU[K, V]) Each(fn func(K, V) bool) {
	for el := m.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*mruEntry[K, V])
		if !fn(e.key, e.value) {
			return
		}
	}
}
