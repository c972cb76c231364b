package tariff

import (
	"cmp"

	"github.com/google/btree"
)

// Entry is a key/value pair stored in an OrderedMap.
type Entry[K cmp.Ordered, V any] struct {
	Key   K
	Value V
}

// OrderedMap is a sorted map supporting floor (predecessor) queries.
type OrderedMap[K cmp.Ordered, V any] struct {
	tree *btree.BTreeG[Entry[K, V]]
}

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap[K cmp.Ordered, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{
		tree: btree.NewG(8, func(a, b Entry[K, V]) bool { return a.Key < b.Key }),
	}
}

// Put stores value under key, replacing any existing value.
func (m *OrderedMap[K, V]) Put(key K, value V) {
	m.tree.ReplaceOrInsert(Entry[K, V]{Key: key, Value: value})
}

// Get returns the value stored under exactly key.
func (m *OrderedMap[K, V]) Get(key K) (V, bool) {
	e, ok := m.tree.Get(Entry[K, V]{Key: key})
	return e.Value, ok
}

// Predecessor returns the entry with the greatest key <= key.
func (m *OrderedMap[K, V]) Predecessor(key K) (Entry[K, V], bool) {
	var (
		out   Entry[K, V]
		found bool
	)
	m.tree.DescendLessOrEqual(Entry[K, V]{Key: key}, func(e Entry[K, V]) bool {
		out, found = e, true
		return false
	})
	return out, found
}

// Len returns the number of entries.
func (m *OrderedMap[K, V]) Len() int { return m.tree.Len() }

// Ascend calls fn for every entry in key order until fn returns false.
func (m *OrderedMap[K, V]) Ascend(fn func(e Entry[K, V]) bool) {
	m.tree.Ascend(func(e Entry[K, V]) bool { return fn(e) })
}

// Keys returns all keys in ascending order.
func (m *OrderedMap[K, V]) Keys() []K {
	keys := make([]K, 0, m.tree.Len())
	m.Ascend(func(e Entry[K, V]) bool {
		keys = append(keys, e.Key)
		return true
	})
	return keys
}
