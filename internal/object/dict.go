package object

import (
	"github.com/emirpasic/gods/maps/linkedhashmap"

	"pyarena/internal/heap"
)

// Entry is one key/value pair. Values returned in an Entry from Put or
// Delete are owned by the caller; Entries returned by Items are borrowed.
type Entry struct {
	Key   heap.Value
	Value heap.Value
}

// Dict is an insertion-ordered mapping indexed by canonical keys. A key
// keeps its position when its value is replaced.
type Dict struct {
	m *linkedhashmap.Map
}

func NewDict() *Dict {
	return &Dict{m: linkedhashmap.New()}
}

func (*Dict) Kind() string  { return DICT_KIND }
func (d *Dict) Cost() int64 { return CostDict(d.Len()) }
func (d *Dict) Refs(visit func(heap.Value)) {
	d.each(func(_ Key, e Entry) {
		visit(e.Key)
		visit(e.Value)
	})
}

func (d *Dict) Len() int { return d.m.Size() }

func (d *Dict) each(fn func(Key, Entry)) {
	it := d.m.Iterator()
	for it.Next() {
		fn(it.Key().(Key), it.Value().(Entry))
	}
}

func (d *Dict) Lookup(k Key) (Entry, bool) {
	e, ok := d.m.Get(k)
	if !ok {
		return Entry{}, false
	}
	return e.(Entry), true
}

// Put stores val under k and takes ownership of val. key is stored (and
// owned) only when k is new. When k already exists the original key
// object is kept and Put returns replaced=true with the unused key and the
// displaced value in prev; the caller must release both.
func (d *Dict) Put(k Key, key, val heap.Value) (prev Entry, replaced bool) {
	if cur, ok := d.Lookup(k); ok {
		d.m.Put(k, Entry{Key: cur.Key, Value: val})
		return Entry{Key: key, Value: cur.Value}, true
	}
	d.m.Put(k, Entry{Key: key, Value: val})
	return Entry{}, false
}

// Delete removes k and hands its entry to the caller.
func (d *Dict) Delete(k Key) (Entry, bool) {
	e, ok := d.Lookup(k)
	if !ok {
		return Entry{}, false
	}
	d.m.Remove(k)
	return e, true
}

// Items returns the live entries in insertion order. The values are
// borrowed.
func (d *Dict) Items() []Entry {
	out := make([]Entry, 0, d.Len())
	d.each(func(_ Key, e Entry) { out = append(out, e) })
	return out
}

// Keys returns the canonical keys in insertion order.
func (d *Dict) Keys() []Key {
	out := make([]Key, 0, d.Len())
	d.each(func(k Key, _ Entry) { out = append(out, k) })
	return out
}

// Pairs returns the canonical keys alongside the live entries, both in
// insertion order. The values are borrowed.
func (d *Dict) Pairs() ([]Key, []Entry) {
	keys := make([]Key, 0, d.Len())
	entries := make([]Entry, 0, d.Len())
	d.each(func(k Key, e Entry) {
		keys = append(keys, k)
		entries = append(entries, e)
	})
	return keys, entries
}

// Counter is a dict of element -> int count with multiset operators.
type Counter struct {
	Dict
}

func NewCounter() *Counter {
	return &Counter{Dict: *NewDict()}
}

func (*Counter) Kind() string { return COUNTER_KIND }

// Count returns the count for k, zero when absent.
func (c *Counter) Count(k Key) int64 {
	e, ok := c.Lookup(k)
	if !ok || !e.Value.IsInt() {
		return 0
	}
	return e.Value.AsInt()
}

// Set is an insertion-ordered set of hashable values.
type Set struct {
	m *linkedhashmap.Map
}

func NewSet() *Set {
	return &Set{m: linkedhashmap.New()}
}

func (*Set) Kind() string  { return SET_KIND }
func (s *Set) Cost() int64 { return CostSet(s.Len()) }
func (s *Set) Refs(visit func(heap.Value)) {
	it := s.m.Iterator()
	for it.Next() {
		visit(it.Value().(heap.Value))
	}
}

func (s *Set) Len() int { return s.m.Size() }

func (s *Set) Has(k Key) bool {
	_, ok := s.m.Get(k)
	return ok
}

// Add stores v under k and takes ownership of v. It reports false when k
// is already present, in which case the caller still owns v.
func (s *Set) Add(k Key, v heap.Value) bool {
	if s.Has(k) {
		return false
	}
	s.m.Put(k, v)
	return true
}

// Remove deletes k and hands its element to the caller.
func (s *Set) Remove(k Key) (heap.Value, bool) {
	v, ok := s.m.Get(k)
	if !ok {
		return heap.None, false
	}
	s.m.Remove(k)
	return v.(heap.Value), true
}

// Members returns the elements with their keys in insertion order. The
// values are borrowed.
func (s *Set) Members() ([]Key, []heap.Value) {
	keys := make([]Key, 0, s.Len())
	vals := make([]heap.Value, 0, s.Len())
	it := s.m.Iterator()
	for it.Next() {
		keys = append(keys, it.Key().(Key))
		vals = append(vals, it.Value().(heap.Value))
	}
	return keys, vals
}
