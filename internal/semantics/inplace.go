package semantics

import (
	"pyarena/internal/exc"
	"pyarena/internal/heap"
	"pyarena/internal/object"
)

// The in-place contracts mutate the left operand's storage directly. They
// borrow both operands and, on success, return a new reference to the left
// operand, whose handle is unchanged. A pairing they do not cover is
// reported as unsupported.

func InplaceAdd(h *heap.Heap, a, b heap.Value) (heap.Value, bool, error) {
	switch h.Get(a).(type) {
	case *object.List:
		var items []heap.Value
		switch y := h.Get(b).(type) {
		case *object.List:
			items = y.Items
		case *object.Tuple:
			items = y.Items
		default:
			return heap.None, false, nil
		}
		return extendList(h, a, cloneAll(h, items))
	case *object.Counter:
		return counterInplace(h, a, b, counterAdd)
	}
	return heap.None, false, nil
}

func InplaceSub(h *heap.Heap, a, b heap.Value) (heap.Value, bool, error) {
	switch h.Get(a).(type) {
	case *object.Set:
		return setInplace(h, a, b, setDifference)
	case *object.Counter:
		return counterInplace(h, a, b, counterSub)
	}
	return heap.None, false, nil
}

func InplaceMul(h *heap.Heap, a, b heap.Value) (heap.Value, bool, error) {
	l, ok := heap.Cast[*object.List](h, a)
	if !ok {
		return heap.None, false, nil
	}
	n, ok, err := repeatCount(h, b)
	if !ok || err != nil {
		return heap.None, false, err
	}
	if n == 0 {
		var dropped []heap.Value
		err := h.With(a, func(p heap.Payload) error {
			lp := p.(*object.List)
			dropped = lp.Items
			lp.Items = nil
			return nil
		})
		if err != nil {
			return heap.None, false, err
		}
		h.ReleaseAll(dropped)
		return h.Clone(a), true, nil
	}
	extra, err := repeatLen(object.LIST_KIND, len(l.Items), n-1)
	if err != nil {
		return heap.None, false, err
	}
	v, err := h.Prepaid(object.CostArrayElements(extra), func() (heap.Value, error) {
		v, _, err := extendList(h, a, repeatItems(h, l.Items, extra))
		return v, err
	})
	if err != nil {
		return heap.None, false, err
	}
	return v, true, nil
}

func InplaceAnd(h *heap.Heap, a, b heap.Value) (heap.Value, bool, error) {
	switch h.Get(a).(type) {
	case *object.Set:
		return setInplace(h, a, b, setIntersection)
	case *object.Counter:
		return counterInplace(h, a, b, counterAnd)
	}
	return heap.None, false, nil
}

func InplaceXor(h *heap.Heap, a, b heap.Value) (heap.Value, bool, error) {
	if _, ok := heap.Cast[*object.Set](h, a); ok {
		return setInplace(h, a, b, setSymmetricDifference)
	}
	return heap.None, false, nil
}

// InplaceOr merges a mapping into a dict, or a set into a set, in place.
// Values displaced by the merge are released.
func InplaceOr(h *heap.Heap, a, b heap.Value) (heap.Value, bool, error) {
	switch x := h.Get(a).(type) {
	case *object.Dict:
		y, ok := mappingOf(h, b)
		if !ok {
			return heap.None, false, nil
		}
		if err := MergeInto(h, a, y); err != nil {
			return heap.None, false, err
		}
		return h.Clone(a), true, nil
	case *object.Set:
		y, ok := heap.Cast[*object.Set](h, b)
		if !ok {
			return heap.None, false, nil
		}
		keys, vals := y.Members()
		fresh := 0
		for _, k := range keys {
			if !x.Has(k) {
				fresh++
			}
		}
		if err := h.Reserve(a, int64(fresh)*object.CostSetEntry()); err != nil {
			return heap.None, false, err
		}
		err := h.With(a, func(p heap.Payload) error {
			s := p.(*object.Set)
			for i, k := range keys {
				if !s.Has(k) {
					s.Add(k, h.Clone(vals[i]))
				}
			}
			return nil
		})
		if err != nil {
			return heap.None, false, err
		}
		markIfRefs(h, a, vals...)
		return h.Clone(a), true, nil
	case *object.Counter:
		return counterInplace(h, a, b, counterOr)
	}
	return heap.None, false, nil
}

// MergeInto copies src's entries into the dict behind dst, overwriting on
// collisions. The new entries are charged before any mutation.
func MergeInto(h *heap.Heap, dst heap.Value, src *object.Dict) error {
	d, ok := heap.Cast[*object.Dict](h, dst)
	if !ok {
		return exc.TypeErrorf("'%s' object is not a dict to merge into", TypeName(h, dst))
	}
	if err := h.Reserve(dst, int64(newKeys(d, src))*object.CostDictEntry()); err != nil {
		return err
	}
	// snapshot first: src may be the same dict as dst
	keys, entries := src.Pairs()
	var displaced []heap.Value
	err := h.With(dst, func(p heap.Payload) error {
		dd := p.(*object.Dict)
		for i, k := range keys {
			prev, replaced := dd.Put(k, h.Clone(entries[i].Key), h.Clone(entries[i].Value))
			if replaced {
				displaced = append(displaced, prev.Key, prev.Value)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	h.ReleaseAll(displaced)
	for _, e := range entries {
		markIfRefs(h, dst, e.Key, e.Value)
	}
	return nil
}

// extendList appends items, whose references it owns, to the list behind a.
func extendList(h *heap.Heap, a heap.Value, items []heap.Value) (heap.Value, bool, error) {
	if err := h.Reserve(a, object.CostArrayElements(len(items))); err != nil {
		h.ReleaseAll(items)
		return heap.None, false, err
	}
	err := h.With(a, func(p heap.Payload) error {
		l := p.(*object.List)
		l.Items = append(l.Items, items...)
		return nil
	})
	if err != nil {
		h.ReleaseAll(items)
		return heap.None, false, err
	}
	markIfRefs(h, a, items...)
	return h.Clone(a), true, nil
}

// setInplace replaces the contents of the set behind a with combine(a, b).
func setInplace(h *heap.Heap, a, b heap.Value, combine func(h *heap.Heap, x, y *object.Set) *object.Set) (heap.Value, bool, error) {
	x, _ := heap.Cast[*object.Set](h, a)
	y, ok := heap.Cast[*object.Set](h, b)
	if !ok {
		return heap.None, false, nil
	}
	return swapContents(h, a, combine(h, x, y))
}

func counterInplace(h *heap.Heap, a, b heap.Value, rule counterRule) (heap.Value, bool, error) {
	x, _ := heap.Cast[*object.Counter](h, a)
	y, ok := heap.Cast[*object.Counter](h, b)
	if !ok {
		return heap.None, false, nil
	}
	out, err := combineCounters(h, x, y, rule)
	if err != nil {
		return heap.None, false, err
	}
	return swapContents(h, a, out)
}

// swapContents installs next as the payload contents of the container
// behind a, keeping its handle, and releases what the old contents held.
func swapContents(h *heap.Heap, a heap.Value, next heap.Payload) (heap.Value, bool, error) {
	if grow := next.Cost() - h.Get(a).Cost(); grow > 0 {
		if err := h.Reserve(a, grow); err != nil {
			next.Refs(h.Release)
			return heap.None, false, err
		}
	}
	var old heap.Payload
	err := h.With(a, func(p heap.Payload) error {
		switch cur := p.(type) {
		case *object.Set:
			prev := *cur
			*cur = *next.(*object.Set)
			old = &prev
		case *object.Counter:
			prev := *cur
			*cur = *next.(*object.Counter)
			old = &prev
		}
		return nil
	})
	if err != nil {
		next.Refs(h.Release)
		return heap.None, false, err
	}
	if old != nil {
		old.Refs(h.Release)
	}
	next.Refs(func(v heap.Value) { markIfRefs(h, a, v) })
	return h.Clone(a), true, nil
}
