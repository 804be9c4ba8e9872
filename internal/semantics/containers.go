package semantics

import (
	"pyarena/internal/exc"
	"pyarena/internal/heap"
	"pyarena/internal/object"
)

// SubContainers implements set difference and Counter difference. It only
// handles pairs of the same container kind and reports !ok otherwise so the
// caller can continue with the numeric contract.
func SubContainers(h *heap.Heap, a, b heap.Value) (heap.Value, bool, error) {
	switch x := h.Get(a).(type) {
	case *object.Set:
		y, ok := heap.Cast[*object.Set](h, b)
		if !ok {
			return heap.None, false, nil
		}
		v, err := allocSet(h, setDifference(h, x, y))
		return v, err == nil, err
	case *object.Counter:
		if _, ok := heap.Cast[*object.Counter](h, b); !ok {
			return heap.None, false, nil
		}
		return counterArith(h, a, b, counterSub)
	}
	return heap.None, false, nil
}

// containerBitwise handles &, | and ^ with a container on the left. A
// right operand of the wrong kind is a type mismatch failure.
func containerBitwise(h *heap.Heap, op string, a, b heap.Value) (heap.Value, bool, error) {
	mismatch := func() (heap.Value, bool, error) {
		return heap.None, false, exc.TypeErrorf("unsupported operand type(s) for %s: '%s' and '%s'", op, TypeName(h, a), TypeName(h, b))
	}
	switch x := h.Get(a).(type) {
	case *object.Set:
		y, ok := heap.Cast[*object.Set](h, b)
		if !ok {
			return mismatch()
		}
		var out *object.Set
		switch op {
		case "&":
			out = setIntersection(h, x, y)
		case "|":
			out = setUnion(h, x, y)
		default:
			out = setSymmetricDifference(h, x, y)
		}
		v, err := allocSet(h, out)
		return v, err == nil, err
	case *object.Counter:
		if _, ok := heap.Cast[*object.Counter](h, b); !ok || op == "^" {
			return mismatch()
		}
		if op == "&" {
			return counterArith(h, a, b, counterAnd)
		}
		return counterArith(h, a, b, counterOr)
	case *object.Dict:
		y, ok := mappingOf(h, b)
		if !ok || op != "|" {
			return mismatch()
		}
		out := copyDict(h, x)
		displaced := mergeDict(h, out, y)
		h.ReleaseAll(displaced)
		v, err := h.Alloc(out)
		if err != nil {
			return heap.None, false, err
		}
		_, vals := dictValues(out)
		markIfRefs(h, v, vals...)
		return v, true, nil
	}
	return heap.None, false, nil
}

func copyDict(h *heap.Heap, src *object.Dict) *object.Dict {
	out := object.NewDict()
	keys, entries := src.Pairs()
	for i, k := range keys {
		out.Put(k, h.Clone(entries[i].Key), h.Clone(entries[i].Value))
	}
	return out
}

// mergeDict copies src's entries into dst, src winning on collisions. It
// returns the references dst gave up (unused keys and displaced values)
// for the caller to release.
func mergeDict(h *heap.Heap, dst, src *object.Dict) []heap.Value {
	keys, entries := src.Pairs()
	var displaced []heap.Value
	for i, k := range keys {
		prev, replaced := dst.Put(k, h.Clone(entries[i].Key), h.Clone(entries[i].Value))
		if replaced {
			displaced = append(displaced, prev.Key, prev.Value)
		}
	}
	return displaced
}

// newKeys counts the keys of src that dst does not hold yet.
func newKeys(dst, src *object.Dict) int {
	n := 0
	for _, k := range src.Keys() {
		if _, ok := dst.Lookup(k); !ok {
			n++
		}
	}
	return n
}

func dictValues(d *object.Dict) ([]heap.Value, []heap.Value) {
	_, entries := d.Pairs()
	keys := make([]heap.Value, len(entries))
	vals := make([]heap.Value, 0, 2*len(entries))
	for i, e := range entries {
		keys[i] = e.Key
		vals = append(vals, e.Key, e.Value)
	}
	return keys, vals
}

func allocSet(h *heap.Heap, s *object.Set) (heap.Value, error) {
	v, err := h.Alloc(s)
	if err != nil {
		return heap.None, err
	}
	_, members := s.Members()
	markIfRefs(h, v, members...)
	return v, nil
}

func setUnion(h *heap.Heap, x, y *object.Set) *object.Set {
	out := object.NewSet()
	for _, s := range []*object.Set{x, y} {
		keys, vals := s.Members()
		for i, k := range keys {
			if !out.Has(k) {
				out.Add(k, h.Clone(vals[i]))
			}
		}
	}
	return out
}

func setIntersection(h *heap.Heap, x, y *object.Set) *object.Set {
	out := object.NewSet()
	keys, vals := x.Members()
	for i, k := range keys {
		if y.Has(k) {
			out.Add(k, h.Clone(vals[i]))
		}
	}
	return out
}

func setDifference(h *heap.Heap, x, y *object.Set) *object.Set {
	out := object.NewSet()
	keys, vals := x.Members()
	for i, k := range keys {
		if !y.Has(k) {
			out.Add(k, h.Clone(vals[i]))
		}
	}
	return out
}

func setSymmetricDifference(h *heap.Heap, x, y *object.Set) *object.Set {
	out := setDifference(h, x, y)
	keys, vals := y.Members()
	for i, k := range keys {
		if !x.Has(k) {
			out.Add(k, h.Clone(vals[i]))
		}
	}
	return out
}

// counterRule combines the counts of one element. inLeft reports whether
// the element is a key of the left operand.
type counterRule func(left, right int64, inLeft bool) (int64, error)

func counterAdd(l, r int64, _ bool) (int64, error) {
	n, ok := CheckedAdd(l, r)
	if !ok {
		return 0, exc.OverflowErrorf("count overflow")
	}
	return n, nil
}

func counterSub(l, r int64, inLeft bool) (int64, error) {
	if !inLeft {
		if r < 0 {
			return counterAdd(0, -r, true)
		}
		return 0, nil
	}
	n, ok := CheckedSub(l, r)
	if !ok {
		return 0, exc.OverflowErrorf("count overflow")
	}
	return n, nil
}

func counterOr(l, r int64, _ bool) (int64, error) {
	return max(l, r), nil
}

func counterAnd(l, r int64, inLeft bool) (int64, error) {
	if !inLeft {
		return 0, nil
	}
	return min(l, r), nil
}

// combineCounters builds a new Counter payload holding the positive counts
// of rule applied to every element of x, then to elements only in y.
func combineCounters(h *heap.Heap, x, y *object.Counter, rule counterRule) (*object.Counter, error) {
	out := object.NewCounter()
	xk, xe := x.Pairs()
	for i, k := range xk {
		n, err := rule(x.Count(k), y.Count(k), true)
		if err != nil {
			out.Refs(h.Release)
			return nil, err
		}
		if n > 0 {
			out.Put(k, h.Clone(xe[i].Key), heap.Int(n))
		}
	}
	yk, ye := y.Pairs()
	for i, k := range yk {
		if _, ok := x.Lookup(k); ok {
			continue
		}
		n, err := rule(0, y.Count(k), false)
		if err != nil {
			out.Refs(h.Release)
			return nil, err
		}
		if n > 0 {
			out.Put(k, h.Clone(ye[i].Key), heap.Int(n))
		}
	}
	return out, nil
}

// counterArith applies rule when both operands are Counters.
func counterArith(h *heap.Heap, a, b heap.Value, rule counterRule) (heap.Value, bool, error) {
	x, ok := heap.Cast[*object.Counter](h, a)
	if !ok {
		return heap.None, false, nil
	}
	y, ok := heap.Cast[*object.Counter](h, b)
	if !ok {
		return heap.None, false, nil
	}
	out, err := combineCounters(h, x, y, rule)
	if err != nil {
		return heap.None, false, err
	}
	v, err := h.Alloc(out)
	if err != nil {
		return heap.None, false, err
	}
	keys, _ := dictValues(&out.Dict)
	markIfRefs(h, v, keys...)
	return v, true, nil
}
