package semantics

import (
	"bytes"
	"math"
	"math/big"
	"strings"

	"pyarena/internal/exc"
	"pyarena/internal/heap"
	"pyarena/internal/object"
)

// maxCompareDepth bounds recursion through nested containers.
const maxCompareDepth = 512

func Equal(h *heap.Heap, a, b heap.Value) (bool, error) {
	return equal(h, a, b, 0)
}

func equal(h *heap.Heap, a, b heap.Value, depth int) (bool, error) {
	if depth > maxCompareDepth {
		return false, exc.RecursionErrorf("maximum recursion depth exceeded in comparison")
	}
	if a.IsRef() && a.Same(b) {
		return true, nil
	}
	x, y := numberOf(h, a), numberOf(h, b)
	if x.kind != notNumber || y.kind != notNumber {
		if x.kind == notNumber || y.kind == notNumber {
			return false, nil
		}
		c, ok := compareNumbers(x, y)
		return ok && c == 0, nil
	}
	switch a.Kind() {
	case heap.KindNone, heap.KindNotImplemented:
		return a.Same(b), nil
	}
	if as, ok := object.Text(h, a); ok {
		bs, ok := object.Text(h, b)
		return ok && as == bs, nil
	}
	if ab, ok := object.BytesOf(h, a); ok {
		bb, ok := object.BytesOf(h, b)
		return ok && bytes.Equal(ab, bb), nil
	}

	switch x := h.Get(a).(type) {
	case *object.List:
		if y, ok := heap.Cast[*object.List](h, b); ok {
			return equalItems(h, x.Items, y.Items, depth)
		}
	case *object.Tuple:
		if y, ok := heap.Cast[*object.Tuple](h, b); ok {
			return equalItems(h, x.Items, y.Items, depth)
		}
	case *object.Dict:
		if y, ok := mappingOf(h, b); ok {
			return equalDicts(h, x, y, depth)
		}
	case *object.Counter:
		if y, ok := mappingOf(h, b); ok {
			return equalDicts(h, &x.Dict, y, depth)
		}
	case *object.Set:
		if y, ok := heap.Cast[*object.Set](h, b); ok {
			if x.Len() != y.Len() {
				return false, nil
			}
			keys, _ := x.Members()
			for _, k := range keys {
				if !y.Has(k) {
					return false, nil
				}
			}
			return true, nil
		}
	}
	return a.Same(b), nil
}

func equalItems(h *heap.Heap, xs, ys []heap.Value, depth int) (bool, error) {
	if len(xs) != len(ys) {
		return false, nil
	}
	for i := range xs {
		eq, err := equal(h, xs[i], ys[i], depth+1)
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

func equalDicts(h *heap.Heap, x, y *object.Dict, depth int) (bool, error) {
	if x.Len() != y.Len() {
		return false, nil
	}
	keys, entries := x.Pairs()
	for i, k := range keys {
		other, ok := y.Lookup(k)
		if !ok {
			return false, nil
		}
		eq, err := equal(h, entries[i].Value, other.Value, depth+1)
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

// Compare orders a and b, returning -1, 0 or 1. ok is false when the pair
// has no ordering (unsupported kinds, or NaN).
func Compare(h *heap.Heap, a, b heap.Value) (int, bool, error) {
	return compare(h, a, b, 0)
}

func compare(h *heap.Heap, a, b heap.Value, depth int) (int, bool, error) {
	if depth > maxCompareDepth {
		return 0, false, exc.RecursionErrorf("maximum recursion depth exceeded in comparison")
	}
	x, y := numberOf(h, a), numberOf(h, b)
	if x.kind != notNumber && y.kind != notNumber {
		c, ok := compareNumbers(x, y)
		return c, ok, nil
	}
	if as, ok := object.Text(h, a); ok {
		if bs, ok := object.Text(h, b); ok {
			return strings.Compare(as, bs), true, nil
		}
		return 0, false, nil
	}
	if ab, ok := object.BytesOf(h, a); ok {
		if bb, ok := object.BytesOf(h, b); ok {
			return bytes.Compare(ab, bb), true, nil
		}
		return 0, false, nil
	}
	switch x := h.Get(a).(type) {
	case *object.List:
		if y, ok := heap.Cast[*object.List](h, b); ok {
			return compareItems(h, x.Items, y.Items, depth)
		}
	case *object.Tuple:
		if y, ok := heap.Cast[*object.Tuple](h, b); ok {
			return compareItems(h, x.Items, y.Items, depth)
		}
	}
	return 0, false, nil
}

func compareItems(h *heap.Heap, xs, ys []heap.Value, depth int) (int, bool, error) {
	for i := 0; i < len(xs) && i < len(ys); i++ {
		eq, err := equal(h, xs[i], ys[i], depth+1)
		if err != nil {
			return 0, false, err
		}
		if !eq {
			return compare(h, xs[i], ys[i], depth+1)
		}
	}
	switch {
	case len(xs) < len(ys):
		return -1, true, nil
	case len(xs) > len(ys):
		return 1, true, nil
	}
	return 0, true, nil
}

func compareNumbers(x, y number) (int, bool) {
	if x.kind == smallInt && y.kind == smallInt {
		switch {
		case x.i < y.i:
			return -1, true
		case x.i > y.i:
			return 1, true
		}
		return 0, true
	}
	if x.kind != floatNum && y.kind != floatNum {
		return x.big().Cmp(y.big()), true
	}
	xf, yf := toBigFloat(x), toBigFloat(y)
	if xf == nil || yf == nil {
		return 0, false
	}
	return xf.Cmp(yf), true
}

// toBigFloat converts exactly; nil for NaN.
func toBigFloat(n number) *big.Float {
	switch n.kind {
	case floatNum:
		if math.IsNaN(n.f) {
			return nil
		}
		return new(big.Float).SetFloat64(n.f)
	case smallInt:
		return new(big.Float).SetInt64(n.i)
	}
	return new(big.Float).SetInt(n.b)
}

// Hash returns the hash of a hashable value; equal values hash equally.
func Hash(h *heap.Heap, v heap.Value) (uint64, error) {
	k, err := object.KeyOf(h, v)
	if err != nil {
		return 0, err
	}
	return k.Hash(), nil
}
