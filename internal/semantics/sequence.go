package semantics

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"

	"pyarena/internal/exc"
	"pyarena/internal/heap"
	"pyarena/internal/object"
)

// maxRepeat caps the element count of a repeated sequence.
const maxRepeat = 1 << 31

func concat(h *heap.Heap, a, b heap.Value) (heap.Value, bool, error) {
	if as, ok := object.Text(h, a); ok {
		bs, ok := object.Text(h, b)
		if !ok {
			return heap.None, false, nil
		}
		v, err := object.NewStr(h, as+bs)
		return v, err == nil, err
	}
	if ab, ok := object.BytesOf(h, a); ok {
		bb, ok := object.BytesOf(h, b)
		if !ok {
			return heap.None, false, nil
		}
		out := make([]byte, 0, len(ab)+len(bb))
		out = append(append(out, ab...), bb...)
		v, err := object.NewBytes(h, out)
		return v, err == nil, err
	}
	switch x := h.Get(a).(type) {
	case *object.List:
		y, ok := heap.Cast[*object.List](h, b)
		if !ok {
			return heap.None, false, nil
		}
		v, err := object.NewList(h, cloneAll(h, x.Items, y.Items))
		return v, err == nil, err
	case *object.Tuple:
		y, ok := heap.Cast[*object.Tuple](h, b)
		if !ok {
			return heap.None, false, nil
		}
		v, err := object.NewTuple(h, cloneAll(h, x.Items, y.Items))
		return v, err == nil, err
	}
	return heap.None, false, nil
}

// cloneAll concatenates the given slices, cloning every element.
func cloneAll(h *heap.Heap, parts ...[]heap.Value) []heap.Value {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]heap.Value, 0, n)
	for _, p := range parts {
		for _, v := range p {
			out = append(out, h.Clone(v))
		}
	}
	return out
}

func isSequence(h *heap.Heap, v heap.Value) bool {
	if v.IsStr() || v.IsBytes() {
		return true
	}
	switch h.Get(v).(type) {
	case *object.Str, *object.Bytes, *object.List, *object.Tuple:
		return true
	}
	return false
}

// repeatCount converts an integer operand to a repetition count. Negative
// counts repeat zero times.
func repeatCount(h *heap.Heap, v heap.Value) (int64, bool, error) {
	n := numberOf(h, v)
	switch n.kind {
	case smallInt:
		return max(n.i, 0), true, nil
	case bigInt:
		if n.b.Sign() < 0 {
			return 0, true, nil
		}
		return 0, false, exc.OverflowErrorf("cannot fit 'int' into an index-sized integer")
	}
	return 0, false, nil
}

func repeat(h *heap.Heap, a, b heap.Value) (heap.Value, bool, error) {
	seq, count := a, b
	if !isSequence(h, seq) {
		seq, count = b, a
		if !isSequence(h, seq) {
			return heap.None, false, nil
		}
	}
	n, ok, err := repeatCount(h, count)
	if !ok || err != nil {
		return heap.None, false, err
	}
	v, err := repeatSeq(h, seq, n)
	return v, err == nil, err
}

// repeatLen is the length of a sequence of length elements repeated n
// times. Sizes past maxRepeat cannot be represented whatever the policy.
func repeatLen(kind string, length int, n int64) (int, error) {
	if length == 0 || n == 0 {
		return 0, nil
	}
	if n > maxRepeat/int64(length) {
		return 0, exc.ResourceExhausted(errors.Errorf("repeated %s of length %d by %d is too long", kind, length, n))
	}
	return length * int(n), nil
}

// repeatSeq charges the repeated sequence to the heap before building it.
func repeatSeq(h *heap.Heap, seq heap.Value, n int64) (heap.Value, error) {
	if s, ok := object.Text(h, seq); ok {
		total, err := repeatLen(object.STR_KIND, len(s), n)
		if err != nil {
			return heap.None, err
		}
		return h.Prepaid(object.CostStringBytes(total), func() (heap.Value, error) {
			return object.NewStr(h, strings.Repeat(s, total/max(len(s), 1)))
		})
	}
	if b, ok := object.BytesOf(h, seq); ok {
		total, err := repeatLen(object.BYTES_KIND, len(b), n)
		if err != nil {
			return heap.None, err
		}
		return h.Prepaid(object.CostStringBytes(total), func() (heap.Value, error) {
			return object.NewBytes(h, bytes.Repeat(b, total/max(len(b), 1)))
		})
	}
	switch p := h.Get(seq).(type) {
	case *object.List:
		total, err := repeatLen(object.LIST_KIND, len(p.Items), n)
		if err != nil {
			return heap.None, err
		}
		return h.Prepaid(object.CostArray(total), func() (heap.Value, error) {
			return object.NewList(h, repeatItems(h, p.Items, total))
		})
	case *object.Tuple:
		total, err := repeatLen(object.TUPLE_KIND, len(p.Items), n)
		if err != nil {
			return heap.None, err
		}
		return h.Prepaid(object.CostTuple(total), func() (heap.Value, error) {
			return object.NewTuple(h, repeatItems(h, p.Items, total))
		})
	}
	return heap.None, exc.Corruptedf("repeat of non-sequence %s", TypeName(h, seq))
}

// repeatItems cycles through items, cloning each, until total values are
// collected.
func repeatItems(h *heap.Heap, items []heap.Value, total int) []heap.Value {
	out := make([]heap.Value, 0, total)
	for len(out) < total {
		for _, v := range items {
			out = append(out, h.Clone(v))
		}
	}
	return out
}
