package object

import "pyarena/internal/heap"

// Text returns the contents of a str value, interned or heap-resident.
func Text(h *heap.Heap, v heap.Value) (string, bool) {
	if v.IsStr() {
		return h.Interns().Text(v)
	}
	if s, ok := heap.Cast[*Str](h, v); ok {
		return s.S, true
	}
	return "", false
}

// BytesOf returns the contents of a bytes value. The result must not be
// modified.
func BytesOf(h *heap.Heap, v heap.Value) ([]byte, bool) {
	if v.IsBytes() {
		s, ok := h.Interns().Text(v)
		return []byte(s), ok
	}
	if b, ok := heap.Cast[*Bytes](h, v); ok {
		return b.B, true
	}
	return nil, false
}

func IsStr(h *heap.Heap, v heap.Value) bool {
	_, ok := Text(h, v)
	return ok
}

func IsBytes(h *heap.Heap, v heap.Value) bool {
	if v.IsBytes() {
		return true
	}
	_, ok := heap.Cast[*Bytes](h, v)
	return ok
}

// NewStr allocates a heap string.
func NewStr(h *heap.Heap, s string) (heap.Value, error) {
	return h.Alloc(&Str{S: s})
}

func NewBytes(h *heap.Heap, b []byte) (heap.Value, error) {
	return h.Alloc(&Bytes{B: b})
}

// NewList allocates a list that takes ownership of items.
func NewList(h *heap.Heap, items []heap.Value) (heap.Value, error) {
	v, err := h.Alloc(&List{Items: items})
	if err != nil {
		return v, err
	}
	for _, it := range items {
		if it.IsRef() {
			h.MarkCycleCandidate(v)
			break
		}
	}
	return v, nil
}

// NewTuple allocates a tuple that takes ownership of items.
func NewTuple(h *heap.Heap, items []heap.Value) (heap.Value, error) {
	return h.Alloc(&Tuple{Items: items})
}
