package semantics

import (
	"pyarena/internal/heap"
	"pyarena/internal/object"
)

// Binary is the native contract for one operator. It borrows a and b and
// reports one of three outcomes: a produced value owned by the caller
// (ok), an unsupported pairing (!ok, nil error) or a hard failure (err).
type Binary func(h *heap.Heap, a, b heap.Value) (heap.Value, bool, error)

// TypeName returns the user-visible type name of v.
func TypeName(h *heap.Heap, v heap.Value) string {
	switch v.Kind() {
	case heap.KindNone:
		return "NoneType"
	case heap.KindNotImplemented:
		return "NotImplementedType"
	case heap.KindBool:
		return "bool"
	case heap.KindInt:
		return "int"
	case heap.KindFloat:
		return "float"
	case heap.KindStr:
		return object.STR_KIND
	case heap.KindBytes:
		return object.BYTES_KIND
	}
	switch p := h.Get(v).(type) {
	case *object.Instance:
		if c, ok := heap.Cast[*object.Class](h, p.Class); ok {
			return c.Name
		}
	case *object.Exception:
		return p.Class.String()
	case nil:
		return "NoneType"
	default:
		return p.Kind()
	}
	return object.INSTANCE_KIND
}

func IsTruthy(h *heap.Heap, v heap.Value) bool {
	switch v.Kind() {
	case heap.KindNone:
		return false
	case heap.KindBool:
		return v.AsBool()
	case heap.KindInt:
		return v.AsInt() != 0
	case heap.KindFloat:
		return v.AsFloat() != 0
	case heap.KindStr, heap.KindBytes:
		s, _ := h.Interns().Text(v)
		return s != ""
	case heap.KindNotImplemented:
		return true
	}
	if n, ok := Len(h, v); ok {
		return n > 0
	}
	if b, ok := heap.Cast[*object.BigInt](h, v); ok {
		return b.V.Sign() != 0
	}
	return true
}

// Len returns the length of sized values.
func Len(h *heap.Heap, v heap.Value) (int, bool) {
	if v.IsStr() {
		s, _ := h.Interns().Text(v)
		return len([]rune(s)), true
	}
	if v.IsBytes() {
		s, _ := h.Interns().Text(v)
		return len(s), true
	}
	switch p := h.Get(v).(type) {
	case *object.Str:
		return len([]rune(p.S)), true
	case *object.Bytes:
		return len(p.B), true
	case *object.List:
		return len(p.Items), true
	case *object.Tuple:
		return len(p.Items), true
	case *object.Dict:
		return p.Len(), true
	case *object.Counter:
		return p.Len(), true
	case *object.Set:
		return p.Len(), true
	}
	return 0, false
}

func mappingOf(h *heap.Heap, v heap.Value) (*object.Dict, bool) {
	switch p := h.Get(v).(type) {
	case *object.Dict:
		return p, true
	case *object.Counter:
		return &p.Dict, true
	}
	return nil, false
}

func isContainer(h *heap.Heap, v heap.Value) bool {
	switch h.Get(v).(type) {
	case *object.Dict, *object.Counter, *object.Set:
		return true
	}
	return false
}

// markIfRefs flags container as a cycle candidate when it now holds any
// heap reference.
func markIfRefs(h *heap.Heap, container heap.Value, vals ...heap.Value) {
	for _, v := range vals {
		if v.IsRef() {
			h.MarkCycleCandidate(container)
			return
		}
	}
}
