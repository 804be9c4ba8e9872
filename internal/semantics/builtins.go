package semantics

import (
	"pyarena/internal/exc"
	"pyarena/internal/heap"
	"pyarena/internal/object"
)

type builtin struct {
	name  string
	arity [2]int
	fn    object.NativeFunc
}

var builtins = []builtin{
	{"bool", [2]int{0, 1}, builtinBool},
	{"int", [2]int{0, 2}, builtinInt},
	{"float", [2]int{0, 1}, builtinFloat},
	{"str", [2]int{0, 1}, builtinStr},
	{"repr", [2]int{1, 1}, builtinRepr},
	{"len", [2]int{1, 1}, builtinLen},
	{"hash", [2]int{1, 1}, builtinHash},
}

// NewBuiltins allocates the builtins module. Its members are natives that
// borrow their arguments.
func NewBuiltins(h *heap.Heap) (heap.Value, error) {
	members := make(map[string]heap.Value, len(builtins))
	for _, b := range builtins {
		fn, err := object.NewNative(h, b.name, checkArity(b))
		if err != nil {
			for _, v := range members {
				h.Release(v)
			}
			return heap.None, err
		}
		members[b.name] = fn
	}
	return h.Alloc(&object.Module{Name: "builtins", Members: members})
}

func checkArity(b builtin) object.NativeFunc {
	return func(h *heap.Heap, args []heap.Value) (heap.Value, error) {
		if n := len(args); n < b.arity[0] || n > b.arity[1] {
			if b.arity[0] == b.arity[1] {
				return heap.None, exc.TypeErrorf("%s() takes exactly one argument (%d given)", b.name, n)
			}
			return heap.None, exc.TypeErrorf("%s() takes at most %d arguments (%d given)", b.name, b.arity[1], n)
		}
		return b.fn(h, args)
	}
}

func builtinBool(h *heap.Heap, args []heap.Value) (heap.Value, error) {
	if len(args) == 0 {
		return heap.False, nil
	}
	return heap.Bool(IsTruthy(h, args[0])), nil
}

func builtinInt(h *heap.Heap, args []heap.Value) (heap.Value, error) {
	switch len(args) {
	case 0:
		return heap.Int(0), nil
	case 1:
		return ToInt(h, args[0], 10, false)
	}
	n := numberOf(h, args[1])
	if n.kind != smallInt {
		return heap.None, exc.TypeErrorf("'%s' object cannot be interpreted as an integer", TypeName(h, args[1]))
	}
	if n.i < 0 || n.i > 36 {
		return heap.None, exc.ValueErrorf("int() base must be >= 2 and <= 36, or 0")
	}
	return ToInt(h, args[0], int(n.i), true)
}

func builtinFloat(h *heap.Heap, args []heap.Value) (heap.Value, error) {
	if len(args) == 0 {
		return heap.Float(0), nil
	}
	return ToFloat(h, args[0])
}

func builtinStr(h *heap.Heap, args []heap.Value) (heap.Value, error) {
	if len(args) == 0 {
		return h.Str(""), nil
	}
	if object.IsStr(h, args[0]) {
		return h.Clone(args[0]), nil
	}
	return object.NewStr(h, Str(h, args[0]))
}

func builtinRepr(h *heap.Heap, args []heap.Value) (heap.Value, error) {
	return object.NewStr(h, Repr(h, args[0]))
}

func builtinLen(h *heap.Heap, args []heap.Value) (heap.Value, error) {
	n, ok := Len(h, args[0])
	if !ok {
		return heap.None, exc.TypeErrorf("object of type '%s' has no len()", TypeName(h, args[0]))
	}
	return heap.Int(int64(n)), nil
}

func builtinHash(h *heap.Heap, args []heap.Value) (heap.Value, error) {
	sum, err := Hash(h, args[0])
	if err != nil {
		return heap.None, err
	}
	return heap.Int(int64(sum)), nil
}
