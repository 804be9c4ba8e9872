package vm

import (
	"math"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"pyarena/internal/code"
	"pyarena/internal/exc"
	"pyarena/internal/heap"
	"pyarena/internal/object"
	"pyarena/internal/semantics"
)

func newFunc(t *testing.T, h *heap.Heap, name string, params int, consts []heap.Value, ins ...code.Instructions) heap.Value {
	t.Helper()
	v, err := h.Alloc(&object.Function{
		Name:         name,
		Instructions: code.Concat(ins...),
		Constants:    consts,
		NumLocals:    params,
		NumParams:    params,
	})
	if err != nil {
		t.Fatalf("alloc function %s: %v", name, err)
	}
	return v
}

// returns builds a two-parameter method that returns a constant.
func returns(t *testing.T, h *heap.Heap, name string, v heap.Value) heap.Value {
	t.Helper()
	return newFunc(t, h, name, 2, []heap.Value{v},
		code.Make(code.OpConstant, 0),
		code.Make(code.OpReturnValue),
	)
}

func newClass(t *testing.T, h *heap.Heap, name string, bases []heap.Value, attrs map[string]heap.Value) heap.Value {
	t.Helper()
	v, err := object.NewClass(h, name, bases, attrs)
	if err != nil {
		t.Fatalf("NewClass %s: %v", name, err)
	}
	return v
}

func instance(t *testing.T, h *heap.Heap, cls heap.Value) heap.Value {
	t.Helper()
	v, err := object.NewInstance(h, cls)
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	return v
}

func expectNoLeaks(t *testing.T, h *heap.Heap) {
	t.Helper()
	st := h.Stats()
	if st.Live != 0 {
		t.Fatalf("expected no live objects, got %d", st.Live)
	}
	if st.OpenBorrows != 0 {
		t.Fatalf("expected no open borrows, got %d", st.OpenBorrows)
	}
}

func expectError(t *testing.T, err error, class exc.Class, contains ...string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got no error", class)
	}
	e, ok := exc.As(err)
	if !ok {
		t.Fatalf("expected *exc.Error, got %T (%v)", err, err)
	}
	if e.Class != class {
		t.Fatalf("expected %s, got %s (%v)", class, e.Class, err)
	}
	for _, s := range contains {
		if !strings.Contains(e.Message, s) {
			t.Fatalf("expected message to contain %q, got %q", s, e.Message)
		}
	}
}

func TestFastPathMatchesNativeTier(t *testing.T) {
	h := heap.New(nil)
	m := New(h)
	tests := []struct{ a, b int64 }{
		{0, 0},
		{1, 2},
		{-5, 3},
		{1 << 40, 1 << 40},
		{math.MaxInt64 - 1, 1},
		{math.MinInt64 + 1, -1},
	}
	for i, tt := range tests {
		for _, op := range []Op{OpAdd, OpSub} {
			fast, err := m.Execute(op, heap.Int(tt.a), heap.Int(tt.b))
			if err != nil {
				t.Fatalf("tests[%d] %s fast path: %v", i, op, err)
			}
			slow, ok, err := natives[op](h, heap.Int(tt.a), heap.Int(tt.b))
			if !ok || err != nil {
				t.Fatalf("tests[%d] %s native tier: ok=%v err=%v", i, op, ok, err)
			}
			eq, err := semantics.Equal(h, fast, slow)
			if err != nil || !eq {
				t.Fatalf("tests[%d] %d %s %d: fast=%s native=%s", i, tt.a, op, tt.b,
					semantics.Repr(h, fast), semantics.Repr(h, slow))
			}
			h.Release(fast)
			h.Release(slow)
		}
	}
	expectNoLeaks(t, h)
}

func TestOverflowPromotion(t *testing.T) {
	h := heap.New(nil)
	m := New(h)
	tests := []struct {
		op       Op
		a, b     int64
		inplace  bool
		expected string
	}{
		{OpAdd, math.MaxInt64, 1, false, "9223372036854775808"},
		{OpAdd, math.MaxInt64, math.MaxInt64, false, "18446744073709551614"},
		{OpSub, math.MinInt64, 1, false, "-9223372036854775809"},
		{OpAdd, math.MaxInt64, 1, true, "9223372036854775808"},
		{OpMul, math.MaxInt64, 2, false, "18446744073709551614"},
	}
	for i, tt := range tests {
		var (
			v   heap.Value
			err error
		)
		if tt.inplace {
			v, err = m.ExecuteInplace(tt.op, heap.Int(tt.a), heap.Int(tt.b))
		} else {
			v, err = m.Execute(tt.op, heap.Int(tt.a), heap.Int(tt.b))
		}
		if err != nil {
			t.Fatalf("tests[%d] unexpected error: %v", i, err)
		}
		if got := semantics.Repr(h, v); got != tt.expected {
			t.Fatalf("tests[%d] wrong result: want %s, got %s", i, tt.expected, got)
		}
		h.Release(v)
	}
	expectNoLeaks(t, h)
}

func TestReflectedMethod(t *testing.T) {
	h := heap.New(nil)
	m := New(h)

	clsA := newClass(t, h, "A", nil, map[string]heap.Value{
		"__add__": returns(t, h, "__add__", heap.NotImplemented),
	})
	clsB := newClass(t, h, "B", nil, map[string]heap.Value{
		"__radd__": returns(t, h, "__radd__", h.Str("V")),
		"__rmul__": returns(t, h, "__rmul__", heap.Int(42)),
	})
	clsC := newClass(t, h, "C", nil, nil)
	a, b, c := instance(t, h, clsA), instance(t, h, clsB), instance(t, h, clsC)

	tests := []struct {
		op       Op
		lhs, rhs heap.Value
		expected string
	}{
		{OpAdd, a, b, "'V'"},
		{OpAdd, c, b, "'V'"},
		{OpMul, heap.Int(3), b, "42"},
		{OpMul, c, b, "42"},
	}
	for i, tt := range tests {
		v, err := m.Execute(tt.op, h.Clone(tt.lhs), h.Clone(tt.rhs))
		if err != nil {
			t.Fatalf("tests[%d] unexpected error: %v", i, err)
		}
		if got := semantics.Repr(h, v); got != tt.expected {
			t.Fatalf("tests[%d] wrong result: want %s, got %s", i, tt.expected, got)
		}
		h.Release(v)
		if m.Depth() != 0 {
			t.Fatalf("tests[%d] frames left behind: %d", i, m.Depth())
		}
	}

	h.ReleaseAll([]heap.Value{a, b, c, clsA, clsB, clsC})
	expectNoLeaks(t, h)
}

func TestSubclassReflectedPriority(t *testing.T) {
	h := heap.New(nil)
	m := New(h)

	base := newClass(t, h, "Base", nil, map[string]heap.Value{
		"__add__":  returns(t, h, "__add__", h.Str("base")),
		"__radd__": returns(t, h, "__radd__", h.Str("base-r")),
	})
	derived := newClass(t, h, "Derived", []heap.Value{h.Clone(base)}, map[string]heap.Value{
		"__radd__": returns(t, h, "__radd__", h.Str("derived-r")),
	})
	plain := newClass(t, h, "Plain", []heap.Value{h.Clone(base)}, nil)

	tests := []struct {
		rhsClass heap.Value
		expected string
	}{
		{derived, "derived-r"},
		{plain, "base"},
		{base, "base"},
	}
	for i, tt := range tests {
		lhs := instance(t, h, base)
		rhs := instance(t, h, tt.rhsClass)
		v, err := m.Execute(OpAdd, lhs, rhs)
		if err != nil {
			t.Fatalf("tests[%d] unexpected error: %v", i, err)
		}
		if got := semantics.Str(h, v); got != tt.expected {
			t.Fatalf("tests[%d] wrong method chosen: want %s, got %s", i, tt.expected, got)
		}
		h.Release(v)
	}

	h.ReleaseAll([]heap.Value{plain, derived, base})
	expectNoLeaks(t, h)
}

func TestNoProtocolTypeError(t *testing.T) {
	h := heap.New(nil)
	m := New(h)
	clsA := newClass(t, h, "A", nil, nil)
	clsB := newClass(t, h, "B", nil, map[string]heap.Value{
		"__radd__": returns(t, h, "__radd__", heap.NotImplemented),
	})
	a, b := instance(t, h, clsA), instance(t, h, clsB)

	tests := []struct {
		op      Op
		inplace bool
		lhs     heap.Value
		rhs     heap.Value
		display string
		names   [2]string
	}{
		{OpAdd, false, a, b, "for +:", [2]string{"'A'", "'B'"}},
		{OpPow, false, a, b, "for ** or pow():", [2]string{"'A'", "'B'"}},
		{OpMatMul, false, a, heap.Int(1), "for @:", [2]string{"'A'", "'int'"}},
		{OpAdd, true, a, b, "for +=:", [2]string{"'A'", "'B'"}},
		{OpXor, true, b, heap.Float(1), "for ^=:", [2]string{"'B'", "'float'"}},
		{OpLShift, false, heap.Int(1), a, "for <<:", [2]string{"'int'", "'A'"}},
	}
	for i, tt := range tests {
		var err error
		if tt.inplace {
			_, err = m.ExecuteInplace(tt.op, h.Clone(tt.lhs), h.Clone(tt.rhs))
		} else {
			_, err = m.Execute(tt.op, h.Clone(tt.lhs), h.Clone(tt.rhs))
		}
		expectError(t, err, exc.TypeError, "unsupported operand type(s) "+tt.display, tt.names[0], tt.names[1])
		if m.Depth() != 0 {
			t.Fatalf("tests[%d] frames left behind: %d", i, m.Depth())
		}
	}

	h.ReleaseAll([]heap.Value{a, b, clsA, clsB})
	expectNoLeaks(t, h)
}

func TestMatMulHasNoNativeTier(t *testing.T) {
	h := heap.New(nil)
	m := New(h)
	pairs := [][2]heap.Value{
		{heap.Int(2), heap.Int(3)},
		{heap.Float(2), heap.Int(3)},
		{heap.True, heap.Float(0.5)},
	}
	for i, p := range pairs {
		_, err := m.Execute(OpMatMul, p[0], p[1])
		expectError(t, err, exc.TypeError, "unsupported operand type(s) for @")
		if exc.IsEngine(err) {
			t.Fatalf("pairs[%d] expected a user TypeError, got engine fault %v", i, err)
		}
	}
}

func TestArithmeticFailuresPropagate(t *testing.T) {
	h := heap.New(nil)
	m := New(h)
	tests := []struct {
		op       Op
		lhs, rhs heap.Value
		class    exc.Class
		message  string
	}{
		{OpTrueDiv, heap.Int(1), heap.Int(0), exc.ZeroDivisionError, "division by zero"},
		{OpFloorDiv, heap.Int(1), heap.Int(0), exc.ZeroDivisionError, "integer division or modulo by zero"},
		{OpMod, heap.Float(1), heap.Int(0), exc.ZeroDivisionError, "float modulo"},
		{OpPow, heap.Float(0), heap.Int(-1), exc.ZeroDivisionError, "0.0 cannot be raised to a negative power"},
		{OpLShift, heap.Int(1), heap.Int(-1), exc.ValueError, "negative shift count"},
	}
	for _, tt := range tests {
		_, err := m.Execute(tt.op, tt.lhs, tt.rhs)
		expectError(t, err, tt.class, tt.message)
	}
	expectNoLeaks(t, h)
}

func TestBitwiseFallbackGating(t *testing.T) {
	h := heap.New(nil)
	m := New(h)

	var called int
	and, err := object.NewNative(h, "__and__", func(h *heap.Heap, args []heap.Value) (heap.Value, error) {
		called++
		return heap.Int(7), nil
	})
	if err != nil {
		t.Fatalf("NewNative: %v", err)
	}
	add, err := object.NewNative(h, "__add__", func(h *heap.Heap, args []heap.Value) (heap.Value, error) {
		called++
		return heap.Int(8), nil
	})
	if err != nil {
		t.Fatalf("NewNative: %v", err)
	}
	cls := newClass(t, h, "Bits", nil, map[string]heap.Value{"__and__": and, "__add__": add})
	obj := instance(t, h, cls)

	savedAnd, savedAdd := natives[OpAnd], natives[OpAdd]
	defer func() { natives[OpAnd], natives[OpAdd] = savedAnd, savedAdd }()

	exhausted := func(*heap.Heap, heap.Value, heap.Value) (heap.Value, bool, error) {
		return heap.None, false, exc.ResourceExhausted(errors.New("simulated exhaustion"))
	}
	mismatch := func(*heap.Heap, heap.Value, heap.Value) (heap.Value, bool, error) {
		return heap.None, false, exc.TypeErrorf("simulated mismatch")
	}

	// non-mismatch failure: propagates untouched
	natives[OpAnd] = exhausted
	_, err = m.Execute(OpAnd, h.Clone(obj), heap.Int(1))
	if !exc.IsEngine(err) {
		t.Fatalf("expected engine fault to propagate, got %v", err)
	}
	if called != 0 {
		t.Fatalf("special method consulted after a resource failure")
	}

	// type mismatch: special method runs
	natives[OpAnd] = mismatch
	v, err := m.Execute(OpAnd, h.Clone(obj), heap.Int(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsInt() || v.AsInt() != 7 || called != 1 {
		t.Fatalf("expected __and__ result 7 after one call, got %s (calls=%d)", v, called)
	}

	// arithmetic operators never fall through on failure
	natives[OpAdd] = mismatch
	_, err = m.Execute(OpAdd, h.Clone(obj), heap.Int(1))
	expectError(t, err, exc.TypeError, "simulated mismatch")
	if called != 1 {
		t.Fatalf("__add__ consulted after a native failure (calls=%d)", called)
	}

	h.ReleaseAll([]heap.Value{obj, cls})
	expectNoLeaks(t, h)
}

func TestContainerBitwiseMismatchReachesSpecialMethod(t *testing.T) {
	h := heap.New(nil)
	m := New(h)
	cls := newClass(t, h, "Other", nil, map[string]heap.Value{
		"__ror__": returns(t, h, "__ror__", h.Str("handled")),
	})
	other := instance(t, h, cls)
	set, err := h.Alloc(object.NewSet())
	if err != nil {
		t.Fatalf("alloc set: %v", err)
	}

	v, err := m.Execute(OpOr, h.Clone(set), h.Clone(other))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := semantics.Str(h, v); got != "handled" {
		t.Fatalf("expected reflected __ror__, got %s", got)
	}

	_, err = m.Execute(OpOr, h.Clone(set), heap.Int(1))
	expectError(t, err, exc.TypeError, "unsupported operand type(s) for |: 'set' and 'int'")

	h.ReleaseAll([]heap.Value{set, other, cls})
	expectNoLeaks(t, h)
}

func TestInplaceDictMergePreservesIdentity(t *testing.T) {
	h := heap.New(nil)
	m := New(h)

	a, err := h.Alloc(object.NewDict())
	if err != nil {
		t.Fatalf("alloc dict: %v", err)
	}
	b, err := h.Alloc(object.NewDict())
	if err != nil {
		t.Fatalf("alloc dict: %v", err)
	}
	old, err := object.NewList(h, nil)
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}
	if err := semantics.DictSetItem(h, a, h.Str("x"), old); err != nil {
		t.Fatalf("DictSetItem: %v", err)
	}
	if err := semantics.DictSetItem(h, a, h.Str("y"), heap.Int(2)); err != nil {
		t.Fatalf("DictSetItem: %v", err)
	}
	if err := semantics.DictSetItem(h, b, h.Str("x"), heap.Int(3)); err != nil {
		t.Fatalf("DictSetItem: %v", err)
	}
	if err := semantics.DictSetItem(h, b, h.Str("z"), heap.Int(4)); err != nil {
		t.Fatalf("DictSetItem: %v", err)
	}
	oldHandle := old.Handle()

	v, err := m.ExecuteInplace(OpOr, h.Clone(a), h.Clone(b))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Same(a) {
		t.Fatalf("in-place merge produced a new object: %s vs %s", v, a)
	}
	if got, want := semantics.Repr(h, a), "{'x': 3, 'y': 2, 'z': 4}"; got != want {
		t.Fatalf("wrong merge result: want %s, got %s", want, got)
	}
	if h.IsLive(oldHandle) {
		t.Fatalf("overwritten value was not released")
	}
	if rc := h.RefCount(a.Handle()); rc != 2 {
		t.Fatalf("expected refcount 2 on merged dict, got %d", rc)
	}

	h.ReleaseAll([]heap.Value{v, a, b})
	expectNoLeaks(t, h)
}

func TestInplaceSpecialMethod(t *testing.T) {
	h := heap.New(nil)
	m := New(h)

	// __iadd__ returns self
	grows := newClass(t, h, "Grows", nil, map[string]heap.Value{
		"__iadd__": newFunc(t, h, "__iadd__", 2, []heap.Value{h.Str("last")},
			code.Make(code.OpGetLocal, 0),
			code.Make(code.OpGetLocal, 1),
			code.Make(code.OpSetMember, 0),
			code.Make(code.OpGetLocal, 0),
			code.Make(code.OpReturnValue),
		),
	})
	// __iadd__ declines, __add__ answers
	declines := newClass(t, h, "Declines", nil, map[string]heap.Value{
		"__iadd__": returns(t, h, "__iadd__", heap.NotImplemented),
		"__add__":  returns(t, h, "__add__", heap.Int(5)),
	})

	g := instance(t, h, grows)
	v, err := m.ExecuteInplace(OpAdd, h.Clone(g), heap.Int(9))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Same(g) {
		t.Fatalf("__iadd__ returning self should keep identity")
	}
	last, err := semantics.GetAttr(h, g, "last")
	if err != nil || !last.IsInt() || last.AsInt() != 9 {
		t.Fatalf("expected last=9, got %s (%v)", last, err)
	}
	h.Release(v)

	d := instance(t, h, declines)
	v, err = m.ExecuteInplace(OpAdd, h.Clone(d), heap.Int(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsInt() || v.AsInt() != 5 {
		t.Fatalf("expected fallback to __add__ = 5, got %s", semantics.Repr(h, v))
	}

	h.ReleaseAll([]heap.Value{g, d, grows, declines})
	expectNoLeaks(t, h)
}

func TestInplaceNativeTier(t *testing.T) {
	h := heap.New(nil)
	m := New(h)
	l, err := object.NewList(h, []heap.Value{heap.Int(1)})
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}
	r, err := object.NewList(h, []heap.Value{heap.Int(2), heap.Int(3)})
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}

	v, err := m.ExecuteInplace(OpAdd, h.Clone(l), h.Clone(r))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Same(l) || semantics.Repr(h, l) != "[1, 2, 3]" {
		t.Fatalf("list += list should extend in place, got %s", semantics.Repr(h, v))
	}
	h.Release(v)

	v, err = m.Execute(OpAdd, h.Clone(l), h.Clone(r))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Same(l) || semantics.Repr(h, v) != "[1, 2, 3, 2, 3]" {
		t.Fatalf("list + list should build a new list, got %s", semantics.Repr(h, v))
	}
	h.Release(v)

	_, err = m.ExecuteInplace(OpAdd, h.Clone(l), heap.Int(1))
	expectError(t, err, exc.TypeError)

	h.ReleaseAll([]heap.Value{l, r})
	expectNoLeaks(t, h)
}

func TestRecursionLimit(t *testing.T) {
	h := heap.New(nil)
	m := New(h)
	m.SetMaxFrames(64)

	// __add__ computes self + other again
	cls := newClass(t, h, "Loop", nil, map[string]heap.Value{
		"__add__": newFunc(t, h, "__add__", 2, nil,
			code.Make(code.OpGetLocal, 0),
			code.Make(code.OpGetLocal, 1),
			code.Make(code.OpBinary, int(OpAdd)),
			code.Make(code.OpReturnValue),
		),
	})
	obj := instance(t, h, cls)

	_, err := m.Execute(OpAdd, h.Clone(obj), heap.Int(1))
	expectError(t, err, exc.RecursionError, "maximum recursion depth")
	if m.Depth() != 0 {
		t.Fatalf("frames left after unwinding: %d", m.Depth())
	}

	h.ReleaseAll([]heap.Value{obj, cls})
	expectNoLeaks(t, h)
}

func TestEngineFaultSurfacesAsRuntimeError(t *testing.T) {
	h := heap.New(nil)
	m := New(h)

	_, err := m.Execute(OpPow, heap.Int(2), heap.Int(1<<25))
	if !exc.IsEngine(err) {
		t.Fatalf("expected engine fault at the host boundary, got %v", err)
	}

	cls := newClass(t, h, "Huge", nil, map[string]heap.Value{
		"__add__": newFunc(t, h, "__add__", 2, []heap.Value{heap.Int(2), heap.Int(1 << 25)},
			code.Make(code.OpConstant, 0),
			code.Make(code.OpConstant, 1),
			code.Make(code.OpBinary, int(OpPow)),
			code.Make(code.OpReturnValue),
		),
	})
	obj := instance(t, h, cls)

	_, err = m.Execute(OpAdd, h.Clone(obj), heap.Int(1))
	expectError(t, err, exc.RuntimeError)
	if exc.IsEngine(err) {
		t.Fatalf("fault escaped a bytecode frame without being surfaced: %v", err)
	}
	if e, _ := exc.As(err); !exc.IsEngine(errors.Unwrap(e)) {
		t.Fatalf("surfaced error should keep the fault as its cause")
	}

	h.ReleaseAll([]heap.Value{obj, cls})
	expectNoLeaks(t, h)
}

func TestCallAndMembers(t *testing.T) {
	h := heap.New(nil)
	m := New(h)

	l, err := object.NewList(h, nil)
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}
	appendFn, err := semantics.GetAttr(h, l, "append")
	if err != nil {
		t.Fatalf("GetAttr: %v", err)
	}
	v, err := m.Call(appendFn, heap.Int(1))
	if err != nil || !v.IsNone() {
		t.Fatalf("append returned %s, %v", v, err)
	}
	if got := semantics.Repr(h, l); got != "[1]" {
		t.Fatalf("expected [1], got %s", got)
	}

	// store(self, v): self.value = v; return self.value
	cls := newClass(t, h, "Box", nil, map[string]heap.Value{
		"store": newFunc(t, h, "store", 2, []heap.Value{h.Str("value")},
			code.Make(code.OpGetLocal, 0),
			code.Make(code.OpGetLocal, 1),
			code.Make(code.OpSetMember, 0),
			code.Make(code.OpGetLocal, 0),
			code.Make(code.OpGetMember, 0),
			code.Make(code.OpReturnValue),
		),
	})
	box := instance(t, h, cls)
	store, err := semantics.GetAttr(h, box, "store")
	if err != nil {
		t.Fatalf("GetAttr: %v", err)
	}
	v, err = m.Call(store, h.Clone(l))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Same(l) {
		t.Fatalf("expected stored list back, got %s", semantics.Repr(h, v))
	}
	h.Release(v)

	_, err = m.Call(heap.Int(3))
	expectError(t, err, exc.TypeError, "'int' object is not callable")

	store, _ = semantics.GetAttr(h, box, "store")
	_, err = m.Call(store)
	expectError(t, err, exc.TypeError, "takes 2 positional argument(s) but 1 were given")

	h.ReleaseAll([]heap.Value{box, cls, l})
	expectNoLeaks(t, h)
}

func TestRefCountConservation(t *testing.T) {
	h := heap.New(nil)
	m := New(h)

	cls := newClass(t, h, "R", nil, map[string]heap.Value{
		"__add__":  returns(t, h, "__add__", heap.NotImplemented),
		"__radd__": returns(t, h, "__radd__", heap.Int(1)),
	})
	obj := instance(t, h, cls)
	l, _ := object.NewList(h, []heap.Value{heap.Int(1)})
	s, _ := h.Alloc(object.NewSet())
	baseline := h.Stats().Live
	rcObj, rcList := h.RefCount(obj.Handle()), h.RefCount(l.Handle())

	type call struct {
		op       Op
		inplace  bool
		lhs, rhs heap.Value
	}
	calls := []call{
		{OpAdd, false, l, l},
		{OpMul, false, l, heap.Int(3)},
		{OpAdd, false, l, heap.Int(1)},
		{OpSub, false, s, s},
		{OpSub, false, s, l},
		{OpAnd, false, s, heap.Int(1)},
		{OpAdd, false, obj, obj},
		{OpAdd, false, heap.Int(1), obj},
		{OpPow, false, obj, l},
		{OpTrueDiv, false, heap.Int(1), heap.Int(0)},
		{OpAdd, true, l, obj},
		{OpOr, true, s, s},
		{OpMatMul, true, l, l},
	}
	for i, c := range calls {
		var (
			v   heap.Value
			err error
		)
		if c.inplace {
			v, err = m.ExecuteInplace(c.op, h.Clone(c.lhs), h.Clone(c.rhs))
		} else {
			v, err = m.Execute(c.op, h.Clone(c.lhs), h.Clone(c.rhs))
		}
		if err == nil {
			h.Release(v)
		}
		if live := h.Stats().Live; live != baseline {
			t.Fatalf("calls[%d] %s: live objects %d, want %d", i, c.op, live, baseline)
		}
		if rc := h.RefCount(obj.Handle()); rc != rcObj {
			t.Fatalf("calls[%d] %s: instance refcount %d, want %d", i, c.op, rc, rcObj)
		}
		if rc := h.RefCount(l.Handle()); rc != rcList {
			t.Fatalf("calls[%d] %s: list refcount %d, want %d", i, c.op, rc, rcList)
		}
		if st := h.Stats(); st.OpenBorrows != 0 {
			t.Fatalf("calls[%d] %s: %d borrows left open", i, c.op, st.OpenBorrows)
		}
	}

	h.ReleaseAll([]heap.Value{obj, cls, l, s})
	expectNoLeaks(t, h)
}

func TestInvalidOperator(t *testing.T) {
	h := heap.New(nil)
	m := New(h)
	_, err := m.Execute(Op(200), heap.Int(1), heap.Int(2))
	if !exc.IsEngine(err) {
		t.Fatalf("expected corrupted-state fault, got %v", err)
	}
}

func TestOpBySymbol(t *testing.T) {
	tests := []struct {
		sym      string
		op       Op
		display  string
		inplaced string
	}{
		{"+", OpAdd, "+", "+="},
		{"**", OpPow, "** or pow()", "**="},
		{"//", OpFloorDiv, "//", "//="},
		{"@", OpMatMul, "@", "@="},
		{">>", OpRShift, ">>", ">>="},
	}
	for i, tt := range tests {
		op, ok := OpBySymbol(tt.sym)
		if !ok || op != tt.op {
			t.Fatalf("tests[%d] OpBySymbol(%q) = %v, %v", i, tt.sym, op, ok)
		}
		if op.Display(false) != tt.display || op.Display(true) != tt.inplaced {
			t.Fatalf("tests[%d] wrong display: %q / %q", i, op.Display(false), op.Display(true))
		}
	}
	if _, ok := OpBySymbol("<>"); ok {
		t.Fatalf("expected unknown symbol to be rejected")
	}
}

func TestDisassemble(t *testing.T) {
	h := heap.New(nil)
	fnVal := newFunc(t, h, "f", 2, []heap.Value{h.Str("total")},
		code.Make(code.OpGetLocal, 0),
		code.Make(code.OpGetMember, 0),
		code.Make(code.OpGetLocal, 1),
		code.Make(code.OpBinary, int(OpPow)),
		code.Make(code.OpInplace, int(OpOr)),
		code.Make(code.OpReturnValue),
	)
	fn, _ := heap.Cast[*object.Function](h, fnVal)
	expected := `0000 OpGetLocal 0
0002 OpGetMember 0 ('total')
0005 OpGetLocal 1
0007 OpBinary 6 (**)
0009 OpInplace 11 (|=)
0011 OpReturnValue
`
	if got := Disassemble(h, fn); got != expected {
		t.Fatalf("wrong disassembly.\nwant=%q\ngot=%q", expected, got)
	}
	h.Release(fnVal)
}

func TestSpecialMethodLookupThroughBorrows(t *testing.T) {
	h := heap.New(nil)
	cls := newClass(t, h, "R", nil, map[string]heap.Value{
		"__radd__": returns(t, h, "__radd__", heap.Int(7)),
	})
	r := instance(t, h, cls)

	lb, rb := h.Borrow(heap.Int(1)), h.Borrow(r)
	plan := planFor(OpAdd, &lb, &rb)
	want := []step{{name: "__add__"}, {name: "__radd__", reflected: true}}
	if len(plan) != len(want) {
		t.Fatalf("plan = %v, want %v", plan, want)
	}
	for i := range want {
		if plan[i] != want[i] {
			t.Fatalf("plan[%d] = %v, want %v", i, plan[i], want[i])
		}
	}
	if _, ok := methodCall(&lb, &rb, "__add__"); ok {
		t.Fatalf("an int receiver must not carry special methods")
	}
	call, ok := methodCall(&rb, &lb, "__radd__")
	if !ok {
		t.Fatalf("expected __radd__ on the right operand")
	}
	if h.Stats().OpenBorrows != 2 {
		t.Fatalf("expected both operands borrowed, got %d", h.Stats().OpenBorrows)
	}
	lv, _ := lb.Release()
	rv, _ := rb.Release()
	if !lv.Same(heap.Int(1)) || !rv.Same(r) {
		t.Fatalf("release must hand back the operands unchanged")
	}
	if !call.Args[0].Same(r) || call.Args[1].AsInt() != 1 {
		t.Fatalf("reflected call must swap receiver and argument: %v", call.Args)
	}

	h.Release(call.Callee)
	h.ReleaseAll(call.Args)
	h.ReleaseAll([]heap.Value{r, cls})
	expectNoLeaks(t, h)
}
