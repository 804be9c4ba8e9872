package vm

import (
	"math/big"

	"pyarena/internal/exc"
	"pyarena/internal/heap"
	"pyarena/internal/object"
	"pyarena/internal/semantics"
)

// Result is the outcome of one dispatch step: either a finished value or
// a callable the instruction loop must run before resuming.
type Result struct {
	Value heap.Value
	Call  *Call
}

// Call asks the instruction loop to invoke Callee with Args and hand the
// return value to Resume. Callee and Args are owned by the Call.
type Call struct {
	Callee heap.Value
	Args   []heap.Value
	Resume Resumer
}

// Resumer continues a dispatch after a callable returned. Resume consumes
// both the receiver and ret. Abandon releases whatever the continuation
// still holds when the call failed or its frame was unwound.
type Resumer interface {
	Resume(m *VM, ret heap.Value) (Result, error)
	Abandon(h *heap.Heap)
}

// Binary dispatches lhs <op> rhs, taking ownership of both operands.
func (m *VM) Binary(op Op, lhs, rhs heap.Value) (Result, error) {
	if !op.Valid() {
		m.heap.Release(lhs)
		m.heap.Release(rhs)
		return Result{}, exc.Corruptedf("invalid operator %d", op)
	}
	if v, ok, err := m.fastPath(op, lhs, rhs); ok || err != nil {
		return Result{Value: v}, err
	}
	return m.binary(op, lhs, rhs, false)
}

// Inplace dispatches lhs <op>= rhs, taking ownership of both operands.
// The compound native tier runs first, then the operand's in-place special
// method, and finally the ordinary binary protocol.
func (m *VM) Inplace(op Op, lhs, rhs heap.Value) (Result, error) {
	h := m.heap
	if !op.Valid() {
		h.Release(lhs)
		h.Release(rhs)
		return Result{}, exc.Corruptedf("invalid operator %d", op)
	}
	if v, ok, err := m.fastPath(op, lhs, rhs); ok || err != nil {
		return Result{Value: v}, err
	}
	if fn := inplaceNatives[op]; fn != nil {
		v, ok, err := fn(h, lhs, rhs)
		if err != nil || ok {
			h.Release(lhs)
			h.Release(rhs)
			return Result{Value: v}, err
		}
	}
	l, r := h.Borrow(lhs), h.Borrow(rhs)
	call, ok := methodCall(&l, &r, opInfos[op].inplace)
	l.Release()
	r.Release()
	if ok {
		call.Resume = &inplaceCont{op: op, lhs: lhs, rhs: rhs}
		return Result{Call: call}, nil
	}
	return m.binary(op, lhs, rhs, true)
}

// fastPath adds or subtracts two plain ints without touching the tiers.
// Operands are immediates, so there is nothing to release.
func (m *VM) fastPath(op Op, lhs, rhs heap.Value) (heap.Value, bool, error) {
	if !lhs.IsInt() || !rhs.IsInt() {
		return heap.None, false, nil
	}
	x, y := lhs.AsInt(), rhs.AsInt()
	switch op {
	case OpAdd:
		if s, ok := semantics.CheckedAdd(x, y); ok {
			return heap.Int(s), true, nil
		}
		v, err := semantics.NewInt(m.heap, new(big.Int).Add(big.NewInt(x), big.NewInt(y)))
		return v, err == nil, err
	case OpSub:
		if d, ok := semantics.CheckedSub(x, y); ok {
			return heap.Int(d), true, nil
		}
		v, err := semantics.NewInt(m.heap, new(big.Int).Sub(big.NewInt(x), big.NewInt(y)))
		return v, err == nil, err
	}
	return heap.None, false, nil
}

// binary runs the native tier and then special-method dispatch. inplace
// only affects the operator text in the final TypeError.
func (m *VM) binary(op Op, lhs, rhs heap.Value, inplace bool) (Result, error) {
	h := m.heap
	release := func() {
		h.Release(lhs)
		h.Release(rhs)
	}

	if op == OpSub {
		v, ok, err := semantics.SubContainers(h, lhs, rhs)
		if err != nil || ok {
			release()
			return Result{Value: v}, err
		}
	}

	if fn := natives[op]; fn != nil {
		v, ok, err := fn(h, lhs, rhs)
		switch {
		case err != nil:
			if !opInfos[op].bitwise || !exc.IsTypeMismatch(err) {
				release()
				return Result{}, err
			}
			log.Debugf("%s: native type mismatch, trying special methods", op)
		case ok:
			release()
			return Result{Value: v}, nil
		}
	}

	c := &binaryCont{op: op, lhs: lhs, rhs: rhs, inplace: inplace}
	l, r := h.Borrow(lhs), h.Borrow(rhs)
	c.plan = planFor(op, &l, &r)
	l.Release()
	r.Release()
	return c.advance(m)
}

type step struct {
	name      string
	reflected bool
}

// planFor decides which special methods to try and in what order. The
// reflected method is skipped when both operands have the same type and
// goes first when the right operand's class is a proper subclass of the
// left one's that overrides it.
func planFor(op Op, l, r *heap.Borrowed) []step {
	info := opInfos[op]
	fwd := step{name: info.forward}
	refl := step{name: info.reflected, reflected: true}

	lv, h := l.Get()
	rv, _ := r.Get()
	if sameType(h, lv, rv) {
		return []step{fwd}
	}
	if overridesReflected(h, l.Payload(), r.Payload(), info.reflected) {
		return []step{refl, fwd}
	}
	return []step{fwd, refl}
}

func sameType(h *heap.Heap, a, b heap.Value) bool {
	_, ac, aok := object.ClassOf(h, a)
	_, bc, bok := object.ClassOf(h, b)
	if aok || bok {
		return aok && bok && ac.Same(bc)
	}
	return semantics.TypeName(h, a) == semantics.TypeName(h, b)
}

func overridesReflected(h *heap.Heap, lp, rp heap.Payload, name string) bool {
	li, ok := lp.(*object.Instance)
	if !ok {
		return false
	}
	ri, ok := rp.(*object.Instance)
	if !ok || ri.Class.Same(li.Class) || !object.IsSubclass(h, ri.Class, li.Class) {
		return false
	}
	rf, ok := object.LookupClassAttr(h, ri.Class, name)
	if !ok {
		return false
	}
	lf, ok := object.LookupClassAttr(h, li.Class, name)
	return !ok || !lf.Same(rf)
}

// specialMethod looks name up on the class of the borrowed receiver. Only
// instances of user classes carry special methods. The result is borrowed.
func specialMethod(recv *heap.Borrowed, name string) (heap.Value, bool) {
	v, h := recv.Get()
	_, cls, ok := object.ClassOf(h, v)
	if !ok {
		return heap.None, false
	}
	return object.LookupClassAttr(h, cls, name)
}

// methodCall builds the call of recv's special method name with other as
// its argument. The call owns new references to all three.
func methodCall(recv, other *heap.Borrowed, name string) (*Call, bool) {
	fn, ok := specialMethod(recv, name)
	if !ok {
		return nil, false
	}
	rv, h := recv.Project()
	ov, _ := other.Get()
	return &Call{Callee: h.Clone(fn), Args: []heap.Value{h.Clone(*rv), h.Clone(ov)}}, true
}

// binaryCont walks the special-method plan of one binary operation. It owns
// lhs and rhs until it produces a result or is abandoned.
type binaryCont struct {
	op       Op
	lhs, rhs heap.Value
	inplace  bool
	plan     []step
	next     int
}

func (c *binaryCont) advance(m *VM) (Result, error) {
	h := m.heap
	for c.next < len(c.plan) {
		s := c.plan[c.next]
		c.next++
		l, r := h.Borrow(c.lhs), h.Borrow(c.rhs)
		recv, other := &l, &r
		if s.reflected {
			recv, other = &r, &l
		}
		call, ok := methodCall(recv, other, s.name)
		l.Release()
		r.Release()
		if !ok {
			continue
		}
		call.Resume = c
		return Result{Call: call}, nil
	}
	err := exc.TypeErrorf("unsupported operand type(s) for %s: '%s' and '%s'",
		c.op.Display(c.inplace), semantics.TypeName(h, c.lhs), semantics.TypeName(h, c.rhs))
	c.Abandon(h)
	return Result{}, err
}

func (c *binaryCont) Resume(m *VM, ret heap.Value) (Result, error) {
	if ret.IsNotImplemented() {
		return c.advance(m)
	}
	c.Abandon(m.heap)
	return Result{Value: ret}, nil
}

func (c *binaryCont) Abandon(h *heap.Heap) {
	h.Release(c.lhs)
	h.Release(c.rhs)
	c.lhs, c.rhs = heap.None, heap.None
}

// inplaceCont waits on an in-place special method. NotImplemented hands
// the operands on to the binary protocol.
type inplaceCont struct {
	op       Op
	lhs, rhs heap.Value
}

func (c *inplaceCont) Resume(m *VM, ret heap.Value) (Result, error) {
	if ret.IsNotImplemented() {
		lhs, rhs := c.lhs, c.rhs
		c.lhs, c.rhs = heap.None, heap.None
		return m.binary(c.op, lhs, rhs, true)
	}
	c.Abandon(m.heap)
	return Result{Value: ret}, nil
}

func (c *inplaceCont) Abandon(h *heap.Heap) {
	h.Release(c.lhs)
	h.Release(c.rhs)
	c.lhs, c.rhs = heap.None, heap.None
}
