package vm

import (
	"github.com/tliron/commonlog"

	"pyarena/internal/code"
	"pyarena/internal/exc"
	"pyarena/internal/heap"
	"pyarena/internal/object"
	"pyarena/internal/semantics"
)

const StackSize = 2048
const MaxFrames = 1024

var log = commonlog.GetLogger("pyarena.vm")

// VM runs operator dispatch and the bytecode of user-defined special
// methods over one heap. It is single-threaded.
type VM struct {
	heap *heap.Heap

	stack []heap.Value
	sp    int

	frames    []*Frame
	maxFrames int
}

func New(h *heap.Heap) *VM {
	return &VM{
		heap:      h,
		stack:     make([]heap.Value, StackSize),
		frames:    make([]*Frame, 0, 16),
		maxFrames: MaxFrames,
	}
}

func (m *VM) Heap() *heap.Heap { return m.heap }

func (m *VM) SetMaxFrames(max int) {
	if max <= 0 {
		max = MaxFrames
	}
	m.maxFrames = max
}

// Depth is the number of active bytecode frames.
func (m *VM) Depth() int { return len(m.frames) }

func (m *VM) currentFrame() *Frame {
	return m.frames[len(m.frames)-1]
}

func (m *VM) pushFrame(f *Frame) {
	m.frames = append(m.frames, f)
}

// popFrame removes the top frame and releases everything it still owns:
// leftover stack slots, locals and the function reference.
func (m *VM) popFrame() *Frame {
	f := m.frames[len(m.frames)-1]
	m.frames[len(m.frames)-1] = nil
	m.frames = m.frames[:len(m.frames)-1]
	for m.sp > f.basePointer {
		m.heap.Release(m.pop())
	}
	m.heap.ReleaseAll(f.locals)
	f.locals = nil
	m.heap.Release(f.fnVal)
	return f
}

// push takes ownership of v; on overflow v is released.
func (m *VM) push(v heap.Value) error {
	if m.sp >= StackSize {
		m.heap.Release(v)
		return exc.RecursionErrorf("stack overflow")
	}
	m.stack[m.sp] = v
	m.sp++
	return nil
}

func (m *VM) pop() heap.Value {
	m.sp--
	v := m.stack[m.sp]
	m.stack[m.sp] = heap.None
	return v
}

// Execute evaluates lhs <op> rhs to completion, running any user-defined
// special methods on the frame stack. It takes ownership of both operands
// and returns an owned result.
func (m *VM) Execute(op Op, lhs, rhs heap.Value) (heap.Value, error) {
	res, err := m.Binary(op, lhs, rhs)
	return m.drive(res, err)
}

// ExecuteInplace is Execute for the augmented assignment lhs <op>= rhs.
func (m *VM) ExecuteInplace(op Op, lhs, rhs heap.Value) (heap.Value, error) {
	res, err := m.Inplace(op, lhs, rhs)
	return m.drive(res, err)
}

// Call invokes fn with args to completion. It takes ownership of fn and
// args.
func (m *VM) Call(fn heap.Value, args ...heap.Value) (heap.Value, error) {
	return m.drive(Result{Call: &Call{Callee: fn, Args: args}}, nil)
}

func (m *VM) drive(res Result, err error) (heap.Value, error) {
	stop := len(m.frames)
	done, v, err := m.complete(res, err, true)
	if err != nil {
		return heap.None, err
	}
	if done {
		return v, nil
	}
	return m.run(stop)
}

// complete routes a dispatch outcome. Values go to the host (done) or onto
// the current frame's stack; calls are invoked until a frame is pushed or
// a value is produced.
func (m *VM) complete(res Result, err error, toHost bool) (bool, heap.Value, error) {
	for {
		if err != nil {
			return false, heap.None, err
		}
		if res.Call == nil {
			if toHost {
				return true, res.Value, nil
			}
			return false, heap.None, m.push(res.Value)
		}
		var pushed bool
		res, pushed, err = m.invoke(res.Call, toHost)
		if pushed {
			return false, heap.None, nil
		}
	}
}

// invoke runs c. Native callees run inline and their result is fed to the
// continuation; bytecode callees get a new frame and pushed is true.
func (m *VM) invoke(c *Call, toHost bool) (res Result, pushed bool, err error) {
	h := m.heap
	callee, args := c.Callee, c.Args
	fail := func(err error) (Result, bool, error) {
		h.Release(callee)
		h.ReleaseAll(args)
		if c.Resume != nil {
			c.Resume.Abandon(h)
		}
		return Result{}, false, err
	}

	if bm, ok := heap.Cast[*object.BoundMethod](h, callee); ok {
		args = append([]heap.Value{h.Clone(bm.Self)}, args...)
		fn := h.Clone(bm.Fn)
		h.Release(callee)
		callee = fn
	}

	switch p := h.Get(callee).(type) {
	case *object.Native:
		v, err := p.Fn(h, args)
		h.ReleaseAll(args)
		h.Release(callee)
		if err != nil {
			if c.Resume != nil {
				c.Resume.Abandon(h)
			}
			return Result{}, false, err
		}
		if c.Resume == nil {
			return Result{Value: v}, false, nil
		}
		res, err := c.Resume.Resume(m, v)
		return res, false, err

	case *object.Function:
		if len(args) != p.NumParams {
			return fail(exc.TypeErrorf("%s() takes %d positional argument(s) but %d were given", p.Name, p.NumParams, len(args)))
		}
		if len(m.frames) >= m.maxFrames {
			return fail(exc.RecursionErrorf("maximum recursion depth exceeded"))
		}
		locals := make([]heap.Value, max(p.NumLocals, len(args)))
		copy(locals, args)
		for i := len(args); i < len(locals); i++ {
			locals[i] = heap.None
		}
		f := NewFrame(callee, p, locals, m.sp)
		f.cont = c.Resume
		f.toHost = toHost
		m.pushFrame(f)
		log.Debugf("call %s (depth %d)", p.Name, len(m.frames))
		return Result{}, true, nil
	}
	return fail(exc.TypeErrorf("'%s' object is not callable", semantics.TypeName(h, callee)))
}

// returnFrom pops the current frame and feeds ret to its continuation.
func (m *VM) returnFrom(ret heap.Value) (bool, heap.Value, error) {
	f := m.popFrame()
	if f.cont == nil {
		return m.complete(Result{Value: ret}, nil, f.toHost)
	}
	res, err := f.cont.Resume(m, ret)
	return m.complete(res, err, f.toHost)
}

// unwind pops every frame above stop, abandoning pending continuations.
// Engine failures that crossed a bytecode frame surface as RuntimeError.
func (m *VM) unwind(stop int, err error) error {
	crossed := false
	for len(m.frames) > stop {
		f := m.popFrame()
		if f.cont != nil {
			f.cont.Abandon(m.heap)
		}
		crossed = true
	}
	if crossed {
		return m.surface(err)
	}
	return err
}

func (m *VM) run(stop int) (heap.Value, error) {
	h := m.heap
	for len(m.frames) > stop {
		frame := m.currentFrame()
		ins := frame.Instructions()
		if frame.ip+1 >= len(ins) {
			done, v, err := m.returnFrom(heap.None)
			if err != nil {
				return heap.None, m.unwind(stop, err)
			}
			if done {
				return v, nil
			}
			continue
		}
		frame.ip++
		op := code.Opcode(ins[frame.ip])

		var (
			done bool
			v    heap.Value
			err  error
		)
		switch op {
		case code.OpConstant:
			idx := int(code.ReadUint16(ins[frame.ip+1:]))
			frame.ip += 2
			err = m.push(h.Clone(frame.fn.Constants[idx]))

		case code.OpPop:
			h.Release(m.pop())

		case code.OpGetLocal:
			idx := int(ins[frame.ip+1])
			frame.ip++
			err = m.push(h.Clone(frame.locals[idx]))

		case code.OpSetLocal:
			idx := int(ins[frame.ip+1])
			frame.ip++
			old := frame.locals[idx]
			frame.locals[idx] = m.pop()
			h.Release(old)

		case code.OpGetMember:
			name := m.memberName(frame, ins)
			obj := m.pop()
			var attr heap.Value
			attr, err = semantics.GetAttr(h, obj, name)
			h.Release(obj)
			if err == nil {
				err = m.push(attr)
			}

		case code.OpSetMember:
			name := m.memberName(frame, ins)
			val := m.pop()
			obj := m.pop()
			err = object.SetAttr(h, obj, name, val)
			h.Release(obj)

		case code.OpBinary, code.OpInplace:
			bop := Op(ins[frame.ip+1])
			frame.ip++
			rhs := m.pop()
			lhs := m.pop()
			if !bop.Valid() {
				h.Release(lhs)
				h.Release(rhs)
				err = exc.Corruptedf("invalid operator %d", bop)
				break
			}
			var res Result
			if op == code.OpBinary {
				res, err = m.Binary(bop, lhs, rhs)
			} else {
				res, err = m.Inplace(bop, lhs, rhs)
			}
			done, v, err = m.complete(res, err, false)

		case code.OpCall:
			n := int(ins[frame.ip+1])
			frame.ip++
			args := make([]heap.Value, n)
			for i := n - 1; i >= 0; i-- {
				args[i] = m.pop()
			}
			callee := m.pop()
			done, v, err = m.complete(Result{Call: &Call{Callee: callee, Args: args}}, nil, false)

		case code.OpReturnValue:
			done, v, err = m.returnFrom(m.pop())

		case code.OpReturn:
			done, v, err = m.returnFrom(heap.None)

		default:
			err = exc.Corruptedf("unknown opcode %d at %d in %s", op, frame.ip, frame.fn.Name)
		}

		if err != nil {
			return heap.None, m.unwind(stop, err)
		}
		if done {
			return v, nil
		}
	}
	return heap.None, exc.Corruptedf("frame stack unwound below %d without a result", stop)
}

func (m *VM) memberName(frame *Frame, ins code.Instructions) string {
	idx := int(code.ReadUint16(ins[frame.ip+1:]))
	frame.ip += 2
	name, _ := object.Text(m.heap, frame.fn.Constants[idx])
	return name
}
