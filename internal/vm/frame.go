package vm

import (
	"pyarena/internal/heap"
	"pyarena/internal/object"
)

// Frame is one activation of a bytecode function. cont receives the
// function's return value; toHost marks frames whose final result is
// handed back to the host instead of the caller frame's stack.
type Frame struct {
	fnVal       heap.Value
	fn          *object.Function
	locals      []heap.Value
	ip          int
	basePointer int
	cont        Resumer
	toHost      bool
}

func NewFrame(fnVal heap.Value, fn *object.Function, locals []heap.Value, basePointer int) *Frame {
	return &Frame{fnVal: fnVal, fn: fn, locals: locals, ip: -1, basePointer: basePointer}
}

func (f *Frame) Instructions() []byte { return f.fn.Instructions }
