package object

import (
	"math/big"

	"pyarena/internal/code"
	"pyarena/internal/exc"
	"pyarena/internal/heap"
)

const (
	STR_KIND       = "str"
	BYTES_KIND     = "bytes"
	LIST_KIND      = "list"
	TUPLE_KIND     = "tuple"
	DICT_KIND      = "dict"
	SET_KIND       = "set"
	COUNTER_KIND   = "Counter"
	BIGINT_KIND    = "int"
	CLASS_KIND     = "type"
	INSTANCE_KIND  = "instance"
	FUNCTION_KIND  = "function"
	NATIVE_KIND    = "builtin_function_or_method"
	METHOD_KIND    = "method"
	EXCEPTION_KIND = "exception"
	MODULE_KIND    = "module"
)

type Str struct{ S string }

func (*Str) Kind() string           { return STR_KIND }
func (s *Str) Cost() int64          { return CostStringBytes(len(s.S)) }
func (*Str) Refs(func(heap.Value))  {}

type Bytes struct{ B []byte }

func (*Bytes) Kind() string          { return BYTES_KIND }
func (b *Bytes) Cost() int64         { return CostStringBytes(len(b.B)) }
func (*Bytes) Refs(func(heap.Value)) {}

type List struct{ Items []heap.Value }

func (*List) Kind() string  { return LIST_KIND }
func (l *List) Cost() int64 { return CostArray(len(l.Items)) }
func (l *List) Refs(visit func(heap.Value)) {
	for _, v := range l.Items {
		visit(v)
	}
}

type Tuple struct{ Items []heap.Value }

func (*Tuple) Kind() string  { return TUPLE_KIND }
func (t *Tuple) Cost() int64 { return CostTuple(len(t.Items)) }
func (t *Tuple) Refs(visit func(heap.Value)) {
	for _, v := range t.Items {
		visit(v)
	}
}

// BigInt holds integers that do not fit in an int64. Arithmetic
// normalises results that fit back to the immediate form.
type BigInt struct{ V *big.Int }

func (*BigInt) Kind() string          { return BIGINT_KIND }
func (b *BigInt) Cost() int64         { return CostBigInt(b.V.BitLen()) }
func (*BigInt) Refs(func(heap.Value)) {}

// Class is a user-defined type. Attrs holds methods and class attributes.
type Class struct {
	Name  string
	Bases []heap.Value
	Attrs map[string]heap.Value
}

func (*Class) Kind() string  { return CLASS_KIND }
func (c *Class) Cost() int64 { return CostClass(len(c.Bases), len(c.Attrs)) }
func (c *Class) Refs(visit func(heap.Value)) {
	for _, b := range c.Bases {
		visit(b)
	}
	for _, v := range c.Attrs {
		visit(v)
	}
}

type Instance struct {
	Class  heap.Value
	Fields map[string]heap.Value
}

func (*Instance) Kind() string  { return INSTANCE_KIND }
func (i *Instance) Cost() int64 { return CostInstance(len(i.Fields)) }
func (i *Instance) Refs(visit func(heap.Value)) {
	visit(i.Class)
	for _, v := range i.Fields {
		visit(v)
	}
}

// Function is a bytecode function. Parameters occupy the first NumParams
// locals.
type Function struct {
	Name         string
	Instructions code.Instructions
	Constants    []heap.Value
	NumLocals    int
	NumParams    int
}

func (*Function) Kind() string  { return FUNCTION_KIND }
func (f *Function) Cost() int64 { return CostFunction(len(f.Constants)) }
func (f *Function) Refs(visit func(heap.Value)) {
	for _, v := range f.Constants {
		visit(v)
	}
}

// NativeFunc borrows its arguments and returns an owned result.
type NativeFunc func(h *heap.Heap, args []heap.Value) (heap.Value, error)

type Native struct {
	Name string
	Fn   NativeFunc
}

func (*Native) Kind() string          { return NATIVE_KIND }
func (*Native) Cost() int64           { return CostNative() }
func (*Native) Refs(func(heap.Value)) {}

type BoundMethod struct {
	Self heap.Value
	Fn   heap.Value
}

func (*BoundMethod) Kind() string  { return METHOD_KIND }
func (*BoundMethod) Cost() int64   { return CostBoundMethod() }
func (m *BoundMethod) Refs(visit func(heap.Value)) {
	visit(m.Self)
	visit(m.Fn)
}

// Exception is a raised exception materialised as an object.
type Exception struct {
	Class exc.Class
	Args  []heap.Value
}

func (*Exception) Kind() string  { return EXCEPTION_KIND }
func (e *Exception) Cost() int64 { return CostError() + int64(len(e.Args))*memPtrSize }
func (e *Exception) Refs(visit func(heap.Value)) {
	for _, v := range e.Args {
		visit(v)
	}
}

type Module struct {
	Name    string
	Members map[string]heap.Value
}

func (*Module) Kind() string  { return MODULE_KIND }
func (m *Module) Cost() int64 { return CostModule(len(m.Members)) }
func (m *Module) Refs(visit func(heap.Value)) {
	for _, v := range m.Members {
		visit(v)
	}
}
