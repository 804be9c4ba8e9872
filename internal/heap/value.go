package heap

import (
	"math"
	"strconv"
)

// Kind identifies the variant stored in a Value.
type Kind uint8

const (
	KindNone Kind = iota
	KindNotImplemented
	KindBool
	KindInt
	KindFloat
	KindStr   // interned string id
	KindBytes // interned bytes id
	KindRef   // owned handle into the arena
)

// Handle is a stable index into the arena. Zero is never a valid handle.
type Handle uint32

// Value is a small tagged union. Every variant except KindRef is immediate
// and needs no cleanup. A KindRef value owns one unit of its slot's
// reference count: copying it requires Heap.Clone and every holder must
// eventually call Heap.Release.
type Value struct {
	kind Kind
	bits uint64
}

var (
	None           = Value{kind: KindNone}
	NotImplemented = Value{kind: KindNotImplemented}
	True           = Value{kind: KindBool, bits: 1}
	False          = Value{kind: KindBool}
)

func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

func Int(n int64) Value {
	return Value{kind: KindInt, bits: uint64(n)}
}

func Float(f float64) Value {
	return Value{kind: KindFloat, bits: math.Float64bits(f)}
}

func ref(h Handle) Value {
	return Value{kind: KindRef, bits: uint64(h)}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNone() bool           { return v.kind == KindNone }
func (v Value) IsNotImplemented() bool { return v.kind == KindNotImplemented }
func (v Value) IsBool() bool           { return v.kind == KindBool }
func (v Value) IsInt() bool            { return v.kind == KindInt }
func (v Value) IsFloat() bool          { return v.kind == KindFloat }
func (v Value) IsStr() bool            { return v.kind == KindStr }
func (v Value) IsBytes() bool          { return v.kind == KindBytes }
func (v Value) IsRef() bool            { return v.kind == KindRef }

func (v Value) AsBool() bool      { return v.bits == 1 }
func (v Value) AsInt() int64      { return int64(v.bits) }
func (v Value) AsFloat() float64  { return math.Float64frombits(v.bits) }
func (v Value) InternID() uint32  { return uint32(v.bits) }

// Handle returns the slot a KindRef value refers to, or zero.
func (v Value) Handle() Handle {
	if v.kind != KindRef {
		return 0
	}
	return Handle(v.bits)
}

// Same reports identity: equal immediates or the same slot.
func (v Value) Same(o Value) bool {
	return v.kind == o.kind && v.bits == o.bits
}

// String is a debugging rendering. Use semantics.Repr for language-level
// text.
func (v Value) String() string {
	switch v.kind {
	case KindNone:
		return "None"
	case KindNotImplemented:
		return "NotImplemented"
	case KindBool:
		if v.AsBool() {
			return "True"
		}
		return "False"
	case KindInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case KindFloat:
		return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64)
	case KindStr:
		return "str#" + strconv.FormatUint(uint64(v.InternID()), 10)
	case KindBytes:
		return "bytes#" + strconv.FormatUint(uint64(v.InternID()), 10)
	case KindRef:
		return "ref#" + strconv.FormatUint(v.bits, 10)
	default:
		return "<?>"
	}
}
