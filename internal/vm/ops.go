package vm

import (
	"fmt"

	"pyarena/internal/code"
	"pyarena/internal/heap"
	"pyarena/internal/object"
	"pyarena/internal/semantics"
)

// Op identifies a binary operator. The value is the operand of OpBinary
// and OpInplace.
type Op uint8

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpTrueDiv
	OpFloorDiv
	OpMod
	OpPow
	OpMatMul
	OpLShift
	OpRShift
	OpAnd
	OpOr
	OpXor

	numOps
)

type opInfo struct {
	symbol    string
	display   string
	forward   string
	reflected string
	inplace   string
	bitwise   bool
}

var opInfos = [numOps]opInfo{
	OpAdd:      {"+", "+", "__add__", "__radd__", "__iadd__", false},
	OpSub:      {"-", "-", "__sub__", "__rsub__", "__isub__", false},
	OpMul:      {"*", "*", "__mul__", "__rmul__", "__imul__", false},
	OpTrueDiv:  {"/", "/", "__truediv__", "__rtruediv__", "__itruediv__", false},
	OpFloorDiv: {"//", "//", "__floordiv__", "__rfloordiv__", "__ifloordiv__", false},
	OpMod:      {"%", "%", "__mod__", "__rmod__", "__imod__", false},
	OpPow:      {"**", "** or pow()", "__pow__", "__rpow__", "__ipow__", false},
	OpMatMul:   {"@", "@", "__matmul__", "__rmatmul__", "__imatmul__", false},
	OpLShift:   {"<<", "<<", "__lshift__", "__rlshift__", "__ilshift__", true},
	OpRShift:   {">>", ">>", "__rshift__", "__rrshift__", "__irshift__", true},
	OpAnd:      {"&", "&", "__and__", "__rand__", "__iand__", true},
	OpOr:       {"|", "|", "__or__", "__ror__", "__ior__", true},
	OpXor:      {"^", "^", "__xor__", "__rxor__", "__ixor__", true},
}

// natives holds the native tier per operator. Matrix multiplication has
// none: no built-in type defines it.
var natives = [numOps]semantics.Binary{
	OpAdd:      semantics.Add,
	OpSub:      semantics.Sub,
	OpMul:      semantics.Mul,
	OpTrueDiv:  semantics.TrueDiv,
	OpFloorDiv: semantics.FloorDiv,
	OpMod:      semantics.Mod,
	OpPow:      semantics.Pow,
	OpLShift:   semantics.LShift,
	OpRShift:   semantics.RShift,
	OpAnd:      semantics.And,
	OpOr:       semantics.Or,
	OpXor:      semantics.Xor,
}

// inplaceNatives mutate the left operand directly for specific container
// pairings.
var inplaceNatives = [numOps]semantics.Binary{
	OpAdd: semantics.InplaceAdd,
	OpSub: semantics.InplaceSub,
	OpMul: semantics.InplaceMul,
	OpAnd: semantics.InplaceAnd,
	OpOr:  semantics.InplaceOr,
	OpXor: semantics.InplaceXor,
}

func (op Op) Valid() bool { return op < numOps }

func (op Op) String() string {
	if !op.Valid() {
		return fmt.Sprintf("Op(%d)", uint8(op))
	}
	return opInfos[op].symbol
}

// Display is the operator text used in error messages.
func (op Op) Display(inplace bool) string {
	if inplace {
		return opInfos[op].symbol + "="
	}
	return opInfos[op].display
}

// OpBySymbol maps source-level operator text such as "**" to its Op.
func OpBySymbol(sym string) (Op, bool) {
	for i, info := range opInfos {
		if info.symbol == sym {
			return Op(i), true
		}
	}
	return 0, false
}

// Disassemble renders a function body with operator symbols, constants
// and member names resolved.
func Disassemble(h *heap.Heap, fn *object.Function) string {
	return code.Disassemble(fn.Instructions, func(op code.Opcode, operand int) string {
		switch op {
		case code.OpBinary:
			return Op(operand).String()
		case code.OpInplace:
			return Op(operand).String() + "="
		case code.OpConstant, code.OpGetMember, code.OpSetMember:
			if operand < len(fn.Constants) {
				return semantics.Repr(h, fn.Constants[operand])
			}
		}
		return ""
	})
}
