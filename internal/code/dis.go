package code

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

func ReadOperands(def *Definition, ins Instructions) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0

	for i, w := range def.OperandWidths {
		switch w {
		case 1:
			operands[i] = int(ins[offset])
		case 2:
			operands[i] = int(binary.BigEndian.Uint16(ins[offset:]))
		default:
			panic("unsupported operand width")
		}
		offset += w
	}
	return operands, offset
}

// Annotator renders a comment for an instruction's first operand, such as
// the operator behind OpBinary or the constant behind OpConstant. An empty
// result adds nothing.
type Annotator func(op Opcode, operand int) string

func (ins Instructions) String() string {
	return Disassemble(ins, nil)
}

// Disassemble lists ins one instruction per line.
func Disassemble(ins Instructions, annotate Annotator) string {
	var out bytes.Buffer

	i := 0
	for i < len(ins) {
		op := Opcode(ins[i])
		def, ok := Lookup(op)
		if !ok {
			fmt.Fprintf(&out, "%04d UNKNOWN_OPCODE %d\n", i, op)
			i++
			continue
		}
		if i+1+operandBytes(def) > len(ins) {
			fmt.Fprintf(&out, "%04d %s TRUNCATED\n", i, def.Name)
			break
		}

		operands, read := ReadOperands(def, Instructions(ins[i+1:]))

		fmt.Fprintf(&out, "%04d %s", i, def.Name)
		for _, o := range operands {
			fmt.Fprintf(&out, " %d", o)
		}
		if annotate != nil && len(operands) > 0 {
			if note := annotate(op, operands[0]); note != "" {
				fmt.Fprintf(&out, " (%s)", note)
			}
		}
		out.WriteByte('\n')

		i += 1 + read
	}

	return out.String()
}

func operandBytes(def *Definition) int {
	n := 0
	for _, w := range def.OperandWidths {
		n += w
	}
	return n
}
