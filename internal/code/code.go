package code

import "encoding/binary"

type Opcode byte

const (
	OpConstant Opcode = iota // push constants[operand]
	OpPop

	OpGetLocal // operand: local slot (1 byte)
	OpSetLocal // operand: local slot (1 byte)

	OpGetMember // operand: nameConst (2 bytes)
	OpSetMember // operand: nameConst (2 bytes); pops value, then object

	OpBinary  // operand: operator (1 byte)
	OpInplace // operand: operator (1 byte)

	OpCall // operand: argument count (1 byte)
	OpReturnValue
	OpReturn // returns None
)

type Instructions []byte

type Definition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*Definition{
	OpConstant:    {"OpConstant", []int{2}},
	OpPop:         {"OpPop", nil},
	OpGetLocal:    {"OpGetLocal", []int{1}},
	OpSetLocal:    {"OpSetLocal", []int{1}},
	OpGetMember:   {"OpGetMember", []int{2}},
	OpSetMember:   {"OpSetMember", []int{2}},
	OpBinary:      {"OpBinary", []int{1}},
	OpInplace:     {"OpInplace", []int{1}},
	OpCall:        {"OpCall", []int{1}},
	OpReturnValue: {"OpReturnValue", nil},
	OpReturn:      {"OpReturn", nil},
}

func Lookup(op Opcode) (*Definition, bool) {
	def, ok := definitions[op]
	return def, ok
}

func Make(op Opcode, operands ...int) Instructions {
	def, ok := definitions[op]
	if !ok {
		return nil
	}
	insLen := 1
	for _, w := range def.OperandWidths {
		insLen += w
	}

	ins := make([]byte, insLen)
	ins[0] = byte(op)

	offset := 1
	for i, o := range operands {
		w := def.OperandWidths[i]
		switch w {
		case 1:
			ins[offset] = byte(o)
		case 2:
			binary.BigEndian.PutUint16(ins[offset:], uint16(o))
		}
		offset += w
	}
	return ins
}

// Concat joins instruction sequences into one body.
func Concat(parts ...Instructions) Instructions {
	var out Instructions
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func ReadUint16(ins Instructions) uint16 {
	return binary.BigEndian.Uint16(ins)
}
