package code

import "testing"

func TestMake(t *testing.T) {
	tests := []struct {
		op       Opcode
		operands []int
		expected []byte
	}{
		{OpConstant, []int{65534}, []byte{byte(OpConstant), 255, 254}},
		{OpGetLocal, []int{255}, []byte{byte(OpGetLocal), 255}},
		{OpBinary, []int{3}, []byte{byte(OpBinary), 3}},
		{OpReturnValue, nil, []byte{byte(OpReturnValue)}},
	}
	for i, tt := range tests {
		ins := Make(tt.op, tt.operands...)
		if len(ins) != len(tt.expected) {
			t.Fatalf("tests[%d] wrong length: want %d, got %d", i, len(tt.expected), len(ins))
		}
		for j, b := range tt.expected {
			if ins[j] != b {
				t.Fatalf("tests[%d] wrong byte at %d: want %d, got %d", i, j, b, ins[j])
			}
		}
	}
}

func TestInstructionsString(t *testing.T) {
	ins := Concat(
		Make(OpGetLocal, 1),
		Make(OpConstant, 2),
		Make(OpBinary, 0),
		Make(OpCall, 2),
		Make(OpReturnValue),
	)
	expected := `0000 OpGetLocal 1
0002 OpConstant 2
0005 OpBinary 0
0007 OpCall 2
0009 OpReturnValue
`
	if ins.String() != expected {
		t.Fatalf("instructions wrongly formatted.\nwant=%q\ngot=%q", expected, ins.String())
	}
}

func TestReadOperands(t *testing.T) {
	tests := []struct {
		op        Opcode
		operands  []int
		bytesRead int
	}{
		{OpConstant, []int{65535}, 2},
		{OpSetMember, []int{7}, 2},
		{OpInplace, []int{12}, 1},
	}
	for i, tt := range tests {
		ins := Make(tt.op, tt.operands...)
		def, ok := Lookup(tt.op)
		if !ok {
			t.Fatalf("tests[%d] definition not found", i)
		}
		got, n := ReadOperands(def, ins[1:])
		if n != tt.bytesRead {
			t.Fatalf("tests[%d] n wrong: want %d, got %d", i, tt.bytesRead, n)
		}
		for j, want := range tt.operands {
			if got[j] != want {
				t.Fatalf("tests[%d] operand wrong: want %d, got %d", i, want, got[j])
			}
		}
	}
}

func TestDisassembleAnnotatedAndTruncated(t *testing.T) {
	ins := Concat(Make(OpInplace, 4), Instructions{byte(OpConstant), 0})
	got := Disassemble(ins, func(op Opcode, operand int) string {
		if op == OpInplace {
			return "op4"
		}
		return ""
	})
	expected := "0000 OpInplace 4 (op4)\n0002 OpConstant TRUNCATED\n"
	if got != expected {
		t.Fatalf("want=%q\ngot=%q", expected, got)
	}
}
