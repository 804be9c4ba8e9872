package semantics

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"pyarena/internal/heap"
	"pyarena/internal/object"
)

// Str is the str() conversion. Text is returned as is; exceptions render
// their message.
func Str(h *heap.Heap, v heap.Value) string {
	if s, ok := object.Text(h, v); ok {
		return s
	}
	if e, ok := heap.Cast[*object.Exception](h, v); ok {
		switch len(e.Args) {
		case 0:
			return ""
		case 1:
			return Str(h, e.Args[0])
		}
		return reprItems(h, "(", ")", e.Args, map[heap.Handle]bool{})
	}
	return Repr(h, v)
}

// Repr is the repr() conversion. Containers that reach themselves render
// the inner occurrence as "[...]" or "{...}".
func Repr(h *heap.Heap, v heap.Value) string {
	return repr(h, v, map[heap.Handle]bool{})
}

func repr(h *heap.Heap, v heap.Value, active map[heap.Handle]bool) string {
	switch v.Kind() {
	case heap.KindNone:
		return "None"
	case heap.KindNotImplemented:
		return "NotImplemented"
	case heap.KindBool:
		if v.AsBool() {
			return "True"
		}
		return "False"
	case heap.KindInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case heap.KindFloat:
		return FormatFloat(v.AsFloat())
	case heap.KindStr:
		s, _ := h.Interns().Text(v)
		return quoteStr(s)
	case heap.KindBytes:
		s, _ := h.Interns().Text(v)
		return quoteBytes([]byte(s))
	}

	hd := v.Handle()
	switch p := h.Get(v).(type) {
	case *object.Str:
		return quoteStr(p.S)
	case *object.Bytes:
		return quoteBytes(p.B)
	case *object.BigInt:
		return p.V.String()
	case *object.List:
		if active[hd] {
			return "[...]"
		}
		active[hd] = true
		defer delete(active, hd)
		return reprItems(h, "[", "]", p.Items, active)
	case *object.Tuple:
		if active[hd] {
			return "(...)"
		}
		active[hd] = true
		defer delete(active, hd)
		if len(p.Items) == 1 {
			return "(" + repr(h, p.Items[0], active) + ",)"
		}
		return reprItems(h, "(", ")", p.Items, active)
	case *object.Dict:
		if active[hd] {
			return "{...}"
		}
		active[hd] = true
		defer delete(active, hd)
		return reprEntries(h, p.Items(), active)
	case *object.Counter:
		if active[hd] {
			return "Counter(...)"
		}
		if p.Len() == 0 {
			return "Counter()"
		}
		active[hd] = true
		defer delete(active, hd)
		return "Counter(" + reprEntries(h, object.MostCommon(p), active) + ")"
	case *object.Set:
		if active[hd] {
			return "set(...)"
		}
		if p.Len() == 0 {
			return "set()"
		}
		active[hd] = true
		defer delete(active, hd)
		_, members := p.Members()
		return reprItems(h, "{", "}", members, active)
	case *object.Class:
		return fmt.Sprintf("<class '%s'>", p.Name)
	case *object.Instance:
		return fmt.Sprintf("<%s object at %#x>", TypeName(h, v), hd)
	case *object.Function:
		return fmt.Sprintf("<function %s>", p.Name)
	case *object.Native:
		return fmt.Sprintf("<built-in function %s>", p.Name)
	case *object.BoundMethod:
		return fmt.Sprintf("<bound method %s of %s>", calleeName(h, p.Fn), repr(h, p.Self, active))
	case *object.Exception:
		return p.Class.String() + reprItems(h, "(", ")", p.Args, active)
	case *object.Module:
		return fmt.Sprintf("<module '%s'>", p.Name)
	default:
		return fmt.Sprintf("<%s object at %#x>", p.Kind(), hd)
	}
}

func calleeName(h *heap.Heap, fn heap.Value) string {
	switch p := h.Get(fn).(type) {
	case *object.Function:
		return p.Name
	case *object.Native:
		return p.Name
	}
	return TypeName(h, fn)
}

func reprItems(h *heap.Heap, lb, rb string, items []heap.Value, active map[heap.Handle]bool) string {
	var b strings.Builder
	b.WriteString(lb)
	for i, it := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(repr(h, it, active))
	}
	b.WriteString(rb)
	return b.String()
}

func reprEntries(h *heap.Heap, entries []object.Entry, active map[heap.Handle]bool) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(repr(h, e.Key, active))
		b.WriteString(": ")
		b.WriteString(repr(h, e.Value, active))
	}
	b.WriteByte('}')
	return b.String()
}

// FormatFloat renders f the way repr does: shortest round-trip digits,
// positional between 1e-4 and 1e16, always marked as a float.
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	if f == 0 {
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	e := strconv.FormatFloat(f, 'e', -1, 64)
	exp, _ := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return e
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func quoteStr(s string) string {
	q := byte('\'')
	if strings.IndexByte(s, '\'') >= 0 && strings.IndexByte(s, '"') < 0 {
		q = '"'
	}
	var b strings.Builder
	b.WriteByte(q)
	for _, r := range s {
		switch {
		case r == rune(q) || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		case !unicode.IsPrint(r) && r != ' ':
			if r > 0xffff {
				fmt.Fprintf(&b, `\U%08x`, r)
			} else if r > 0xff {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				fmt.Fprintf(&b, `\x%02x`, r)
			}
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(q)
	return b.String()
}

func quoteBytes(bs []byte) string {
	q := byte('\'')
	if strings.IndexByte(string(bs), '\'') >= 0 && strings.IndexByte(string(bs), '"') < 0 {
		q = '"'
	}
	var b strings.Builder
	b.WriteString("b")
	b.WriteByte(q)
	for _, c := range bs {
		switch {
		case c == q || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&b, `\x%02x`, c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(q)
	return b.String()
}
