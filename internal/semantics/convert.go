package semantics

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"pyarena/internal/exc"
	"pyarena/internal/heap"
	"pyarena/internal/object"
)

// ToInt is the int() conversion with an optional base. A base other than
// 10 is only accepted for text.
func ToInt(h *heap.Heap, v heap.Value, base int, explicitBase bool) (heap.Value, error) {
	if text, ok := textOf(h, v); ok {
		return ParseInt(h, text, base)
	}
	if explicitBase {
		return heap.None, exc.TypeErrorf("int() can't convert non-string with explicit base")
	}
	n := numberOf(h, v)
	switch n.kind {
	case smallInt:
		return heap.Int(n.i), nil
	case bigInt:
		return h.Clone(v), nil
	case floatNum:
		switch {
		case math.IsInf(n.f, 0):
			return heap.None, exc.OverflowErrorf("cannot convert float infinity to integer")
		case math.IsNaN(n.f):
			return heap.None, exc.ValueErrorf("cannot convert float NaN to integer")
		}
		b, _ := big.NewFloat(math.Trunc(n.f)).Int(nil)
		return NewInt(h, b)
	}
	return heap.None, exc.TypeErrorf("int() argument must be a string, a bytes-like object or a real number, not '%s'", TypeName(h, v))
}

// ToFloat is the float() conversion.
func ToFloat(h *heap.Heap, v heap.Value) (heap.Value, error) {
	if text, ok := textOf(h, v); ok {
		f, err := ParseFloat(text)
		if err != nil {
			return heap.None, err
		}
		return heap.Float(f), nil
	}
	n := numberOf(h, v)
	if n.kind == notNumber {
		return heap.None, exc.TypeErrorf("float() argument must be a string or a real number, not '%s'", TypeName(h, v))
	}
	f, err := n.float()
	if err != nil {
		return heap.None, err
	}
	return heap.Float(f), nil
}

func textOf(h *heap.Heap, v heap.Value) (string, bool) {
	if s, ok := object.Text(h, v); ok {
		return s, true
	}
	if b, ok := object.BytesOf(h, v); ok {
		return string(b), true
	}
	return "", false
}

// ParseInt parses text the way int(text, base) does: surrounding
// whitespace, a sign, a base prefix when it matches base (or base is 0) and
// single underscores between digits.
func ParseInt(h *heap.Heap, text string, base int) (heap.Value, error) {
	if base != 0 && (base < 2 || base > 36) {
		return heap.None, exc.ValueErrorf("int() base must be >= 2 and <= 36, or 0")
	}
	invalid := func() (heap.Value, error) {
		return heap.None, exc.ValueErrorf("invalid literal for int() with base %d: %s", base, quoteStr(text))
	}

	s := strings.TrimSpace(text)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	digits, b := s, base
	if len(s) >= 2 && s[0] == '0' {
		prefixBase := 0
		switch s[1] {
		case 'x', 'X':
			prefixBase = 16
		case 'o', 'O':
			prefixBase = 8
		case 'b', 'B':
			prefixBase = 2
		}
		if prefixBase != 0 && (base == 0 || base == prefixBase) {
			digits, b = s[2:], prefixBase
			// an underscore may follow the prefix directly
			if strings.HasPrefix(digits, "_") {
				digits = digits[1:]
				if digits == "" || digits[0] == '_' {
					return invalid()
				}
			}
		}
	}
	if b == 0 {
		b = 10
		if err := validateDigits(digits, 10); err == nil && len(digits) > 1 && digits[0] == '0' {
			// base 0 forbids leading zeros on non-zero decimals
			if strings.Trim(stripUnderscores(digits), "0") != "" {
				return invalid()
			}
		}
	}
	if err := validateDigits(digits, b); err != nil {
		return invalid()
	}

	normalized := stripUnderscores(digits)
	if n, err := strconv.ParseInt(normalized, b, 64); err == nil {
		if neg {
			n = -n
		}
		return heap.Int(n), nil
	}
	out, ok := new(big.Int).SetString(normalized, b)
	if !ok {
		return invalid()
	}
	if out.BitLen() > maxIntBits {
		return heap.None, exc.ValueErrorf("exceeds the limit for integer string conversion")
	}
	if neg {
		out.Neg(out)
	}
	return NewInt(h, out)
}

// ParseFloat parses text the way float(text) does.
func ParseFloat(text string) (float64, error) {
	invalid := exc.ValueErrorf("could not convert string to float: %s", quoteStr(text))

	s := strings.TrimSpace(text)
	body := s
	if body != "" && (body[0] == '+' || body[0] == '-') {
		body = body[1:]
	}
	switch strings.ToLower(body) {
	case "inf", "infinity":
		if strings.HasPrefix(s, "-") {
			return math.Inf(-1), nil
		}
		return math.Inf(1), nil
	case "nan":
		return math.NaN(), nil
	}

	mantissa, exp := body, ""
	if idx := strings.IndexAny(body, "eE"); idx >= 0 {
		mantissa, exp = body[:idx], body[idx+1:]
		if exp != "" && (exp[0] == '+' || exp[0] == '-') {
			exp = exp[1:]
		}
		if validateDigits(exp, 10) != nil {
			return 0, invalid
		}
	}
	intPart, frac, hasPoint := strings.Cut(mantissa, ".")
	if intPart == "" && frac == "" {
		return 0, invalid
	}
	if intPart != "" && validateDigits(intPart, 10) != nil {
		return 0, invalid
	}
	if hasPoint && frac != "" && validateDigits(frac, 10) != nil {
		return 0, invalid
	}

	f, err := strconv.ParseFloat(stripUnderscores(s), 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			// overflow rounds to infinity and underflow to zero
			return f, nil
		}
		return 0, invalid
	}
	return f, nil
}

// validateDigits accepts digits of base with single underscores between
// them.
func validateDigits(s string, base int) error {
	if s == "" {
		return exc.ValueErrorf("digits required")
	}
	prevUnderscore := false
	seenDigit := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '_' {
			if !seenDigit || prevUnderscore {
				return exc.ValueErrorf("underscores must separate digits")
			}
			prevUnderscore = true
			continue
		}
		if !isDigitForBase(ch, base) {
			return exc.ValueErrorf("invalid digit %q for base %d", ch, base)
		}
		seenDigit = true
		prevUnderscore = false
	}
	if prevUnderscore {
		return exc.ValueErrorf("underscores must separate digits")
	}
	return nil
}

func isDigitForBase(ch byte, base int) bool {
	var d int
	switch {
	case ch >= '0' && ch <= '9':
		d = int(ch - '0')
	case ch >= 'a' && ch <= 'z':
		d = int(ch-'a') + 10
	case ch >= 'A' && ch <= 'Z':
		d = int(ch-'A') + 10
	default:
		return false
	}
	return d < base
}

func stripUnderscores(s string) string {
	if strings.IndexByte(s, '_') == -1 {
		return s
	}
	return strings.ReplaceAll(s, "_", "")
}
