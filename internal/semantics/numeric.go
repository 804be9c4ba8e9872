package semantics

import (
	"math"
	"math/big"

	"github.com/pkg/errors"

	"pyarena/internal/exc"
	"pyarena/internal/heap"
	"pyarena/internal/object"
)

// maxIntBits caps the size of integers produced by pow and left shift.
// Results under the cap are still charged to the heap's policy first.
const maxIntBits = 1 << 24

type numKind uint8

const (
	notNumber numKind = iota
	smallInt
	bigInt
	floatNum
)

// number is a read-only view of a numeric operand.
type number struct {
	kind   numKind
	i      int64
	b      *big.Int
	f      float64
	isBool bool
}

func numberOf(h *heap.Heap, v heap.Value) number {
	switch v.Kind() {
	case heap.KindBool:
		n := number{kind: smallInt, isBool: true}
		if v.AsBool() {
			n.i = 1
		}
		return n
	case heap.KindInt:
		return number{kind: smallInt, i: v.AsInt()}
	case heap.KindFloat:
		return number{kind: floatNum, f: v.AsFloat()}
	case heap.KindRef:
		if b, ok := heap.Cast[*object.BigInt](h, v); ok {
			return number{kind: bigInt, b: b.V}
		}
	}
	return number{}
}

func (n number) integral() bool { return n.kind == smallInt || n.kind == bigInt }

// big returns the operand as a big.Int. The result must not be mutated.
func (n number) big() *big.Int {
	if n.kind == bigInt {
		return n.b
	}
	return big.NewInt(n.i)
}

func (n number) sign() int {
	switch n.kind {
	case bigInt:
		return n.b.Sign()
	case floatNum:
		switch {
		case n.f > 0:
			return 1
		case n.f < 0:
			return -1
		}
		return 0
	}
	switch {
	case n.i > 0:
		return 1
	case n.i < 0:
		return -1
	}
	return 0
}

func (n number) float() (float64, error) {
	switch n.kind {
	case floatNum:
		return n.f, nil
	case smallInt:
		return float64(n.i), nil
	}
	f, _ := new(big.Float).SetInt(n.b).Float64()
	if math.IsInf(f, 0) {
		return 0, exc.OverflowErrorf("int too large to convert to float")
	}
	return f, nil
}

// NewInt returns b as a value, using the immediate form when it fits.
// Ownership of b passes to the heap.
func NewInt(h *heap.Heap, b *big.Int) (heap.Value, error) {
	if b.IsInt64() {
		return heap.Int(b.Int64()), nil
	}
	return h.Alloc(&object.BigInt{V: b})
}

// CheckedAdd adds two int64s, reporting false on overflow.
func CheckedAdd(x, y int64) (int64, bool) {
	s := x + y
	return s, (s > x) == (y > 0)
}

// CheckedSub subtracts two int64s, reporting false on overflow.
func CheckedSub(x, y int64) (int64, bool) {
	d := x - y
	return d, (d < x) == (y > 0)
}

func checkedMul(x, y int64) (int64, bool) {
	if x == 0 || y == 0 {
		return 0, true
	}
	if (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
		return 0, false
	}
	r := x * y
	return r, r/y == x
}

type intFn func(x, y int64) (int64, bool)
type bigFn func(x, y *big.Int) (*big.Int, error)
type floatFn func(x, y float64) (float64, error)

// arith applies the numeric tower: float if either side is a float, then
// int64 with exact promotion to big integers.
func arith(h *heap.Heap, a, b heap.Value, fi intFn, fb bigFn, ff floatFn) (heap.Value, bool, error) {
	x, y := numberOf(h, a), numberOf(h, b)
	if x.kind == notNumber || y.kind == notNumber {
		return heap.None, false, nil
	}
	if x.kind == floatNum || y.kind == floatNum {
		xf, err := x.float()
		if err != nil {
			return heap.None, false, err
		}
		yf, err := y.float()
		if err != nil {
			return heap.None, false, err
		}
		f, err := ff(xf, yf)
		if err != nil {
			return heap.None, false, err
		}
		return heap.Float(f), true, nil
	}
	if x.kind == smallInt && y.kind == smallInt && fi != nil {
		if r, ok := fi(x.i, y.i); ok {
			return heap.Int(r), true, nil
		}
	}
	r, err := fb(x.big(), y.big())
	if err != nil {
		return heap.None, false, err
	}
	v, err := NewInt(h, r)
	if err != nil {
		return heap.None, false, err
	}
	return v, true, nil
}

func Add(h *heap.Heap, a, b heap.Value) (heap.Value, bool, error) {
	if v, ok, err := concat(h, a, b); ok || err != nil {
		return v, ok, err
	}
	if v, ok, err := counterArith(h, a, b, counterAdd); ok || err != nil {
		return v, ok, err
	}
	return arith(h, a, b, CheckedAdd,
		func(x, y *big.Int) (*big.Int, error) { return new(big.Int).Add(x, y), nil },
		func(x, y float64) (float64, error) { return x + y, nil })
}

// Sub is the numeric subtraction contract. Container differences are
// handled by SubContainers.
func Sub(h *heap.Heap, a, b heap.Value) (heap.Value, bool, error) {
	return arith(h, a, b, CheckedSub,
		func(x, y *big.Int) (*big.Int, error) { return new(big.Int).Sub(x, y), nil },
		func(x, y float64) (float64, error) { return x - y, nil })
}

func Mul(h *heap.Heap, a, b heap.Value) (heap.Value, bool, error) {
	if v, ok, err := repeat(h, a, b); ok || err != nil {
		return v, ok, err
	}
	return arith(h, a, b, checkedMul,
		func(x, y *big.Int) (*big.Int, error) { return new(big.Int).Mul(x, y), nil },
		func(x, y float64) (float64, error) { return x * y, nil })
}

func TrueDiv(h *heap.Heap, a, b heap.Value) (heap.Value, bool, error) {
	x, y := numberOf(h, a), numberOf(h, b)
	if x.kind == notNumber || y.kind == notNumber {
		return heap.None, false, nil
	}
	if x.kind == floatNum || y.kind == floatNum {
		xf, err := x.float()
		if err != nil {
			return heap.None, false, err
		}
		yf, err := y.float()
		if err != nil {
			return heap.None, false, err
		}
		if yf == 0 {
			return heap.None, false, exc.ZeroDivisionf("float division by zero")
		}
		return heap.Float(xf / yf), true, nil
	}
	if y.sign() == 0 {
		return heap.None, false, exc.ZeroDivisionf("division by zero")
	}
	const exact = 1 << 53
	if x.kind == smallInt && y.kind == smallInt && x.i > -exact && x.i < exact && y.i > -exact && y.i < exact {
		return heap.Float(float64(x.i) / float64(y.i)), true, nil
	}
	f, _ := new(big.Rat).SetFrac(x.big(), y.big()).Float64()
	if math.IsInf(f, 0) {
		return heap.None, false, exc.OverflowErrorf("integer division result too large for a float")
	}
	return heap.Float(f), true, nil
}

func FloorDiv(h *heap.Heap, a, b heap.Value) (heap.Value, bool, error) {
	return arith(h, a, b,
		func(x, y int64) (int64, bool) {
			if y == 0 || (x == math.MinInt64 && y == -1) {
				return 0, false
			}
			q, _ := floorDivMod64(x, y)
			return q, true
		},
		func(x, y *big.Int) (*big.Int, error) {
			if y.Sign() == 0 {
				return nil, exc.ZeroDivisionf("integer division or modulo by zero")
			}
			q, _ := floorDivModBig(x, y)
			return q, nil
		},
		func(x, y float64) (float64, error) {
			if y == 0 {
				return 0, exc.ZeroDivisionf("float floor division by zero")
			}
			q, _ := floatDivMod(x, y)
			return q, nil
		})
}

func Mod(h *heap.Heap, a, b heap.Value) (heap.Value, bool, error) {
	return arith(h, a, b,
		func(x, y int64) (int64, bool) {
			if y == 0 || (x == math.MinInt64 && y == -1) {
				return 0, false
			}
			_, r := floorDivMod64(x, y)
			return r, true
		},
		func(x, y *big.Int) (*big.Int, error) {
			if y.Sign() == 0 {
				return nil, exc.ZeroDivisionf("integer modulo by zero")
			}
			_, r := floorDivModBig(x, y)
			return r, nil
		},
		func(x, y float64) (float64, error) {
			if y == 0 {
				return 0, exc.ZeroDivisionf("float modulo")
			}
			_, r := floatDivMod(x, y)
			return r, nil
		})
}

func floorDivMod64(x, y int64) (int64, int64) {
	q, r := x/y, x%y
	if r != 0 && (r < 0) != (y < 0) {
		q--
		r += y
	}
	return q, r
}

func floorDivModBig(x, y *big.Int) (*big.Int, *big.Int) {
	q, r := new(big.Int).QuoRem(x, y, new(big.Int))
	if r.Sign() != 0 && r.Sign() != y.Sign() {
		q.Sub(q, big.NewInt(1))
		r.Add(r, y)
	}
	return q, r
}

func floatDivMod(x, y float64) (float64, float64) {
	mod := math.Mod(x, y)
	div := (x - mod) / y
	if mod != 0 {
		if (y < 0) != (mod < 0) {
			mod += y
			div--
		}
	} else {
		mod = math.Copysign(0, y)
	}
	if div == 0 {
		return math.Copysign(0, x/y), mod
	}
	floor := math.Floor(div)
	if div-floor > 0.5 {
		floor++
	}
	return floor, mod
}

func Pow(h *heap.Heap, a, b heap.Value) (heap.Value, bool, error) {
	x, y := numberOf(h, a), numberOf(h, b)
	if x.kind == notNumber || y.kind == notNumber {
		return heap.None, false, nil
	}
	if x.kind == floatNum || y.kind == floatNum || y.sign() < 0 {
		xf, err := x.float()
		if err != nil {
			return heap.None, false, err
		}
		yf, err := y.float()
		if err != nil {
			return heap.None, false, err
		}
		f, err := floatPow(xf, yf)
		if err != nil {
			return heap.None, false, err
		}
		return heap.Float(f), true, nil
	}

	// non-negative integer exponent
	if x.kind == smallInt {
		switch x.i {
		case 0:
			if y.sign() == 0 {
				return heap.Int(1), true, nil
			}
			return heap.Int(0), true, nil
		case 1:
			return heap.Int(1), true, nil
		case -1:
			if y.big().Bit(0) == 0 {
				return heap.Int(1), true, nil
			}
			return heap.Int(-1), true, nil
		}
	}
	if y.kind == bigInt || y.i > maxIntBits || int64(x.big().BitLen())*y.i > maxIntBits {
		return heap.None, false, exc.ResourceExhausted(errors.Errorf("integer power result exceeds %d bits", maxIntBits))
	}
	if x.kind == smallInt {
		if r, ok := powInt64(x.i, y.i); ok {
			return heap.Int(r), true, nil
		}
	}
	return bigResult(h, int64(x.big().BitLen())*y.i, func() *big.Int {
		return new(big.Int).Exp(x.big(), y.big(), nil)
	})
}

// bigResult charges an integer of up to bits bits to the heap before
// compute produces it.
func bigResult(h *heap.Heap, bits int64, compute func() *big.Int) (heap.Value, bool, error) {
	v, err := h.Prepaid(object.CostBigInt(int(bits)), func() (heap.Value, error) {
		return NewInt(h, compute())
	})
	if err != nil {
		return heap.None, false, err
	}
	return v, true, nil
}

func powInt64(base, exp int64) (int64, bool) {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			r, ok := checkedMul(result, base)
			if !ok {
				return 0, false
			}
			result = r
		}
		exp >>= 1
		if exp > 0 {
			b, ok := checkedMul(base, base)
			if !ok {
				return 0, false
			}
			base = b
		}
	}
	return result, true
}

func floatPow(x, y float64) (float64, error) {
	if x == 0 && y < 0 {
		return 0, exc.ZeroDivisionf("0.0 cannot be raised to a negative power")
	}
	if x < 0 && y != math.Trunc(y) && !math.IsInf(y, 0) {
		return 0, exc.ValueErrorf("negative number cannot be raised to a fractional power")
	}
	r := math.Pow(x, y)
	if math.IsInf(r, 0) && !math.IsInf(x, 0) && !math.IsInf(y, 0) {
		return 0, exc.OverflowErrorf("numerical result out of range")
	}
	return r, nil
}

func LShift(h *heap.Heap, a, b heap.Value) (heap.Value, bool, error) {
	x, y, ok, err := shiftOperands(h, a, b)
	if !ok || err != nil {
		return heap.None, ok, err
	}
	if x.sign() == 0 {
		return heap.Int(0), true, nil
	}
	if y.kind == bigInt || y.i > maxIntBits || int64(x.big().BitLen())+y.i > maxIntBits {
		return heap.None, false, exc.ResourceExhausted(errors.Errorf("shifted integer exceeds %d bits", maxIntBits))
	}
	if x.kind == smallInt && y.i < 63 {
		if r := x.i << uint(y.i); r>>uint(y.i) == x.i {
			return heap.Int(r), true, nil
		}
	}
	return bigResult(h, int64(x.big().BitLen())+y.i, func() *big.Int {
		return new(big.Int).Lsh(x.big(), uint(y.i))
	})
}

func RShift(h *heap.Heap, a, b heap.Value) (heap.Value, bool, error) {
	x, y, ok, err := shiftOperands(h, a, b)
	if !ok || err != nil {
		return heap.None, ok, err
	}
	if y.kind == bigInt || y.i >= int64(x.big().BitLen())+1 {
		if x.sign() < 0 {
			return heap.Int(-1), true, nil
		}
		return heap.Int(0), true, nil
	}
	if x.kind == smallInt {
		return heap.Int(x.i >> uint(y.i)), true, nil
	}
	v, err := NewInt(h, new(big.Int).Rsh(x.big(), uint(y.i)))
	if err != nil {
		return heap.None, false, err
	}
	return v, true, nil
}

func shiftOperands(h *heap.Heap, a, b heap.Value) (number, number, bool, error) {
	x, y := numberOf(h, a), numberOf(h, b)
	if !x.integral() || !y.integral() {
		return x, y, false, nil
	}
	if y.sign() < 0 {
		return x, y, false, exc.ValueErrorf("negative shift count")
	}
	return x, y, true, nil
}

func And(h *heap.Heap, a, b heap.Value) (heap.Value, bool, error) {
	if isContainer(h, a) {
		return containerBitwise(h, "&", a, b)
	}
	return bitwise(h, a, b,
		func(x, y int64) int64 { return x & y },
		func(x, y *big.Int) *big.Int { return new(big.Int).And(x, y) })
}

func Or(h *heap.Heap, a, b heap.Value) (heap.Value, bool, error) {
	if isContainer(h, a) {
		return containerBitwise(h, "|", a, b)
	}
	return bitwise(h, a, b,
		func(x, y int64) int64 { return x | y },
		func(x, y *big.Int) *big.Int { return new(big.Int).Or(x, y) })
}

func Xor(h *heap.Heap, a, b heap.Value) (heap.Value, bool, error) {
	if isContainer(h, a) {
		return containerBitwise(h, "^", a, b)
	}
	return bitwise(h, a, b,
		func(x, y int64) int64 { return x ^ y },
		func(x, y *big.Int) *big.Int { return new(big.Int).Xor(x, y) })
}

func bitwise(h *heap.Heap, a, b heap.Value, fi func(x, y int64) int64, fb func(x, y *big.Int) *big.Int) (heap.Value, bool, error) {
	x, y := numberOf(h, a), numberOf(h, b)
	if !x.integral() || !y.integral() {
		return heap.None, false, nil
	}
	if x.kind == smallInt && y.kind == smallInt {
		r := fi(x.i, y.i)
		if x.isBool && y.isBool {
			return heap.Bool(r != 0), true, nil
		}
		return heap.Int(r), true, nil
	}
	v, err := NewInt(h, fb(x.big(), y.big()))
	if err != nil {
		return heap.None, false, err
	}
	return v, true, nil
}
