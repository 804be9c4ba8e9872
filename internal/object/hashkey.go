package object

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"

	"pyarena/internal/exc"
	"pyarena/internal/heap"
)

type keyTag uint8

const (
	keyNone keyTag = iota
	keyInt
	keyBig
	keyFloat
	keyStr
	keyBytes
	keyTuple
	keyIdentity
)

// Key is the canonical dict/set key of a hashable value. Values that
// compare equal share a key: 1, 1.0 and True are the same key.
type Key struct {
	tag keyTag
	n   int64
	s   string
}

func (k Key) String() string {
	switch k.tag {
	case keyNone:
		return "none"
	case keyInt:
		return "int:" + strconv.FormatInt(k.n, 10)
	case keyFloat:
		return "float:" + strconv.FormatUint(uint64(k.n), 16)
	case keyIdentity:
		return "id:" + strconv.FormatInt(k.n, 10)
	default:
		return strconv.Itoa(int(k.tag)) + ":" + k.s
	}
}

// Hash folds the key into a 64-bit hash. Equal keys hash equally; small
// ints hash to themselves except -1, which is reserved.
func (k Key) Hash() uint64 {
	switch k.tag {
	case keyNone:
		return 0xfca86420
	case keyInt, keyIdentity:
		if k.n == -1 {
			return uint64(1<<64 - 2)
		}
		return uint64(k.n)
	case keyFloat:
		return xxh3.HashString("f" + strconv.FormatUint(uint64(k.n), 16))
	case keyBytes:
		return xxh3.HashString("b" + k.s)
	default:
		return xxh3.HashString(k.s) ^ uint64(k.tag)
	}
}

func (k Key) encode(b *strings.Builder) {
	s := k.String()
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}

// KeyOf computes the canonical key of v. Mutable containers are unhashable.
func KeyOf(h *heap.Heap, v heap.Value) (Key, error) {
	switch v.Kind() {
	case heap.KindNone:
		return Key{tag: keyNone}, nil
	case heap.KindNotImplemented:
		return Key{tag: keyIdentity, n: -1}, nil
	case heap.KindBool:
		if v.AsBool() {
			return Key{tag: keyInt, n: 1}, nil
		}
		return Key{tag: keyInt}, nil
	case heap.KindInt:
		return Key{tag: keyInt, n: v.AsInt()}, nil
	case heap.KindFloat:
		return floatKey(v.AsFloat()), nil
	case heap.KindStr:
		s, _ := h.Interns().Text(v)
		return Key{tag: keyStr, s: s}, nil
	case heap.KindBytes:
		s, _ := h.Interns().Text(v)
		return Key{tag: keyBytes, s: s}, nil
	}

	switch p := h.Get(v).(type) {
	case *Str:
		return Key{tag: keyStr, s: p.S}, nil
	case *Bytes:
		return Key{tag: keyBytes, s: string(p.B)}, nil
	case *BigInt:
		return bigKey(p.V), nil
	case *Tuple:
		var b strings.Builder
		for _, it := range p.Items {
			k, err := KeyOf(h, it)
			if err != nil {
				return Key{}, err
			}
			k.encode(&b)
		}
		return Key{tag: keyTuple, s: b.String()}, nil
	case *List, *Dict, *Set, *Counter:
		return Key{}, exc.TypeErrorf("unhashable type: '%s'", p.Kind())
	default:
		return Key{tag: keyIdentity, n: int64(v.Handle())}, nil
	}
}

func floatKey(f float64) Key {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		if f >= -(1<<63) && f < 1<<63 {
			return Key{tag: keyInt, n: int64(f)}
		}
		bf := new(big.Float).SetFloat64(f)
		bi, _ := bf.Int(nil)
		return bigKey(bi)
	}
	return Key{tag: keyFloat, n: int64(math.Float64bits(f))}
}

func bigKey(b *big.Int) Key {
	if b.IsInt64() {
		return Key{tag: keyInt, n: b.Int64()}
	}
	return Key{tag: keyBig, s: b.String()}
}
