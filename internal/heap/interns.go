package heap

// Interns maps small ids to immutable text so that string and bytes
// literals can live in a Value without touching the arena.
type Interns struct {
	strs       []string
	strIndex   map[string]uint32
	bytes      []string
	bytesIndex map[string]uint32
}

func NewInterns() *Interns {
	return &Interns{
		strIndex:   map[string]uint32{},
		bytesIndex: map[string]uint32{},
	}
}

func (in *Interns) Str(s string) Value {
	id, ok := in.strIndex[s]
	if !ok {
		id = uint32(len(in.strs))
		in.strs = append(in.strs, s)
		in.strIndex[s] = id
	}
	return Value{kind: KindStr, bits: uint64(id)}
}

func (in *Interns) Bytes(b []byte) Value {
	key := string(b)
	id, ok := in.bytesIndex[key]
	if !ok {
		id = uint32(len(in.bytes))
		in.bytes = append(in.bytes, key)
		in.bytesIndex[key] = id
	}
	return Value{kind: KindBytes, bits: uint64(id)}
}

// Text returns the interned text behind a KindStr or KindBytes value.
func (in *Interns) Text(v Value) (string, bool) {
	id := int(v.InternID())
	switch v.kind {
	case KindStr:
		if id < len(in.strs) {
			return in.strs[id], true
		}
	case KindBytes:
		if id < len(in.bytes) {
			return in.bytes[id], true
		}
	}
	return "", false
}

func (in *Interns) Len() int {
	return len(in.strs) + len(in.bytes)
}
