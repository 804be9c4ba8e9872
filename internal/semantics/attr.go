package semantics

import (
	"pyarena/internal/exc"
	"pyarena/internal/heap"
	"pyarena/internal/object"
)

type nativeMethod struct {
	name  string
	arity [2]int
	fn    object.NativeFunc
}

// builtinMethods lists the native methods of the container kinds. The
// receiver is passed as args[0]; arity excludes it.
var builtinMethods = map[string]map[string]nativeMethod{
	object.LIST_KIND: {
		"append": {"append", [2]int{1, 1}, listAppend},
		"pop":    {"pop", [2]int{0, 1}, listPop},
	},
	object.DICT_KIND: {
		"get":    {"get", [2]int{1, 2}, dictGet},
		"update": {"update", [2]int{1, 1}, dictUpdate},
	},
	object.SET_KIND: {
		"add": {"add", [2]int{1, 1}, setAdd},
	},
}

// GetAttr evaluates obj.name and returns an owned reference. Functions
// found on a class are bound to the instance.
func GetAttr(h *heap.Heap, obj heap.Value, name string) (heap.Value, error) {
	switch p := h.Get(obj).(type) {
	case *object.Instance:
		if v, ok := p.GetMember(name); ok {
			return h.Clone(v), nil
		}
		if v, ok := object.LookupClassAttr(h, p.Class, name); ok {
			switch h.Get(v).(type) {
			case *object.Function, *object.Native:
				return object.NewBoundMethod(h, obj, v)
			}
			return h.Clone(v), nil
		}
	case *object.Class:
		if name == "__name__" {
			return object.NewStr(h, p.Name)
		}
		if v, ok := object.LookupClassAttr(h, obj, name); ok {
			return h.Clone(v), nil
		}
	case *object.Module:
		if v, ok := p.GetMember(name); ok {
			return h.Clone(v), nil
		}
		if name == "__name__" {
			return object.NewStr(h, p.Name)
		}
		return heap.None, exc.AttributeErrorf("module '%s' has no attribute '%s'", p.Name, name)
	case *object.Exception:
		if name == "args" {
			return object.NewTuple(h, cloneAll(h, p.Args))
		}
	case *object.BoundMethod:
		if name == "__self__" {
			return h.Clone(p.Self), nil
		}
		if name == "__func__" {
			return h.Clone(p.Fn), nil
		}
	case nil:
	default:
		if m, ok := builtinMethods[p.Kind()][name]; ok {
			return bindNative(h, obj, m)
		}
	}
	return heap.None, exc.AttributeErrorf("'%s' object has no attribute '%s'", TypeName(h, obj), name)
}

func bindNative(h *heap.Heap, self heap.Value, m nativeMethod) (heap.Value, error) {
	arity := m.arity
	fn := m.fn
	native, err := object.NewNative(h, m.name, func(h *heap.Heap, args []heap.Value) (heap.Value, error) {
		if n := len(args) - 1; n < arity[0] || n > arity[1] {
			if arity[0] == arity[1] {
				return heap.None, exc.TypeErrorf("%s() takes exactly %d argument(s) (%d given)", m.name, arity[0], n)
			}
			return heap.None, exc.TypeErrorf("%s() takes at most %d argument(s) (%d given)", m.name, arity[1], n)
		}
		return fn(h, args)
	})
	if err != nil {
		return heap.None, err
	}
	bound, err := object.NewBoundMethod(h, self, native)
	h.Release(native)
	return bound, err
}

// ListAppend appends v to the list behind l, taking ownership of v.
func ListAppend(h *heap.Heap, l, v heap.Value) error {
	if _, ok := heap.Cast[*object.List](h, l); !ok {
		h.Release(v)
		return exc.TypeErrorf("append() target must be a list, not %s", TypeName(h, l))
	}
	_, _, err := extendList(h, l, []heap.Value{v})
	if err == nil {
		h.Release(l) // extendList returned a new reference
	}
	return err
}

// DictSetItem stores d[key] = val, taking ownership of key and val.
func DictSetItem(h *heap.Heap, d, key, val heap.Value) error {
	k, err := object.KeyOf(h, key)
	if err != nil {
		h.Release(key)
		h.Release(val)
		return err
	}
	dict, ok := mappingOf(h, d)
	if !ok {
		h.Release(key)
		h.Release(val)
		return exc.TypeErrorf("'%s' object does not support item assignment", TypeName(h, d))
	}
	if _, exists := dict.Lookup(k); !exists {
		if err := h.Reserve(d, object.CostDictEntry()); err != nil {
			h.Release(key)
			h.Release(val)
			return err
		}
	}
	var prev object.Entry
	var replaced bool
	err = h.With(d, func(p heap.Payload) error {
		switch m := p.(type) {
		case *object.Dict:
			prev, replaced = m.Put(k, key, val)
		case *object.Counter:
			prev, replaced = m.Put(k, key, val)
		}
		return nil
	})
	if err != nil {
		h.Release(key)
		h.Release(val)
		return err
	}
	if replaced {
		h.Release(prev.Key)
		h.Release(prev.Value)
	}
	markIfRefs(h, d, key, val)
	return nil
}

// SetAdd adds v to the set behind s, taking ownership of v.
func SetAdd(h *heap.Heap, s, v heap.Value) error {
	k, err := object.KeyOf(h, v)
	if err != nil {
		h.Release(v)
		return err
	}
	set, ok := heap.Cast[*object.Set](h, s)
	if !ok {
		h.Release(v)
		return exc.TypeErrorf("add() target must be a set, not %s", TypeName(h, s))
	}
	if set.Has(k) {
		h.Release(v)
		return nil
	}
	if err := h.Reserve(s, object.CostSetEntry()); err != nil {
		h.Release(v)
		return err
	}
	err = h.With(s, func(p heap.Payload) error {
		p.(*object.Set).Add(k, v)
		return nil
	})
	if err != nil {
		h.Release(v)
		return err
	}
	markIfRefs(h, s, v)
	return nil
}

func listAppend(h *heap.Heap, args []heap.Value) (heap.Value, error) {
	if err := ListAppend(h, args[0], h.Clone(args[1])); err != nil {
		return heap.None, err
	}
	return heap.None, nil
}

func listPop(h *heap.Heap, args []heap.Value) (heap.Value, error) {
	l, _ := heap.Cast[*object.List](h, args[0])
	if len(l.Items) == 0 {
		return heap.None, exc.IndexErrorf("pop from empty list")
	}
	idx := int64(len(l.Items) - 1)
	if len(args) > 1 {
		n := numberOf(h, args[1])
		if n.kind != smallInt {
			return heap.None, exc.TypeErrorf("'%s' object cannot be interpreted as an integer", TypeName(h, args[1]))
		}
		idx = n.i
		if idx < 0 {
			idx += int64(len(l.Items))
		}
		if idx < 0 || idx >= int64(len(l.Items)) {
			return heap.None, exc.IndexErrorf("pop index out of range")
		}
	}
	var out heap.Value
	err := h.With(args[0], func(p heap.Payload) error {
		lp := p.(*object.List)
		last := len(lp.Items) - 1
		out = lp.Items[idx]
		copy(lp.Items[idx:], lp.Items[idx+1:])
		lp.Items[last] = heap.None
		lp.Items = lp.Items[:last]
		return nil
	})
	return out, err
}

func dictGet(h *heap.Heap, args []heap.Value) (heap.Value, error) {
	d, _ := mappingOf(h, args[0])
	k, err := object.KeyOf(h, args[1])
	if err != nil {
		return heap.None, err
	}
	if e, ok := d.Lookup(k); ok {
		return h.Clone(e.Value), nil
	}
	if len(args) > 2 {
		return h.Clone(args[2]), nil
	}
	return heap.None, nil
}

func dictUpdate(h *heap.Heap, args []heap.Value) (heap.Value, error) {
	src, ok := mappingOf(h, args[1])
	if !ok {
		return heap.None, exc.TypeErrorf("'%s' object is not a mapping", TypeName(h, args[1]))
	}
	if err := MergeInto(h, args[0], src); err != nil {
		return heap.None, err
	}
	return heap.None, nil
}

func setAdd(h *heap.Heap, args []heap.Value) (heap.Value, error) {
	if err := SetAdd(h, args[0], h.Clone(args[1])); err != nil {
		return heap.None, err
	}
	return heap.None, nil
}
