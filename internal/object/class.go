package object

import (
	"pyarena/internal/exc"
	"pyarena/internal/heap"
)

// NewClass allocates a class that owns bases and attrs.
func NewClass(h *heap.Heap, name string, bases []heap.Value, attrs map[string]heap.Value) (heap.Value, error) {
	if attrs == nil {
		attrs = map[string]heap.Value{}
	}
	return h.Alloc(&Class{Name: name, Bases: bases, Attrs: attrs})
}

// NewInstance allocates an instance of cls. The class reference is cloned.
func NewInstance(h *heap.Heap, cls heap.Value) (heap.Value, error) {
	if _, ok := heap.Cast[*Class](h, cls); !ok {
		return heap.None, exc.TypeErrorf("cannot instantiate %s", cls)
	}
	return h.Alloc(&Instance{Class: h.Clone(cls), Fields: map[string]heap.Value{}})
}

func NewNative(h *heap.Heap, name string, fn NativeFunc) (heap.Value, error) {
	return h.Alloc(&Native{Name: name, Fn: fn})
}

// NewBoundMethod binds fn to self. Both references are cloned.
func NewBoundMethod(h *heap.Heap, self, fn heap.Value) (heap.Value, error) {
	return h.Alloc(&BoundMethod{Self: h.Clone(self), Fn: h.Clone(fn)})
}

// NewException materialises e as an exception object carrying its message.
func NewException(h *heap.Heap, e *exc.Error) (heap.Value, error) {
	msg, err := NewStr(h, e.Message)
	if err != nil {
		return heap.None, err
	}
	return h.Alloc(&Exception{Class: e.Class, Args: []heap.Value{msg}})
}

// ClassOf returns the class behind an instance value (borrowed).
func ClassOf(h *heap.Heap, v heap.Value) (*Class, heap.Value, bool) {
	inst, ok := heap.Cast[*Instance](h, v)
	if !ok {
		return nil, heap.None, false
	}
	c, ok := heap.Cast[*Class](h, inst.Class)
	return c, inst.Class, ok
}

// LookupClassAttr searches cls and its bases depth-first, left to right,
// and returns the first binding of name. The result is borrowed.
func LookupClassAttr(h *heap.Heap, cls heap.Value, name string) (heap.Value, bool) {
	seen := map[heap.Handle]bool{}
	var walk func(c heap.Value) (heap.Value, bool)
	walk = func(c heap.Value) (heap.Value, bool) {
		if !c.IsRef() || seen[c.Handle()] {
			return heap.None, false
		}
		seen[c.Handle()] = true
		k, ok := heap.Cast[*Class](h, c)
		if !ok {
			return heap.None, false
		}
		if v, ok := k.Attrs[name]; ok {
			return v, true
		}
		for _, b := range k.Bases {
			if v, ok := walk(b); ok {
				return v, true
			}
		}
		return heap.None, false
	}
	return walk(cls)
}

// IsSubclass reports whether sub is base or inherits from it.
func IsSubclass(h *heap.Heap, sub, base heap.Value) bool {
	if !sub.IsRef() || !base.IsRef() {
		return false
	}
	if sub.Same(base) {
		return true
	}
	k, ok := heap.Cast[*Class](h, sub)
	if !ok {
		return false
	}
	for _, b := range k.Bases {
		if IsSubclass(h, b, base) {
			return true
		}
	}
	return false
}
