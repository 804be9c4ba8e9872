package object

import (
	"pyarena/internal/exc"
	"pyarena/internal/heap"
)

// MemberGetter allows objects to expose fields via member access
// (obj.field). The returned value is borrowed.
type MemberGetter interface {
	GetMember(name string) (heap.Value, bool)
}

// MemberSetter allows objects to handle member assignment
// (obj.field = value). It takes ownership of value and returns the value
// it displaced, which the caller must release.
type MemberSetter interface {
	SetMember(name string, value heap.Value) heap.Value
}

func (i *Instance) GetMember(name string) (heap.Value, bool) {
	v, ok := i.Fields[name]
	return v, ok
}

func (i *Instance) SetMember(name string, value heap.Value) heap.Value {
	old, ok := i.Fields[name]
	if i.Fields == nil {
		i.Fields = map[string]heap.Value{}
	}
	i.Fields[name] = value
	if !ok {
		return heap.None
	}
	return old
}

func (m *Module) GetMember(name string) (heap.Value, bool) {
	v, ok := m.Members[name]
	return v, ok
}

func (m *Module) SetMember(name string, value heap.Value) heap.Value {
	old, ok := m.Members[name]
	if m.Members == nil {
		m.Members = map[string]heap.Value{}
	}
	m.Members[name] = value
	if !ok {
		return heap.None
	}
	return old
}

// SetAttr assigns obj.name = value through the heap's scoped mutation,
// taking ownership of value. New fields are charged to the policy.
func SetAttr(h *heap.Heap, obj heap.Value, name string, value heap.Value) error {
	var displaced heap.Value
	var fresh bool
	if g, ok := h.Get(obj).(MemberGetter); ok {
		_, exists := g.GetMember(name)
		fresh = !exists
	}
	if fresh {
		if err := h.Reserve(obj, CostDictEntry()); err != nil {
			h.Release(value)
			return err
		}
	}
	err := h.With(obj, func(p heap.Payload) error {
		s, ok := p.(MemberSetter)
		if !ok {
			return errNoSetAttr(p)
		}
		displaced = s.SetMember(name, value)
		return nil
	})
	if err != nil {
		h.Release(value)
		return err
	}
	h.Release(displaced)
	if value.IsRef() {
		h.MarkCycleCandidate(obj)
	}
	return nil
}

func errNoSetAttr(p heap.Payload) error {
	return exc.AttributeErrorf("'%s' object attribute is read-only", p.Kind())
}
