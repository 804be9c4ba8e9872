package heap

// Borrowed packages a value together with the heap so both can travel
// through nested calls as one unit. Callers project it when they need the
// parts and Release it to get them back; a released Borrowed must not be
// used again. The heap counts open borrows so a dispatch can be checked
// for balance.
type Borrowed struct {
	v    Value
	h    *Heap
	done bool
}

func (h *Heap) Borrow(v Value) Borrowed {
	h.borrows++
	return Borrowed{v: v, h: h}
}

func (b *Borrowed) check() {
	if b.done {
		panic("heap: use of released borrow")
	}
}

// Get yields the value and the heap without giving up the borrow.
func (b *Borrowed) Get() (Value, *Heap) {
	b.check()
	return b.v, b.h
}

// Project yields a mutable view of the value together with the heap.
func (b *Borrowed) Project() (*Value, *Heap) {
	b.check()
	return &b.v, b.h
}

// Payload is shorthand for reading the borrowed value's payload.
func (b *Borrowed) Payload() Payload {
	b.check()
	return b.h.Get(b.v)
}

// Release ends the borrow and hands both parts back unchanged.
func (b *Borrowed) Release() (Value, *Heap) {
	b.check()
	b.done = true
	b.h.borrows--
	return b.v, b.h
}
