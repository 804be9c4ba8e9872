package heap

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/emirpasic/gods/sets/treeset"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"pyarena/internal/exc"
	"pyarena/internal/limits"
)

var log = commonlog.GetLogger("pyarena.heap")

// Payload is implemented by every object kind that can live in a slot.
type Payload interface {
	// Kind is the payload's type name, e.g. "list".
	Kind() string
	// Cost is the number of bytes charged to the policy at allocation.
	Cost() int64
	// Refs visits every reference the payload owns.
	Refs(visit func(Value))
}

type slot struct {
	payload Payload
	refs    uint32
	cost    int64
	live    bool
	busy    bool
}

type Stats struct {
	Live            int
	Allocated       uint64
	Freed           uint64
	Increments      uint64
	Releases        uint64
	Refused         uint64
	Bytes           int64
	OpenBorrows     int
	CycleCandidates int
}

// Heap owns every heap-resident object behind a stable Handle. It is not
// safe for concurrent use; one interpreter owns one heap.
type Heap struct {
	id      uuid.UUID
	slots   []slot
	free    []Handle
	policy  limits.Policy
	interns *Interns
	cycles  *treeset.Set
	borrows int
	credit  int64
	stats   Stats
}

func New(policy limits.Policy) *Heap {
	if policy == nil {
		policy = limits.Unlimited
	}
	return &Heap{
		id:      uuid.New(),
		slots:   make([]slot, 1, 64), // slot 0 is never handed out
		policy:  policy,
		interns: NewInterns(),
		cycles:  treeset.NewWithIntComparator(),
	}
}

func (h *Heap) ID() uuid.UUID { return h.id }

func (h *Heap) Interns() *Interns { return h.interns }

func (h *Heap) Policy() limits.Policy { return h.policy }

// Str interns s and returns its immediate value.
func (h *Heap) Str(s string) Value { return h.interns.Str(s) }

// Bytes interns b and returns its immediate value.
func (h *Heap) Bytes(b []byte) Value { return h.interns.Bytes(b) }

// Alloc stores p in a fresh slot with a reference count of one. Alloc takes
// ownership of every reference p holds, also when the policy refuses the
// allocation; in that case those references are released and a
// ResourceExhausted fault is returned.
func (h *Heap) Alloc(p Payload) (Value, error) {
	cost := p.Cost()
	if err := h.charge(cost); err != nil {
		h.stats.Refused++
		log.Warningf("heap %s: refused %s for %s: %v", h.id, humanize.IBytes(uint64(max(cost, 0))), p.Kind(), err)
		p.Refs(h.Release)
		return None, exc.ResourceExhausted(err)
	}

	var hd Handle
	if n := len(h.free); n > 0 {
		hd = h.free[n-1]
		h.free = h.free[:n-1]
	} else {
		h.slots = append(h.slots, slot{})
		hd = Handle(len(h.slots) - 1)
	}
	h.slots[hd] = slot{payload: p, refs: 1, cost: cost, live: true}
	h.stats.Allocated++
	h.stats.Live++
	h.stats.Bytes += cost
	return ref(hd), nil
}

// Reserve charges n additional bytes against the policy on behalf of the
// slot behind v. Containers call it before they grow.
func (h *Heap) Reserve(v Value, n int64) error {
	if n <= 0 {
		return nil
	}
	s := h.slot(v.Handle())
	if err := h.charge(n); err != nil {
		h.stats.Refused++
		log.Warningf("heap %s: refused growth of %s by %s: %v", h.id, s.payload.Kind(), humanize.IBytes(uint64(n)), err)
		return exc.ResourceExhausted(err)
	}
	s.cost += n
	h.stats.Bytes += n
	return nil
}

// charge takes n bytes from the prepaid credit first and asks the policy
// for the rest.
func (h *Heap) charge(n int64) error {
	if h.credit > 0 {
		used := min(n, h.credit)
		h.credit -= used
		if n -= used; n == 0 {
			return nil
		}
	}
	return h.policy.Charge(n)
}

func (h *Heap) refund(n int64) {
	if r, ok := h.policy.(limits.Refunder); ok && n > 0 {
		r.Refund(n)
	}
}

// Prepaid charges n bytes against the policy before build runs, so a
// result the policy cannot afford is refused before it is materialised.
// Allocations and growth inside build draw on the prepaid amount first;
// whatever build leaves unused is refunded when it returns.
func (h *Heap) Prepaid(n int64, build func() (Value, error)) (Value, error) {
	if n <= 0 {
		return build()
	}
	if err := h.policy.Charge(n); err != nil {
		h.stats.Refused++
		log.Warningf("heap %s: refused prepaid %s: %v", h.id, humanize.IBytes(uint64(n)), err)
		return None, exc.ResourceExhausted(err)
	}
	outer := h.credit
	h.credit = n
	defer func() {
		h.refund(h.credit)
		h.credit = outer
	}()
	return build()
}

func (h *Heap) slot(hd Handle) *slot {
	if int(hd) <= 0 || int(hd) >= len(h.slots) || !h.slots[hd].live {
		panic(fmt.Sprintf("heap: access to released handle %d", hd))
	}
	return &h.slots[hd]
}

// Get returns the payload behind v, or nil when v is an immediate.
func (h *Heap) Get(v Value) Payload {
	if v.kind != KindRef {
		return nil
	}
	return h.slot(v.Handle()).payload
}

// Cast returns the payload behind v if it has type T.
func Cast[T Payload](h *Heap, v Value) (T, bool) {
	var zero T
	p := h.Get(v)
	if p == nil {
		return zero, false
	}
	t, ok := p.(T)
	return t, ok
}

// With gives fn exclusive mutable access to the payload behind v for the
// duration of the call. Mutating the same slot again from inside fn is a
// corrupted-state fault.
func (h *Heap) With(v Value, fn func(Payload) error) error {
	if v.kind != KindRef {
		return exc.Corruptedf("scoped mutation of immediate %s", v)
	}
	s := h.slot(v.Handle())
	if s.busy {
		return exc.Corruptedf("reentrant mutation of handle %d (%s)", v.Handle(), s.payload.Kind())
	}
	s.busy = true
	defer func() {
		// the slot may have been reallocated by fn
		h.slots[v.Handle()].busy = false
	}()
	return fn(s.payload)
}

// Clone increments the reference count behind v and returns v. The caller
// owns the returned copy.
func (h *Heap) Clone(v Value) Value {
	if v.kind != KindRef {
		return v
	}
	s := h.slot(v.Handle())
	s.refs++
	h.stats.Increments++
	return v
}

// Release gives up one reference. When a count reaches zero the slot is
// torn down, the references it owns are released in turn and the handle
// returns to the free list.
func (h *Heap) Release(v Value) {
	if v.kind != KindRef {
		return
	}
	s := h.slot(v.Handle())
	h.stats.Releases++
	s.refs--
	if s.refs > 0 {
		return
	}

	pending := []Handle{v.Handle()}
	for len(pending) > 0 {
		hd := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		s := &h.slots[hd]
		p := s.payload
		cost := s.cost
		*s = slot{}
		p.Refs(func(c Value) {
			if c.kind != KindRef {
				return
			}
			cs := h.slot(c.Handle())
			h.stats.Releases++
			cs.refs--
			if cs.refs == 0 {
				pending = append(pending, c.Handle())
			}
		})

		h.cycles.Remove(int(hd))
		h.free = append(h.free, hd)
		h.stats.Freed++
		h.stats.Live--
		h.stats.Bytes -= cost
		h.refund(cost)
	}
}

// ReleaseAll releases each value in vs.
func (h *Heap) ReleaseAll(vs []Value) {
	for _, v := range vs {
		h.Release(v)
	}
}

// RefCount returns the live count for hd, or zero for a free slot.
func (h *Heap) RefCount(hd Handle) uint32 {
	if int(hd) <= 0 || int(hd) >= len(h.slots) {
		return 0
	}
	return h.slots[hd].refs
}

// IsLive reports whether hd currently names an object.
func (h *Heap) IsLive(hd Handle) bool {
	return int(hd) > 0 && int(hd) < len(h.slots) && h.slots[hd].live
}

func (h *Heap) Stats() Stats {
	st := h.stats
	st.OpenBorrows = h.borrows
	st.CycleCandidates = h.cycles.Size()
	return st
}
