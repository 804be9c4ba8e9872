package vm

import (
	"github.com/dustin/go-humanize"

	"pyarena/internal/exc"
	"pyarena/internal/limits"
)

// surface turns an error that unwound through bytecode frames into the
// exception user code observes. Engine faults are logged with the heap
// state at the time they crossed the frame boundary.
func (m *VM) surface(err error) error {
	if !exc.IsEngine(err) {
		return exc.Surface(err)
	}
	st := m.heap.Stats()
	log.Warningf("engine fault surfaced as RuntimeError: %v (live=%d bytes=%s refused=%d)",
		err, st.Live, humanize.IBytes(uint64(max(st.Bytes, 0))), st.Refused)
	return exc.Surface(err)
}

// MemoryUsage describes the heap's accounting in human-readable form.
func (m *VM) MemoryUsage() string {
	st := m.heap.Stats()
	s := humanize.IBytes(uint64(max(st.Bytes, 0))) + " in " + humanize.Comma(int64(st.Live)) + " objects"
	if b := memoryBudget(m.heap.Policy()); b != nil && b.Limit() > 0 {
		s += " (limit " + humanize.IBytes(uint64(b.Limit())) + ", peak " + humanize.IBytes(uint64(b.Peak())) + ")"
	}
	return s
}

func memoryBudget(p limits.Policy) *limits.Budget {
	switch p := p.(type) {
	case *limits.Budget:
		return p
	case limits.Chain:
		for _, sub := range p {
			if b := memoryBudget(sub); b != nil {
				return b
			}
		}
	}
	return nil
}
