package heap

// MarkCycleCandidate records that the slot behind v may take part in a
// reference cycle. Counting alone cannot free such slots; a separate
// collector can consume the candidate set. Torn-down slots leave the set.
func (h *Heap) MarkCycleCandidate(v Value) {
	if v.kind != KindRef || !h.IsLive(v.Handle()) {
		return
	}
	if h.cycles.Contains(int(v.Handle())) {
		return
	}
	h.cycles.Add(int(v.Handle()))
	log.Debugf("heap %s: cycle candidate %d (%s)", h.id, v.Handle(), h.slots[v.Handle()].payload.Kind())
}

// CycleCandidates returns the candidate handles in ascending order.
func (h *Heap) CycleCandidates() []Handle {
	vals := h.cycles.Values()
	out := make([]Handle, len(vals))
	for i, v := range vals {
		out[i] = Handle(v.(int))
	}
	return out
}

// DrainCycleCandidates returns the candidates and clears the set.
func (h *Heap) DrainCycleCandidates() []Handle {
	out := h.CycleCandidates()
	h.cycles.Clear()
	return out
}
