package domain

// SentHistory is the grow-only set of delivered article identifiers.
// Insertion order is kept so that persisted snapshots are stable.
type SentHistory struct {
	order []ArticleID
	index map[ArticleID]struct{}
}

// NewSentHistory seeds the set, dropping duplicates.
func NewSentHistory(ids []ArticleID) *SentHistory {
	h := &SentHistory{index: make(map[ArticleID]struct{}, len(ids))}
	for _, id := range ids {
		h.Add(id)
	}
	return h
}

// Contains reports whether id was already recorded.
func (h *SentHistory) Contains(id ArticleID) bool {
	_, ok := h.index[id]
	return ok
}

// Add records id and reports whether it was new.
func (h *SentHistory) Add(id ArticleID) bool {
	if h.index == nil {
		h.index = map[ArticleID]struct{}{}
	}
	if _, ok := h.index[id]; ok {
		return false
	}
	h.index[id] = struct{}{}
	h.order = append(h.order, id)
	return true
}

// Len returns the number of recorded identifiers.
func (h *SentHistory) Len() int {
	return len(h.order)
}

// IDs returns a copy of the identifiers in insertion order.
func (h *SentHistory) IDs() []ArticleID {
	out := make([]ArticleID, len(h.order))
	copy(out, h.order)
	return out
}
