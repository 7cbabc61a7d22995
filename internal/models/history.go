package models

import (
	"slices"
)

// PriceHistory is a sequence of price records, one per calendar day.
// Provider order is not guaranteed; lookups match on the date.
type PriceHistory []PriceRecord

// Find returns the record for the given day.
func (h PriceHistory) Find(day Day) (PriceRecord, bool) {
	for _, rec := range h {
		if rec.Date == day {
			return rec, true
		}
	}
	return PriceRecord{}, false
}

// ByDate indexes the history by day. The first record wins on duplicates.
func (h PriceHistory) ByDate() map[Day]PriceRecord {
	m := make(map[Day]PriceRecord, len(h))
	for _, rec := range h {
		if _, ok := m[rec.Date]; !ok {
			m[rec.Date] = rec
		}
	}
	return m
}

// Sorted returns a copy ordered oldest first.
func (h PriceHistory) Sorted() PriceHistory {
	out := h.Clone()
	slices.SortStableFunc(out, func(a, b PriceRecord) int {
		return a.Date.DaysSince(b.Date)
	})
	return out
}

// Latest returns the n newest records, oldest first.
func (h PriceHistory) Latest(n int) PriceHistory {
	sorted := h.Sorted()
	if n >= len(sorted) {
		return sorted
	}
	if n <= 0 {
		return PriceHistory{}
	}
	return sorted[len(sorted)-n:]
}

// Between returns the records from from to to, both inclusive, oldest first.
func (h PriceHistory) Between(from, to Day) PriceHistory {
	out := PriceHistory{}
	for _, rec := range h.Sorted() {
		if rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Clone returns a deep copy of the history.
func (h PriceHistory) Clone() PriceHistory {
	if h == nil {
		return nil
	}
	out := make(PriceHistory, len(h))
	for i, rec := range h {
		out[i] = rec.Clone()
	}
	return out
}

// Normalized returns a copy where every record has a non-nil revision list.
func (h PriceHistory) Normalized() PriceHistory {
	out := h.Clone()
	for i := range out {
		if out[i].PriorRevisions == nil {
			out[i].PriorRevisions = []Revision{}
		}
	}
	return out
}

// Clone returns a deep copy of the record.
func (r PriceRecord) Clone() PriceRecord {
	if r.PriorRevisions != nil {
		r.PriorRevisions = slices.Clone(r.PriorRevisions)
	}
	return r
}
