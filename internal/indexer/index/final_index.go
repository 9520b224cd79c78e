package index

import "sort"

// FinalIndex is the query-time view of the merged index. It is built by the
// merge, one term at a time in ascending term order, and is read-only after.
type FinalIndex struct {
	terms map[string]PostingList
	order []string
}

func NewFinalIndex() *FinalIndex {
	return &FinalIndex{
		terms: make(map[string]PostingList),
	}
}

// Insert records the merged postings of a new term. Terms must arrive in
// strictly ascending order, postings in ascending doc ID order with ascending
// positions; the merge emits them that way.
func (f *FinalIndex) Insert(entry TermEntry) {
	f.order = append(f.order, entry.Term)
	f.terms[entry.Term] = entry.Postings
}

// Contains reports whether term has any postings.
func (f *FinalIndex) Contains(term string) bool {
	_, ok := f.terms[term]
	return ok
}

// Postings returns the posting list of term, or nil.
func (f *FinalIndex) Postings(term string) PostingList {
	return f.terms[term]
}

// DocIDs returns the ascending doc IDs containing term.
func (f *FinalIndex) DocIDs(term string) []int {
	return f.terms[term].DocIDs()
}

// Positions returns the ascending positions of term in docID, or nil.
func (f *FinalIndex) Positions(term string, docID int) []int {
	pl := f.terms[term]
	i := sort.Search(len(pl), func(i int) bool {
		return pl[i].DocID >= docID
	})
	if i < len(pl) && pl[i].DocID == docID {
		return pl[i].Positions
	}
	return nil
}

// TermCount returns the number of distinct terms.
func (f *FinalIndex) TermCount() int {
	return len(f.terms)
}

// Terms returns all terms in ascending order, which is insertion order.
func (f *FinalIndex) Terms() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Entries returns every term with its postings, terms ascending.
func (f *FinalIndex) Entries() []TermEntry {
	terms := f.Terms()
	entries := make([]TermEntry, len(terms))
	for i, t := range terms {
		entries[i] = TermEntry{Term: t, Postings: f.terms[t]}
	}
	return entries
}
