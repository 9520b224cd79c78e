package index

import (
	"sort"
	"sync"
)

// MemoryIndex is the SPIMI buffer: term -> docID -> positions. Terms are
// sorted once, in Snapshot, before a run is written.
type MemoryIndex struct {
	mu    sync.RWMutex
	index map[string]map[int][]int
	size  int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index: make(map[string]map[int][]int),
	}
}

// Add appends pos to the postings of (term, docID). Callers add positions in
// scan order, which keeps each list ascending.
func (m *MemoryIndex) Add(term string, docID int, pos int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs, exists := m.index[term]
	if !exists {
		docs = make(map[int][]int)
		m.index[term] = docs
		m.size += int64(len(term) + 48)
	}
	if _, ok := docs[docID]; !ok {
		m.size += 32
	}
	docs[docID] = append(docs[docID], pos)
	m.size += 8
}

// TermCount returns the number of distinct buffered terms, the quantity the
// flush threshold is compared against.
func (m *MemoryIndex) TermCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.index)
}

// Snapshot returns every buffered term in ascending order with postings in
// ascending doc ID order.
func (m *MemoryIndex) Snapshot() []TermEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, len(m.index))
	for term, docs := range m.index {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: sortedPostings(docs),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Size is an estimate of the buffer's heap footprint in bytes.
func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = make(map[string]map[int][]int)
	m.size = 0
}

func sortedPostings(docs map[int][]int) PostingList {
	postings := make(PostingList, 0, len(docs))
	for docID, positions := range docs {
		cp := make([]int, len(positions))
		copy(cp, positions)
		postings = append(postings, Posting{DocID: docID, Positions: cp})
	}
	sort.Slice(postings, func(i, j int) bool {
		return postings[i].DocID < postings[j].DocID
	})
	return postings
}
