package index

// Posting is the ascending position list of one term within one document.
type Posting struct {
	DocID     int
	Positions []int
}

// PostingList is ordered by ascending DocID.
type PostingList []Posting

// DocIDs returns the document IDs of the list, in order.
func (pl PostingList) DocIDs() []int {
	ids := make([]int, len(pl))
	for i, p := range pl {
		ids[i] = p.DocID
	}
	return ids
}

// TermEntry is one term with all of its postings, the unit written to run
// files and to the merged index.
type TermEntry struct {
	Term     string
	Postings PostingList
}

// DocCount returns the number of documents containing the term.
func (e TermEntry) DocCount() int {
	return len(e.Postings)
}
