package index

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndexSnapshotIsSorted(t *testing.T) {
	mi := NewMemoryIndex()
	mi.Add("zebra", 2, 0)
	mi.Add("apple", 3, 4)
	mi.Add("apple", 1, 2)
	mi.Add("apple", 1, 7)
	mi.Add("mango", 1, 1)

	assert.Equal(t, 3, mi.TermCount())

	snap := mi.Snapshot()
	require.Equal(t, []TermEntry{
		{Term: "apple", Postings: PostingList{
			{DocID: 1, Positions: []int{2, 7}},
			{DocID: 3, Positions: []int{4}},
		}},
		{Term: "mango", Postings: PostingList{{DocID: 1, Positions: []int{1}}}},
		{Term: "zebra", Postings: PostingList{{DocID: 2, Positions: []int{0}}}},
	}, snap)
}

func TestMemoryIndexSnapshotDoesNotAlias(t *testing.T) {
	mi := NewMemoryIndex()
	mi.Add("alpha", 1, 0)
	snap := mi.Snapshot()
	mi.Add("alpha", 1, 5)
	assert.Equal(t, []int{0}, snap[0].Postings[0].Positions)
}

func TestMemoryIndexReset(t *testing.T) {
	mi := NewMemoryIndex()
	mi.Add("alpha", 1, 0)
	require.Positive(t, mi.Size())
	mi.Reset()
	assert.Zero(t, mi.TermCount())
	assert.Zero(t, mi.Size())
	assert.Empty(t, mi.Snapshot())
}

func TestFinalIndexLookups(t *testing.T) {
	f := NewFinalIndex()
	f.Insert(TermEntry{Term: "cat", Postings: PostingList{
		{DocID: 1, Positions: []int{1}},
		{DocID: 2, Positions: []int{0}},
	}})
	f.Insert(TermEntry{Term: "mat", Postings: PostingList{
		{DocID: 1, Positions: []int{5}},
	}})

	assert.True(t, f.Contains("cat"))
	assert.False(t, f.Contains("dog"))
	assert.Equal(t, []int{1, 2}, f.DocIDs("cat"))
	assert.Equal(t, []int{0}, f.Positions("cat", 2))
	assert.Nil(t, f.Positions("mat", 2))
	assert.Nil(t, f.Positions("dog", 1))
	assert.Equal(t, []string{"cat", "mat"}, f.Terms())
	assert.Equal(t, 2, f.TermCount())
	assert.Len(t, f.Entries(), 2)

	terms := f.Terms()
	terms[0] = "zzz"
	assert.Equal(t, []string{"cat", "mat"}, f.Terms(), "Terms returns a copy")
}

func TestSnapshotDocCount(t *testing.T) {
	mi := NewMemoryIndex()
	mi.Add("alpha", 2, 0)
	mi.Add("alpha", 1, 3)
	mi.Add("alpha", 1, 4)

	snap := mi.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 2, snap[0].DocCount())
	assert.Equal(t, []int{1, 2}, snap[0].Postings.DocIDs())
}

func BenchmarkMemoryIndexAdd(b *testing.B) {
	mi := NewMemoryIndex()
	terms := make([]string, 512)
	for i := range terms {
		terms[i] = fmt.Sprintf("term%d", i)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mi.Add(terms[i%len(terms)], i/len(terms)+1, i)
	}
}

func BenchmarkMemoryIndexSnapshot(b *testing.B) {
	mi := NewMemoryIndex()
	for i := 0; i < 5000; i++ {
		mi.Add(fmt.Sprintf("term%d", i%1000), i/10+1, i)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = mi.Snapshot()
	}
}
