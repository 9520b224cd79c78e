package segment

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/spimi-search/pkg/errors"
)

// FormatLine renders one run line:
//
//	term docCount docID:pos,pos, docID:pos,
//
// Every position is followed by a comma, the last one included.
func FormatLine(entry index.TermEntry) string {
	var sb strings.Builder
	sb.WriteString(entry.Term)
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(entry.DocCount()))
	for _, p := range entry.Postings {
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(p.DocID))
		sb.WriteByte(':')
		for _, pos := range p.Positions {
			sb.WriteString(strconv.Itoa(pos))
			sb.WriteByte(',')
		}
	}
	return sb.String()
}

// ParseLine parses a line written by FormatLine. Any unparsable number, a
// missing separator or a doc count that disagrees with the doc groups yields
// an error wrapping ErrMalformedPosting.
func ParseLine(line string) (index.TermEntry, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return index.TermEntry{}, fmt.Errorf("%w: expected term and doc count, got %q", apperrors.ErrMalformedPosting, line)
	}
	term := fields[0]
	docCount, err := strconv.Atoi(fields[1])
	if err != nil || docCount < 0 {
		return index.TermEntry{}, fmt.Errorf("%w: term %q: bad doc count %q", apperrors.ErrMalformedPosting, term, fields[1])
	}
	groups := fields[2:]
	if len(groups) != docCount {
		return index.TermEntry{}, fmt.Errorf("%w: term %q: doc count %d but %d doc groups",
			apperrors.ErrMalformedPosting, term, docCount, len(groups))
	}
	postings := make(index.PostingList, 0, len(groups))
	for _, group := range groups {
		p, err := parseGroup(group)
		if err != nil {
			return index.TermEntry{}, fmt.Errorf("%w: term %q: %v", apperrors.ErrMalformedPosting, term, err)
		}
		postings = append(postings, p)
	}
	return index.TermEntry{Term: term, Postings: postings}, nil
}

func parseGroup(group string) (index.Posting, error) {
	docStr, posStr, ok := strings.Cut(group, ":")
	if !ok {
		return index.Posting{}, fmt.Errorf("doc group %q has no ':'", group)
	}
	docID, err := strconv.Atoi(docStr)
	if err != nil || docID < 1 {
		return index.Posting{}, fmt.Errorf("bad doc id %q", docStr)
	}
	positions := make([]int, 0, strings.Count(posStr, ","))
	for _, s := range strings.Split(posStr, ",") {
		if s == "" {
			continue
		}
		pos, err := strconv.Atoi(s)
		if err != nil || pos < 0 {
			return index.Posting{}, fmt.Errorf("doc %d: bad position %q", docID, s)
		}
		positions = append(positions, pos)
	}
	if len(positions) == 0 {
		return index.Posting{}, fmt.Errorf("doc %d has no positions", docID)
	}
	return index.Posting{DocID: docID, Positions: positions}, nil
}
