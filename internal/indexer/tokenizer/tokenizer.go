// Package tokenizer provides text tokenisation for the indexer and the query
// engine. It lower-cases ASCII input, splits on non-alphanumeric boundaries and
// filters short tokens and stop-words. Every closed token consumes one
// position, retained or not, so indexing and querying agree on offsets.
package tokenizer

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// MinTermLength is the shortest token kept as an index term.
const MinTermLength = 3

var stopWords = map[string]struct{}{
	"the": {}, "is": {}, "of": {}, "and": {}, "in": {}, "to": {},
	"at": {}, "on": {}, "for": {}, "a": {}, "an": {},
}

// Token represents a single retained term and its position in the original
// text.
type Token struct {
	Term     string
	Position int
}

// Boundary is a closed token as seen by the scanner. Retained is false for
// short tokens and stop-words; they still occupy Position.
type Boundary struct {
	Raw      string
	Position int
	Retained bool
}

// Token converts a retained boundary to a Token.
func (b Boundary) Token() Token {
	return Token{Term: b.Raw, Position: b.Position}
}

// IsStopWord reports whether term is in the fixed stop-word set.
func IsStopWord(term string) bool {
	_, ok := stopWords[term]
	return ok
}

// Retained reports whether a lower-cased token is kept as an index term.
func Retained(term string) bool {
	return len(term) >= MinTermLength && !IsStopWord(term)
}

// Scanner lazily produces boundaries from a byte stream. A new Scanner
// restarts the position counter at 0.
type Scanner struct {
	r    *bufio.Reader
	buf  []byte
	pos  int
	err  error
	done bool
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{
		r:   bufio.NewReader(r),
		buf: make([]byte, 0, 32),
	}
}

// Next returns the next closed token. It returns false once the input is
// exhausted or a read error occurred; check Err afterwards.
func (s *Scanner) Next() (Boundary, bool) {
	if s.done {
		return Boundary{}, false
	}
	for {
		c, err := s.r.ReadByte()
		if err != nil {
			s.done = true
			if !errors.Is(err, io.EOF) {
				s.err = err
				return Boundary{}, false
			}
			if len(s.buf) > 0 {
				return s.close(), true
			}
			return Boundary{}, false
		}
		if isAlnum(c) {
			s.buf = append(s.buf, toLower(c))
			continue
		}
		if len(s.buf) > 0 {
			return s.close(), true
		}
	}
}

// Position returns the number of boundaries closed so far.
func (s *Scanner) Position() int {
	return s.pos
}

// Err returns the first non-EOF read error.
func (s *Scanner) Err() error {
	return s.err
}

func (s *Scanner) close() Boundary {
	raw := string(s.buf)
	b := Boundary{
		Raw:      raw,
		Position: s.pos,
		Retained: Retained(raw),
	}
	s.pos++
	s.buf = s.buf[:0]
	return b
}

// Tokenize breaks text into the retained, lower-cased Tokens with their
// positions.
func Tokenize(text string) []Token {
	s := NewScanner(strings.NewReader(text))
	tokens := make([]Token, 0, len(text)/8)
	for {
		b, ok := s.Next()
		if !ok {
			break
		}
		if b.Retained {
			tokens = append(tokens, b.Token())
		}
	}
	return tokens
}

// Terms returns only the retained terms of text, in order.
func Terms(text string) []string {
	tokens := Tokenize(text)
	terms := make([]string, len(tokens))
	for i, t := range tokens {
		terms[i] = t.Term
	}
	return terms
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func toLower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
