package parser

import (
	"github.com/Adithya-Monish-Kumar-K/spimi-search/internal/indexer/tokenizer"
)

// QueryPlan is a phrase query: the retained terms of the raw query, in
// order. Query-side positions are irrelevant and dropped.
type QueryPlan struct {
	Terms    []string
	RawQuery string
}

// Parse tokenizes query with the same rules used at index time.
func Parse(query string) *QueryPlan {
	return &QueryPlan{
		Terms:    tokenizer.Terms(query),
		RawQuery: query,
	}
}

// Empty reports whether no term survived tokenization.
func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}
