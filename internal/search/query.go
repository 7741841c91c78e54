package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// DefaultLimit is used when Params.Limit is not positive.
const DefaultLimit = 20

// Params configures a catalog search.
type Params struct {
	Query  string   // Free text matched against title and author
	Genres []string // Exact genre names, OR across names
	Limit  int
	Offset int
}

// Result is a page of search hits.
type Result struct {
	Query  string       `json:"query"`
	Total  uint64       `json:"total"`
	TookMs int64        `json:"took_ms"`
	Hits   []Hit        `json:"hits"`
	Genres []FacetCount `json:"genres,omitempty"`
}

// Hit is a single matching book.
type Hit struct {
	Slug       string            `json:"slug"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	Author     string            `json:"author"`
	Genres     []string          `json:"genres,omitempty"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// FacetCount is a genre and the number of matching books carrying it.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search executes a catalog search. An empty query with no genre filter
// matches every book.
func (s *SearchIndex) Search(ctx context.Context, params Params) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if params.Limit <= 0 {
		params.Limit = DefaultLimit
	}

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, params.Offset, false)
	if params.Query != "" {
		req.SortBy([]string{"-_score", "-rating"})
	} else {
		req.SortBy([]string{"-rating", "title"})
	}
	req.AddFacet("genres", bleve.NewFacetRequest("genres", 20))
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField("title")
	req.Highlight.AddField("author")
	req.Fields = []string{"slug", "title", "author", "genres"}

	sr, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  sr.Total,
		TookMs: sr.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(sr.Hits)),
	}

	for _, h := range sr.Hits {
		hit := Hit{Slug: h.ID, Score: h.Score}
		if t, ok := h.Fields["title"].(string); ok {
			hit.Title = t
		}
		if a, ok := h.Fields["author"].(string); ok {
			hit.Author = a
		}
		hit.Genres = storedStrings(h.Fields["genres"])

		if len(h.Fragments) > 0 {
			hit.Highlights = make(map[string]string)
			for field, fragments := range h.Fragments {
				if len(fragments) > 0 {
					hit.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, hit)
	}

	if f, ok := sr.Facets["genres"]; ok && f.Terms != nil {
		for _, term := range f.Terms.Terms() {
			result.Genres = append(result.Genres, FacetCount{Value: term.Term, Count: term.Count})
		}
	}

	return result, nil
}

// buildSearchQuery combines the text query and genre filter with AND.
func buildSearchQuery(params Params) query.Query {
	var queries []query.Query

	if q := strings.TrimSpace(params.Query); q != "" {
		titleMatch := bleve.NewMatchQuery(q)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)

		authorMatch := bleve.NewMatchQuery(q)
		authorMatch.SetField("author")
		authorMatch.SetBoost(2.0)

		// Typo tolerance
		fuzzy := bleve.NewFuzzyQuery(strings.ToLower(q))
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("title")
		fuzzy.SetBoost(0.8)

		textQueries := []query.Query{titleMatch, authorMatch, fuzzy}

		// Prefix for autocomplete, minimum 2 chars
		if len(q) >= 2 {
			for _, field := range []string{"title", "author"} {
				prefix := bleve.NewPrefixQuery(strings.ToLower(q))
				prefix.SetField(field)
				prefix.SetBoost(0.5)
				textQueries = append(textQueries, prefix)
			}
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if len(params.Genres) > 0 {
		genreQueries := make([]query.Query, len(params.Genres))
		for i, g := range params.Genres {
			tq := bleve.NewTermQuery(g)
			tq.SetField("genres")
			genreQueries[i] = tq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(genreQueries...))
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}

// storedStrings reads a stored field that Bleve returns as a string for a
// single value and as []any for several.
func storedStrings(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
