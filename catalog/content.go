package catalog

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/bmatcuk/doublestar/v4"
)

// ContentIndex provides full-text search over accepted content using an
// in-memory Bleve index.
type ContentIndex struct {
	mu    sync.RWMutex
	index bleve.Index
	// texts keeps raw content for line-level result extraction
	texts map[string]string
}

func NewContentIndex() (*ContentIndex, error) {
	bleveIndex, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating bleve index: %w", err)
	}
	return &ContentIndex{
		index: bleveIndex,
		texts: make(map[string]string),
	}, nil
}

type bleveDocument struct {
	Content  string `json:"content"`
	Ref      string `json:"ref"`
	Kind     string `json:"kind"`
	Category string `json:"category"`
}

func buildIndexMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	contentFieldMapping := bleve.NewTextFieldMapping()
	contentFieldMapping.Store = false
	contentFieldMapping.IncludeInAll = true
	docMapping.AddFieldMappingsAt("content", contentFieldMapping)

	refFieldMapping := bleve.NewTextFieldMapping()
	refFieldMapping.Store = true
	refFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("ref", refFieldMapping)

	for _, keyword := range []string{"kind", "category"} {
		fm := bleve.NewKeywordFieldMapping()
		fm.Store = true
		fm.IncludeInAll = false
		docMapping.AddFieldMappingsAt(keyword, fm)
	}

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// IndexText adds or replaces the searchable text of ref.
func (ci *ContentIndex) IndexText(ref, kind, category, content string) error {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	ci.texts[ref] = content
	doc := bleveDocument{Content: content, Ref: ref, Kind: kind, Category: category}
	if err := ci.index.Index(ref, doc); err != nil {
		delete(ci.texts, ref)
		return fmt.Errorf("indexing %s: %w", ref, err)
	}
	return nil
}

func (ci *ContentIndex) Remove(ref string) error {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	delete(ci.texts, ref)
	if err := ci.index.Delete(ref); err != nil {
		return fmt.Errorf("removing %s from index: %w", ref, err)
	}
	return nil
}

// SearchResult groups the matching lines of one cataloged entry.
type SearchResult struct {
	Ref     string
	Matches []LineMatch
}

// LineMatch is a single matching line.
type LineMatch struct {
	LineNumber    int
	LineText      string
	ContextBefore []string
	ContextAfter  []string
}

// SearchOptions configures a content search.
type SearchOptions struct {
	Query        string
	Glob         string // Doublestar pattern restricting refs
	Kind         string // Restrict to KindFile or KindSample
	MaxResults   int
	ContextLines int
}

// Search runs a full-text query.
// Query format:
//   - Plain text: match query (word-level matching)
//   - "quoted text": phrase query
//   - /regex/: regexp query
func (ci *ContentIndex) Search(options SearchOptions) ([]SearchResult, int, error) {
	ci.mu.RLock()
	defer ci.mu.RUnlock()

	if options.MaxResults <= 0 {
		options.MaxResults = 50
	}
	if options.ContextLines < 0 {
		options.ContextLines = 0
	}
	glob := strings.ReplaceAll(options.Glob, "\\", "/")
	if glob != "" && !doublestar.ValidatePattern(glob) {
		return nil, 0, fmt.Errorf("invalid glob pattern: %s", options.Glob)
	}

	searchRequest := bleve.NewSearchRequest(buildQuery(options.Query))
	// Over-fetch because hits are filtered afterwards
	searchRequest.Size = options.MaxResults * 5
	searchRequest.Fields = []string{"ref", "kind"}

	searchResults, err := ci.index.Search(searchRequest)
	if err != nil {
		return nil, 0, fmt.Errorf("searching index: %w", err)
	}

	var results []SearchResult
	totalMatches := 0
	for _, hit := range searchResults.Hits {
		ref := hit.ID
		content, ok := ci.texts[ref]
		if !ok {
			continue
		}
		if options.Kind != "" {
			if kind, _ := hit.Fields["kind"].(string); kind != options.Kind {
				continue
			}
		}
		if glob != "" {
			matched, matchErr := doublestar.Match(glob, ref)
			if matchErr != nil || !matched {
				continue
			}
		}

		lineMatches := findMatchingLines(content, options.Query, options.ContextLines)
		if len(lineMatches) == 0 {
			continue
		}
		totalMatches += len(lineMatches)
		results = append(results, SearchResult{Ref: ref, Matches: lineMatches})

		if len(results) >= options.MaxResults {
			break
		}
	}
	return results, totalMatches, nil
}

func buildQuery(queryString string) query.Query {
	queryString = strings.TrimSpace(queryString)

	if isRegexQuery(queryString) {
		return bleve.NewRegexpQuery(queryString[1 : len(queryString)-1])
	}
	if strings.HasPrefix(queryString, "\"") && strings.HasSuffix(queryString, "\"") && len(queryString) > 2 {
		return bleve.NewMatchPhraseQuery(queryString[1 : len(queryString)-1])
	}
	return bleve.NewMatchQuery(queryString)
}

func findMatchingLines(content string, queryString string, contextLines int) []LineMatch {
	lines := strings.Split(content, "\n")
	matchLine := lineMatcher(queryString)

	var matches []LineMatch
	for lineIdx, line := range lines {
		if !matchLine(line) {
			continue
		}

		match := LineMatch{LineNumber: lineIdx + 1, LineText: line}
		if contextLines > 0 {
			start := max(lineIdx-contextLines, 0)
			match.ContextBefore = append(match.ContextBefore, lines[start:lineIdx]...)
			end := min(lineIdx+contextLines+1, len(lines))
			match.ContextAfter = append(match.ContextAfter, lines[lineIdx+1:end]...)
		}
		matches = append(matches, match)
	}
	return matches
}

// lineMatcher matches lines case-insensitively: /regex/ queries as regular
// expressions, everything else as a substring.
func lineMatcher(queryString string) func(string) bool {
	term := extractSearchTerm(queryString)
	if isRegexQuery(strings.TrimSpace(queryString)) {
		if re, err := regexp.Compile("(?i)" + term); err == nil {
			return re.MatchString
		}
	}
	termLower := strings.ToLower(term)
	return func(line string) bool {
		return strings.Contains(strings.ToLower(line), termLower)
	}
}

func isRegexQuery(q string) bool {
	return strings.HasPrefix(q, "/") && strings.HasSuffix(q, "/") && len(q) > 2
}

// extractSearchTerm strips query syntax to get the raw term for line matching.
func extractSearchTerm(queryString string) string {
	queryString = strings.TrimSpace(queryString)
	if len(queryString) > 2 {
		if (strings.HasPrefix(queryString, "/") && strings.HasSuffix(queryString, "/")) ||
			(strings.HasPrefix(queryString, "\"") && strings.HasSuffix(queryString, "\"")) {
			return queryString[1 : len(queryString)-1]
		}
	}
	return queryString
}

// DocumentCount returns the number of documents in the Bleve index.
func (ci *ContentIndex) DocumentCount() uint64 {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	count, _ := ci.index.DocCount()
	return count
}

func (ci *ContentIndex) Close() error {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	return ci.index.Close()
}

// Text returns the indexed text of ref.
func (ci *ContentIndex) Text(ref string) (string, bool) {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	content, ok := ci.texts[ref]
	return content, ok
}

// Clear drops all documents by recreating the index.
func (ci *ContentIndex) Clear() error {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	if err := ci.index.Close(); err != nil {
		return fmt.Errorf("closing old index: %w", err)
	}
	newIndex, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("creating new index: %w", err)
	}
	ci.index = newIndex
	ci.texts = make(map[string]string)
	return nil
}
