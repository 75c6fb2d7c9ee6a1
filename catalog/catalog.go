// Package catalog keeps a searchable record of accepted items: a path index
// for glob lookups and a full-text index over their content.
package catalog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lexandro/contentsieve/item"
)

// MaxTextBytes is the largest file whose content is full-text indexed.
const MaxTextBytes = 1024 * 1024

// Catalog is the in-memory record of accepted items.
type Catalog struct {
	outDir  string
	entries *Entries
	content *ContentIndex
}

// New creates an empty catalog. File refs are made relative to outDir.
func New(outDir string) (*Catalog, error) {
	content, err := NewContentIndex()
	if err != nil {
		return nil, err
	}
	return &Catalog{outDir: outDir, entries: NewEntries(), content: content}, nil
}

func (c *Catalog) Entries() *Entries      { return c.entries }
func (c *Catalog) Content() *ContentIndex { return c.content }

// AddItem catalogs an accepted file by its destination. Text content up to
// MaxTextBytes is full-text indexed; larger or binary files are only listed.
func (c *Catalog) AddItem(it *item.Item) error {
	if it.Destination == "" {
		return fmt.Errorf("item %s has no destination", it.ID)
	}
	ref := c.fileRef(it.Destination)
	c.entries.Add(&Entry{
		Ref:          ref,
		Kind:         KindFile,
		Path:         it.Destination,
		Source:       it.Path,
		Category:     it.Category,
		SizeBytes:    it.SizeBytes,
		QualityScore: it.QualityScore,
		AddedAt:      time.Now(),
	})

	if it.SizeBytes > MaxTextBytes {
		return nil
	}
	text, ok, err := readText(it.Destination)
	if err != nil {
		return fmt.Errorf("reading %s for catalog: %w", it.Destination, err)
	}
	if !ok {
		return nil
	}
	return c.content.IndexText(ref, KindFile, it.Category, text)
}

// AddSample catalogs an accepted sample; prompt and response are searchable.
func (c *Catalog) AddSample(s *item.Sample) error {
	ref := SampleRef(s)
	c.entries.Add(&Entry{
		Ref:          ref,
		Kind:         KindSample,
		Source:       s.Producer,
		Category:     s.Domain,
		SizeBytes:    s.SizeBytes(),
		QualityScore: s.QualityScore,
		AddedAt:      time.Now(),
	})
	return c.content.IndexText(ref, KindSample, s.Domain, s.Prompt+"\n"+s.Response)
}

// SampleRef is the catalog key of a sample.
func SampleRef(s *item.Sample) string {
	return "samples/" + s.UnitID + "/" + s.ID
}

// Search runs a full-text query over accepted content.
func (c *Catalog) Search(options SearchOptions) ([]SearchResult, int, error) {
	return c.content.Search(options)
}

// Files returns entries whose ref matches a doublestar glob.
func (c *Catalog) Files(pattern string, maxResults int) ([]*Entry, error) {
	return c.entries.SearchByGlob(pattern, maxResults)
}

// Count returns the number of cataloged entries.
func (c *Catalog) Count() int {
	return c.entries.Count()
}

// Reset empties the catalog.
func (c *Catalog) Reset() error {
	c.entries.Clear()
	return c.content.Clear()
}

func (c *Catalog) Close() error {
	return c.content.Close()
}

func (c *Catalog) fileRef(dest string) string {
	if c.outDir != "" {
		if rel, err := filepath.Rel(c.outDir, dest); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(dest)
}

// readText returns the file content, or ok=false for binary content.
func readText(path string) (string, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxTextBytes+1))
	if err != nil {
		return "", false, err
	}
	if len(data) > MaxTextBytes || IsBinaryContent(data) {
		return "", false, nil
	}
	return string(data), true, nil
}
