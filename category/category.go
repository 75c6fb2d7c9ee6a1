package category

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Other is the bucket for items matching no table entry.
const Other = "other"

var ErrInvalidTable = errors.New("invalid category table")

// Entry maps a category name to the extensions (without dot) that belong to it.
type Entry struct {
	Name       string   `yaml:"name" json:"name"`
	Extensions []string `yaml:"extensions" json:"extensions"`
}

// Table is an ordered list of entries checked in priority order; first match wins.
type Table []Entry

// Validate rejects empty names, empty extensions, the reserved "other" name,
// repeated category names and any extension listed under more than one category.
func (t Table) Validate() error {
	seenNames := make(map[string]bool, len(t))
	owner := make(map[string]string)

	for i, entry := range t {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return fmt.Errorf("%w: entry %d has an empty name", ErrInvalidTable, i)
		}
		if strings.EqualFold(name, Other) {
			return fmt.Errorf("%w: %q is reserved for unmatched items", ErrInvalidTable, Other)
		}
		if seenNames[name] {
			return fmt.Errorf("%w: category %q listed twice", ErrInvalidTable, name)
		}
		seenNames[name] = true

		for _, raw := range entry.Extensions {
			ext := normalizeExtension(raw)
			if ext == "" {
				return fmt.Errorf("%w: category %q has an empty extension", ErrInvalidTable, name)
			}
			if prev, ok := owner[ext]; ok {
				return fmt.Errorf("%w: extension %q listed under both %q and %q", ErrInvalidTable, ext, prev, name)
			}
			owner[ext] = name
		}
	}
	return nil
}

// Names returns the category names in priority order followed by "other".
func (t Table) Names() []string {
	names := make([]string, 0, len(t)+1)
	for _, entry := range t {
		names = append(names, entry.Name)
	}
	return append(names, Other)
}

// Categorizer assigns categories from a validated table.
type Categorizer struct {
	names []string
	sets  []map[string]struct{}
}

// NewCategorizer validates the table once and prepares per-entry extension sets.
func NewCategorizer(table Table) (*Categorizer, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	c := &Categorizer{
		names: make([]string, len(table)),
		sets:  make([]map[string]struct{}, len(table)),
	}
	for i, entry := range table {
		c.names[i] = strings.TrimSpace(entry.Name)
		set := make(map[string]struct{}, len(entry.Extensions))
		for _, ext := range entry.Extensions {
			set[normalizeExtension(ext)] = struct{}{}
		}
		c.sets[i] = set
	}
	return c, nil
}

// Categorize maps an extension (with or without dot, any case) to a category name.
func (c *Categorizer) Categorize(extension string) string {
	ext := normalizeExtension(extension)
	if ext == "" {
		return Other
	}
	for i, set := range c.sets {
		if _, ok := set[ext]; ok {
			return c.names[i]
		}
	}
	return Other
}

// CategorizePath categorizes by extension, falling back to well-known
// extensionless file names (Makefile, Dockerfile, ...).
func (c *Categorizer) CategorizePath(path string) string {
	ext := ExtensionOf(path)
	if ext != "" {
		return c.Categorize(ext)
	}
	if alias, ok := FilenameAliases[strings.ToLower(filepath.Base(path))]; ok {
		return c.Categorize(alias)
	}
	return Other
}

// ExtensionOf returns the lowercased extension of path without the dot.
func ExtensionOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
