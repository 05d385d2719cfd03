// Package catalog holds the static set of capabilities the agent may be
// told about: domain tool signatures, data lake entries, and software
// library descriptions. The catalog is loaded once at process start and
// is read-only for the life of the process; per-task relevance subsets
// are represented as Selection values.
package catalog

import (
	"fmt"
	"sort"
)

// Category groups resources by what kind of capability they describe.
type Category string

const (
	// CategoryTool is an invocable analysis function.
	CategoryTool Category = "tool"
	// CategoryDataset is a data lake entry.
	CategoryDataset Category = "dataset"
	// CategoryKnowledge is an importable software library or knowledge
	// document.
	CategoryKnowledge Category = "knowledge"
)

// categoryOrder fixes the ordering of categories in prompts and
// listings: tools, then datasets, then knowledge.
var categoryOrder = map[Category]int{
	CategoryTool:      0,
	CategoryDataset:   1,
	CategoryKnowledge: 2,
}

// Resource is one catalog entry.
type Resource struct {
	// Name is the unique capability name.
	Name string `yaml:"name"`
	// Description is the natural-language description shown to the model.
	Description string `yaml:"description"`
	// Category is assigned by the loader from the section the entry
	// appears in.
	Category Category `yaml:"-"`
	// NonCommercial marks datasets whose license excludes commercial
	// use; commercial mode filters them out.
	NonCommercial bool `yaml:"noncommercial,omitempty"`
}

// Catalog is the immutable, process-wide capability map.
type Catalog struct {
	resources []Resource
	byName    map[string]Resource
}

// New builds a catalog from resources. Duplicate names are an error:
// names are the join key between model output and the catalog, so they
// must be unambiguous.
func New(resources []Resource) (*Catalog, error) {
	byName := make(map[string]Resource, len(resources))
	for _, r := range resources {
		if r.Name == "" {
			return nil, fmt.Errorf("catalog entry with empty name (category %s)", r.Category)
		}
		if _, dup := byName[r.Name]; dup {
			return nil, fmt.Errorf("duplicate catalog entry %q", r.Name)
		}
		byName[r.Name] = r
	}

	sorted := make([]Resource, len(resources))
	copy(sorted, resources)
	sortResources(sorted)

	return &Catalog{resources: sorted, byName: byName}, nil
}

// sortResources orders by category then name, the canonical catalog
// order used everywhere (prompts, fallback truncation, listings).
func sortResources(rs []Resource) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Category != rs[j].Category {
			return categoryOrder[rs[i].Category] < categoryOrder[rs[j].Category]
		}
		return rs[i].Name < rs[j].Name
	})
}

// Resources returns all entries in canonical order. The returned slice
// is a copy; the catalog itself is never mutated.
func (c *Catalog) Resources() []Resource {
	out := make([]Resource, len(c.resources))
	copy(out, c.resources)
	return out
}

// Get looks up an entry by name.
func (c *Catalog) Get(name string) (Resource, bool) {
	r, ok := c.byName[name]
	return r, ok
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.resources)
}

// FilterCommercial returns a catalog without non-commercially-licensed
// entries. With commercialMode false the receiver is returned unchanged.
func (c *Catalog) FilterCommercial(commercialMode bool) *Catalog {
	if !commercialMode {
		return c
	}
	var kept []Resource
	for _, r := range c.resources {
		if !r.NonCommercial {
			kept = append(kept, r)
		}
	}
	filtered, _ := New(kept)
	return filtered
}

// Selection is a per-task, immutable relevance subset of the catalog,
// in ranked order (most relevant first). It is owned by the single task
// run that produced it.
type Selection struct {
	// Resources is the ranked subset.
	Resources []Resource
	// Fallback is set when the selection came from the degraded
	// truncate-the-catalog path rather than a model ranking.
	Fallback bool
}

// ByCategory splits the selection by category, preserving rank order
// within each.
func (s Selection) ByCategory() map[Category][]Resource {
	out := make(map[Category][]Resource)
	for _, r := range s.Resources {
		out[r.Category] = append(out[r.Category], r)
	}
	return out
}
