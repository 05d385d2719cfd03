package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func testResources() []Resource {
	return []Resource{
		{Name: "blast_search", Description: "Sequence similarity search", Category: CategoryTool},
		{Name: "anova", Description: "One-way ANOVA", Category: CategoryTool},
		{Name: "gtex", Description: "GTEx expression data", Category: CategoryDataset, NonCommercial: true},
		{Name: "clinvar", Description: "ClinVar variants", Category: CategoryDataset},
		{Name: "scanpy", Description: "Single-cell analysis library", Category: CategoryKnowledge},
	}
}

func TestNew_CanonicalOrder(t *testing.T) {
	c, err := New(testResources())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var names []string
	for _, r := range c.Resources() {
		names = append(names, r.Name)
	}
	want := []string{"anova", "blast_search", "clinvar", "gtex", "scanpy"}
	if len(names) != len(want) {
		t.Fatalf("Resources() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Resources()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestNew_RejectsDuplicates(t *testing.T) {
	rs := []Resource{
		{Name: "anova", Category: CategoryTool},
		{Name: "anova", Category: CategoryDataset},
	}
	if _, err := New(rs); err == nil {
		t.Error("New() accepted duplicate names")
	}
}

func TestCatalog_FilterCommercial(t *testing.T) {
	c, err := New(testResources())
	if err != nil {
		t.Fatal(err)
	}

	unfiltered := c.FilterCommercial(false)
	if unfiltered.Len() != c.Len() {
		t.Errorf("FilterCommercial(false) changed size: %d != %d", unfiltered.Len(), c.Len())
	}

	filtered := c.FilterCommercial(true)
	if filtered.Len() != c.Len()-1 {
		t.Errorf("FilterCommercial(true) Len() = %d, want %d", filtered.Len(), c.Len()-1)
	}
	if _, ok := filtered.Get("gtex"); ok {
		t.Error("non-commercial dataset survived commercial mode")
	}
	if _, ok := filtered.Get("clinvar"); !ok {
		t.Error("commercially-licensed dataset was dropped")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	content := `
tools:
  - name: blast_search
    description: Sequence similarity search
datasets:
  - name: gtex
    description: GTEx expression data
    noncommercial: true
knowledge:
  - name: scanpy
    description: Single-cell analysis library
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}

	r, ok := c.Get("gtex")
	if !ok {
		t.Fatal("gtex not found")
	}
	if r.Category != CategoryDataset {
		t.Errorf("gtex category = %q, want dataset", r.Category)
	}
	if !r.NonCommercial {
		t.Error("gtex noncommercial flag not parsed")
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadFile() on missing file returned nil error")
	}

	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(empty); err == nil {
		t.Error("LoadFile() on empty catalog returned nil error")
	}
}

func TestSelection_ByCategory(t *testing.T) {
	sel := Selection{Resources: []Resource{
		{Name: "b", Category: CategoryTool},
		{Name: "a", Category: CategoryDataset},
		{Name: "c", Category: CategoryTool},
	}}

	by := sel.ByCategory()
	if len(by[CategoryTool]) != 2 || len(by[CategoryDataset]) != 1 {
		t.Fatalf("ByCategory() sizes wrong: %+v", by)
	}
	// Rank order preserved within a category.
	if by[CategoryTool][0].Name != "b" || by[CategoryTool][1].Name != "c" {
		t.Errorf("rank order not preserved: %+v", by[CategoryTool])
	}
}
