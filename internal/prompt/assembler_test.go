package prompt

import (
	"strings"
	"testing"

	"github.com/sszhu/biomni/internal/catalog"
	"github.com/sszhu/biomni/pkg/models"
)

func testSelection() catalog.Selection {
	return catalog.Selection{Resources: []catalog.Resource{
		{Name: "blast_search", Description: "Sequence similarity search", Category: catalog.CategoryTool},
		{Name: "anova", Description: "One-way ANOVA", Category: catalog.CategoryTool},
		{Name: "clinvar", Description: "ClinVar variants", Category: catalog.CategoryDataset},
		{Name: "scanpy", Description: "Single-cell analysis library", Category: catalog.CategoryKnowledge},
	}}
}

func TestAssemble_Deterministic(t *testing.T) {
	a := New(0)
	history := []models.Turn{
		{Role: models.RoleUser, Content: "analyze the cohort", Seq: 0},
		{Role: models.RoleAssistant, Content: "<execute lang=\"python\">x</execute>", Seq: 1},
	}

	p1 := a.Assemble(testSelection(), history)
	p2 := a.Assemble(testSelection(), history)

	if p1.System != p2.System {
		t.Error("Assemble() system prompt is not byte-identical across calls")
	}
	if len(p1.History) != len(p2.History) {
		t.Fatal("history lengths differ")
	}
	for i := range p1.History {
		if p1.History[i] != p2.History[i] {
			t.Errorf("history[%d] differs", i)
		}
	}
}

func TestAssemble_SectionOrderAndSorting(t *testing.T) {
	a := New(0)
	p := a.Assemble(testSelection(), nil)

	tools := strings.Index(p.System, "## Analysis tools")
	data := strings.Index(p.System, "## Data lake")
	libs := strings.Index(p.System, "## Software libraries")
	if tools == -1 || data == -1 || libs == -1 {
		t.Fatalf("missing section headers in:\n%s", p.System)
	}
	if !(tools < data && data < libs) {
		t.Error("sections out of canonical order")
	}

	// Within a category, entries sort by name regardless of rank order.
	anova := strings.Index(p.System, "- anova:")
	blast := strings.Index(p.System, "- blast_search:")
	if anova == -1 || blast == -1 || anova > blast {
		t.Error("tools not sorted by name")
	}
}

func TestAssemble_EmptySelectionOmitsSections(t *testing.T) {
	a := New(0)
	p := a.Assemble(catalog.Selection{}, nil)

	if strings.Contains(p.System, "## Analysis tools") {
		t.Error("empty selection still rendered a tools section")
	}
	if !strings.Contains(p.System, "<execute lang=") {
		t.Error("base instructions missing from system prompt")
	}
}

func TestAssemble_BudgetAdmitsByRank(t *testing.T) {
	// Tiny budget: only the first-ranked resource fits.
	a := New(5)
	sel := catalog.Selection{Resources: []catalog.Resource{
		{Name: "zzz_first_ranked", Description: "highest relevance", Category: catalog.CategoryTool},
		{Name: "aaa_second", Description: "lower relevance", Category: catalog.CategoryTool},
	}}

	p := a.Assemble(sel, nil)
	if !strings.Contains(p.System, "zzz_first_ranked") {
		t.Error("budget evicted the top-ranked resource")
	}
	if strings.Contains(p.System, "aaa_second") {
		t.Error("budget admitted a resource past the cap")
	}
}

func TestAssemble_CopiesHistory(t *testing.T) {
	a := New(0)
	history := []models.Turn{{Role: models.RoleUser, Content: "task", Seq: 0}}
	p := a.Assemble(testSelection(), history)

	history[0].Content = "mutated"
	if p.History[0].Content != "task" {
		t.Error("payload aliases caller history")
	}
}

func TestTokenCounter_Deterministic(t *testing.T) {
	c := NewTokenCounter()
	s := "single-cell RNA-seq differential expression"
	if c.Count(s) != c.Count(s) {
		t.Error("Count() not deterministic")
	}
	if c.Count(s) <= 0 {
		t.Error("Count() returned non-positive count")
	}
}
