// Package retriever selects the task-relevant subset of the resource
// catalog with a single model call. Selection is a soft relevance filter
// that bounds prompt size and cost, not a security boundary: the model's
// answer is validated against the catalog, and any selection failure
// degrades to a truncated copy of the catalog rather than failing the
// task.
package retriever

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/sszhu/biomni/internal/catalog"
	"github.com/sszhu/biomni/internal/llm"
	"github.com/sszhu/biomni/pkg/models"
)

// Retriever performs per-task resource selection.
type Retriever struct {
	invoker llm.Invoker
	// limit bounds the number of selected resources per category.
	limit int
}

// New creates a retriever. limit bounds results per category; values
// below 1 fall back to 25.
func New(invoker llm.Invoker, limit int) *Retriever {
	if limit < 1 {
		limit = 25
	}
	return &Retriever{invoker: invoker, limit: limit}
}

const selectionSystem = `You are assisting an autonomous research agent by picking which resources
it should be told about for a task. You are given the task and the full
resource catalog (name and description per entry).

Reply with a JSON array of resource names drawn from the catalog, most
relevant first. Include only resources genuinely useful for the task.
Reply with the JSON array only, no other text.`

// Select returns the relevant subset of cat for the task, ranked most
// relevant first and capped at the per-category limit. It never returns
// an error: any failure in the selection call degrades to the catalog
// head in canonical order.
func (r *Retriever) Select(ctx context.Context, task string, cat *catalog.Catalog) catalog.Selection {
	resp, err := r.invoker.Invoke(ctx, llm.Request{
		System: selectionSystem,
		Messages: []llm.Message{{
			Role:    models.RoleUser,
			Content: selectionPrompt(task, cat),
		}},
	})
	if err != nil {
		log.Printf("[retriever] selection call failed, using catalog fallback: %v", err)
		return fallback(cat, r.limit)
	}

	names, err := parseNames(resp.Text)
	if err != nil {
		log.Printf("[retriever] unparseable selection, using catalog fallback: %v", err)
		return fallback(cat, r.limit)
	}

	// Model output is not ground truth for membership: drop anything
	// that is not actually in the catalog, and dedupe.
	perCategory := make(map[catalog.Category]int)
	seen := make(map[string]bool)
	var chosen []catalog.Resource
	for _, name := range names {
		res, ok := cat.Get(name)
		if !ok || seen[name] {
			continue
		}
		if perCategory[res.Category] >= r.limit {
			continue
		}
		seen[name] = true
		perCategory[res.Category]++
		chosen = append(chosen, res)
	}

	if len(chosen) == 0 {
		log.Printf("[retriever] selection matched nothing in the catalog, using fallback")
		return fallback(cat, r.limit)
	}

	return catalog.Selection{Resources: chosen}
}

// selectionPrompt serializes the task and the full catalog for the
// selection call.
func selectionPrompt(task string, cat *catalog.Catalog) string {
	var b strings.Builder
	b.WriteString("Task:\n")
	b.WriteString(task)
	b.WriteString("\n\nCatalog:\n")
	for _, res := range cat.Resources() {
		fmt.Fprintf(&b, "- %s (%s): %s\n", res.Name, res.Category, res.Description)
	}
	return b.String()
}

// parseNames extracts the JSON name array from the model reply,
// tolerating a markdown code fence around it.
func parseNames(text string) ([]string, error) {
	text = strings.TrimSpace(text)

	if start := strings.Index(text, "["); start != -1 {
		if end := strings.LastIndex(text, "]"); end > start {
			text = text[start : end+1]
		}
	}

	var names []string
	if err := json.Unmarshal([]byte(text), &names); err != nil {
		return nil, fmt.Errorf("decode selection: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("selection is empty")
	}
	return names, nil
}

// fallback truncates the catalog to limit entries per category in
// canonical order. It is never empty for a non-empty catalog.
func fallback(cat *catalog.Catalog, limit int) catalog.Selection {
	perCategory := make(map[catalog.Category]int)
	var chosen []catalog.Resource
	for _, res := range cat.Resources() {
		if perCategory[res.Category] >= limit {
			continue
		}
		perCategory[res.Category]++
		chosen = append(chosen, res)
	}
	return catalog.Selection{Resources: chosen, Fallback: true}
}
