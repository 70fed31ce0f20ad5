package aggregation

import (
	"container/heap"
	"slices"
	"sort"

	"console/schemas"
)

// Filter é o predicado aplicado depois do merge, nunca antes: trocar o
// filtro não reassina stream nenhum.
type Filter struct {
	Status string
}

func (f Filter) Matches(lead schemas.Lead) bool {
	if f.Status != "" && lead.Status != f.Status {
		return false
	}
	return true
}

// entryBefore define a ordem total da visão: last_updated decrescente, com
// desempate determinístico por (partner_id, lead_id) para timestamps
// iguais.
func entryBefore(a, b schemas.ViewEntry) bool {
	if !a.Lead.LastUpdated.Equal(b.Lead.LastUpdated) {
		return a.Lead.LastUpdated.After(b.Lead.LastUpdated)
	}
	if a.PartnerID != b.PartnerID {
		return a.PartnerID < b.PartnerID
	}
	return a.Lead.ID < b.Lead.ID
}

// Aggregator é a máquina de estados do merge: guarda uma run ordenada por
// parceiro e produz a visão consolidada com um merge de k vias. Ele não tem
// lock próprio — toda mutação acontece dentro da seção crítica de fold do
// multiplexer, que é escritor único.
type Aggregator struct {
	runs     map[string][]schemas.Lead
	degraded map[string]bool
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		runs:     make(map[string][]schemas.Lead),
		degraded: make(map[string]bool),
	}
}

// Fold substitui por completo a run do parceiro (last-writer-wins por
// parceiro: o stream dele já chega ordenado no tempo). Entradas duplicadas
// por id dentro do snapshot colapsam na mais recente. Runs dos outros
// parceiros não são tocadas.
func (a *Aggregator) Fold(partnerID string, snapshot []schemas.Lead) {
	run := make([]schemas.Lead, 0, len(snapshot))
	seen := make(map[string]bool, len(snapshot))

	sorted := slices.Clone(snapshot)
	slices.SortStableFunc(sorted, func(x, y schemas.Lead) int {
		switch {
		case x.LastUpdated.After(y.LastUpdated):
			return -1
		case y.LastUpdated.After(x.LastUpdated):
			return 1
		case x.ID < y.ID:
			return -1
		case x.ID > y.ID:
			return 1
		}
		return 0
	})

	for _, lead := range sorted {
		if seen[lead.ID] {
			continue
		}
		seen[lead.ID] = true
		lead.PartnerID = partnerID
		run = append(run, lead)
	}

	a.runs[partnerID] = run
}

// Drop remove o parceiro da visão (saiu do escopo).
func (a *Aggregator) Drop(partnerID string) {
	delete(a.runs, partnerID)
	delete(a.degraded, partnerID)
}

// Retain descarta todo parceiro fora do escopo dado.
func (a *Aggregator) Retain(scope map[string]bool) {
	for partnerID := range a.runs {
		if !scope[partnerID] {
			a.Drop(partnerID)
		}
	}
	for partnerID := range a.degraded {
		if !scope[partnerID] {
			a.Drop(partnerID)
		}
	}
}

// SetDegraded marca/desmarca o parceiro como degradado. A run dele fica na
// visão do jeito que estava: melhor mostrar dado velho marcado do que sumir
// com o parceiro.
func (a *Aggregator) SetDegraded(partnerID string, degraded bool) {
	if degraded {
		a.degraded[partnerID] = true
	} else {
		delete(a.degraded, partnerID)
	}
}

func (a *Aggregator) IsDegraded(partnerID string) bool {
	return a.degraded[partnerID]
}

type mergeCursor struct {
	partnerID string
	run       []schemas.Lead
	pos       int
}

type mergeHeap []*mergeCursor

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	a := schemas.ViewEntry{PartnerID: h[i].partnerID, Lead: h[i].run[h[i].pos]}
	b := schemas.ViewEntry{PartnerID: h[j].partnerID, Lead: h[j].run[h[j].pos]}
	return entryBefore(a, b)
}
func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)   { *h = append(*h, x.(*mergeCursor)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// View materializa a visão consolidada: merge de k vias sobre as runs já
// ordenadas (O(n log m), n entradas e m parceiros) e filtro aplicado na
// saída.
func (a *Aggregator) View(filter Filter) schemas.MergedView {
	cursors := mergeHeap{}
	total := 0
	for partnerID, run := range a.runs {
		if len(run) == 0 {
			continue
		}
		total += len(run)
		cursors = append(cursors, &mergeCursor{partnerID: partnerID, run: run})
	}
	heap.Init(&cursors)

	entries := make([]schemas.ViewEntry, 0, total)
	for cursors.Len() > 0 {
		top := cursors[0]
		entry := schemas.ViewEntry{PartnerID: top.partnerID, Lead: top.run[top.pos]}
		if filter.Matches(entry.Lead) {
			entries = append(entries, entry)
		}
		top.pos++
		if top.pos == len(top.run) {
			heap.Pop(&cursors)
		} else {
			heap.Fix(&cursors, 0)
		}
	}

	degraded := make([]string, 0, len(a.degraded))
	for partnerID := range a.degraded {
		degraded = append(degraded, partnerID)
	}
	sort.Strings(degraded)

	return schemas.MergedView{Entries: entries, Degraded: degraded}
}
