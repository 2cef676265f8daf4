package service

import (
	"fmt"

	ratedomain "github.com/smallbiznis/taxflow/internal/rate/domain"
)

// SortByCompound orders rates so every compound_on dependency is applied
// before its dependents. compound_on references are a dependency graph
// keyed by tax type; a cycle returns ErrCompoundCycle up front instead of
// producing an order that silently drops compounding amounts.
//
// References to tax types absent from the input set are ignored: the
// referenced amount does not exist, so it contributes nothing.
func SortByCompound(rates []ratedomain.Rate) ([]ratedomain.Rate, error) {
	byType := make(map[string][]int, len(rates))
	for i, r := range rates {
		byType[r.TaxType] = append(byType[r.TaxType], i)
	}

	// indegree and adjacency at the tax-type level.
	indegree := make(map[string]int, len(byType))
	dependents := make(map[string][]string, len(byType))
	for taxType := range byType {
		indegree[taxType] = 0
	}
	for _, r := range rates {
		for _, dep := range r.CompoundOn {
			if _, present := byType[dep]; !present || dep == r.TaxType {
				continue
			}
			if !contains(dependents[dep], r.TaxType) {
				dependents[dep] = append(dependents[dep], r.TaxType)
				indegree[r.TaxType]++
			}
		}
	}

	// Kahn's algorithm. The ready queue preserves the store's ordering
	// (first occurrence index) so the result stays deterministic.
	var queue []string
	for i, r := range rates {
		if indegree[r.TaxType] == 0 && byType[r.TaxType][0] == i {
			queue = append(queue, r.TaxType)
		}
	}

	ordered := make([]ratedomain.Rate, 0, len(rates))
	resolved := 0
	for len(queue) > 0 {
		taxType := queue[0]
		queue = queue[1:]
		resolved++

		for _, i := range byType[taxType] {
			ordered = append(ordered, rates[i])
		}
		for _, next := range dependents[taxType] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if resolved != len(byType) {
		remaining := make([]string, 0)
		for taxType, deg := range indegree {
			if deg > 0 {
				remaining = append(remaining, taxType)
			}
		}
		return nil, fmt.Errorf("%w: unresolved tax types %v", ratedomain.ErrCompoundCycle, remaining)
	}
	return ordered, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
