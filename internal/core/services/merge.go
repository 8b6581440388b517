package services

import (
	"sort"

	"github.com/kayf-project/retriever/internal/core/domain"
)

// mergeResultItems unions result groups into a single set with at most
// one item per signature. When two servers hold the same content the
// higher-scored sighting wins; on equal scores the newer one does. The
// merged set is ordered best first and truncated to cap.
func mergeResultItems(groups [][]domain.ResultItem, cap int) []domain.ResultItem {
	bySig := make(map[string]domain.ResultItem)
	order := make([]string, 0)

	for _, group := range groups {
		for _, item := range group {
			existing, seen := bySig[item.Signature]
			if !seen {
				bySig[item.Signature] = item
				order = append(order, item.Signature)
				continue
			}
			if item.Score > existing.Score ||
				(item.Score == existing.Score && item.Timestamp.After(existing.Timestamp)) {
				bySig[item.Signature] = item
			}
		}
	}

	merged := make([]domain.ResultItem, 0, len(order))
	for _, sig := range order {
		merged = append(merged, bySig[sig])
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})

	if cap > 0 && len(merged) > cap {
		merged = merged[:cap]
	}
	return merged
}

// uniqueStrings drops duplicates, keeping first-seen order. Two
// branches can both report the same downstream server.
func uniqueStrings(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	unique := ids[:0]
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	return unique
}

// mergeProvenance builds the contributing-server list: entry server
// first when it contributed, then each branch's chain in dispatch
// order, without duplicates.
func mergeProvenance(selfID string, selfContributed bool, chains [][]string) []string {
	seen := make(map[string]bool)
	provenance := make([]string, 0)

	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		provenance = append(provenance, id)
	}

	if selfContributed {
		add(selfID)
	}
	for _, chain := range chains {
		for _, id := range chain {
			add(id)
		}
	}
	return provenance
}
