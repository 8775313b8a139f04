// Package dedup implements the near-duplicate detector from
// SPEC_FULL.md §4.5. No teacher file implements duplicate-group detection;
// this is written fresh using vecmath's cosine similarity as the pairwise
// metric and the teacher's small-struct-method style.
package dedup

import (
	"sort"

	"github.com/shmor3/simse/internal/model"
	"github.com/shmor3/simse/internal/vecmath"
)

// CheckDuplicate returns the existing volume whose cosine similarity to
// candidate is both >= threshold and the maximum across volumes, or false
// if none qualifies. threshold <= 0 always reports no duplicate (per
// spec.md §9's resolved open question).
func CheckDuplicate(candidate []float32, volumes []model.Volume, threshold float64) (model.Volume, bool) {
	if threshold <= 0 {
		return model.Volume{}, false
	}
	var best model.Volume
	bestSim := -2.0 // below any valid cosine value
	found := false
	for _, v := range volumes {
		sim := vecmath.CosineSimilarity(candidate, v.Embedding)
		if sim >= threshold && sim > bestSim {
			best = v
			bestSim = sim
			found = true
		}
	}
	return best, found
}

// union-find for FindDuplicateGroups.
type unionFind struct {
	parent map[string]string
}

func newUnionFind(ids []string) *unionFind {
	uf := &unionFind{parent: make(map[string]string, len(ids))}
	for _, id := range ids {
		uf.parent[id] = id
	}
	return uf
}

func (uf *unionFind) find(id string) string {
	for uf.parent[id] != id {
		uf.parent[id] = uf.parent[uf.parent[id]]
		id = uf.parent[id]
	}
	return id
}

func (uf *unionFind) union(a, b string) {
	ra, rb := uf.find(a), uf.find(b)
	if ra != rb {
		uf.parent[ra] = rb
	}
}

// FindDuplicateGroups builds the undirected graph with an edge between
// every pair of volumes whose cosine similarity is >= threshold, and
// returns each connected component of size >= 2 with a deterministic
// representative (earliest timestamp, ties broken by id) and the
// component's mean pairwise similarity. O(n^2) pairwise scan, which
// SPEC_FULL.md explicitly permits for now (§9 open question).
func FindDuplicateGroups(volumes []model.Volume, threshold float64) []model.DuplicateGroup {
	if threshold <= 0 || len(volumes) < 2 {
		return nil
	}
	ids := make([]string, len(volumes))
	byID := make(map[string]model.Volume, len(volumes))
	for i, v := range volumes {
		ids[i] = v.ID
		byID[v.ID] = v
	}
	uf := newUnionFind(ids)

	type pairSim struct {
		a, b string
		sim  float64
	}
	var edges []pairSim
	for i := 0; i < len(volumes); i++ {
		for j := i + 1; j < len(volumes); j++ {
			sim := vecmath.CosineSimilarity(volumes[i].Embedding, volumes[j].Embedding)
			if sim >= threshold {
				uf.union(volumes[i].ID, volumes[j].ID)
				edges = append(edges, pairSim{volumes[i].ID, volumes[j].ID, sim})
			}
		}
	}

	members := map[string][]string{}
	for _, id := range ids {
		root := uf.find(id)
		members[root] = append(members[root], id)
	}

	var simSum, simCount = map[string]float64{}, map[string]int{}
	for _, e := range edges {
		root := uf.find(e.a)
		simSum[root] += e.sim
		simCount[root]++
	}

	var groups []model.DuplicateGroup
	for root, memberIDs := range members {
		if len(memberIDs) < 2 {
			continue
		}
		sort.Slice(memberIDs, func(i, j int) bool {
			vi, vj := byID[memberIDs[i]], byID[memberIDs[j]]
			if vi.Timestamp != vj.Timestamp {
				return vi.Timestamp < vj.Timestamp
			}
			return vi.ID < vj.ID
		})
		mean := 0.0
		if simCount[root] > 0 {
			mean = simSum[root] / float64(simCount[root])
		}
		groups = append(groups, model.DuplicateGroup{
			RepresentativeID: memberIDs[0],
			MemberIDs:        memberIDs,
			MeanSimilarity:   mean,
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].RepresentativeID < groups[j].RepresentativeID
	})
	return groups
}
