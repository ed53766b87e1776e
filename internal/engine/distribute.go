package engine

import (
	"sort"

	"github.com/niuniu-server/niuniu-load/internal/scenario"
)

// Distribute splits users across profiles in proportion to their weights
// using the largest remainder method. Ties go to the earlier profile.
// Profiles with a non-positive weight get no users.
func Distribute(users int, profiles []*scenario.Profile) []int {
	counts := make([]int, len(profiles))
	if users <= 0 || len(profiles) == 0 {
		return counts
	}

	totalWeight := 0
	for _, p := range profiles {
		if p.Weight > 0 {
			totalWeight += p.Weight
		}
	}
	if totalWeight == 0 {
		return counts
	}

	type remainder struct {
		idx  int
		frac float64
	}
	rems := make([]remainder, 0, len(profiles))
	assigned := 0
	for i, p := range profiles {
		if p.Weight <= 0 {
			continue
		}
		exact := float64(users) * float64(p.Weight) / float64(totalWeight)
		counts[i] = int(exact)
		assigned += counts[i]
		rems = append(rems, remainder{idx: i, frac: exact - float64(counts[i])})
	}

	sort.SliceStable(rems, func(a, b int) bool {
		return rems[a].frac > rems[b].frac
	})
	for i := 0; assigned < users; i++ {
		counts[rems[i%len(rems)].idx]++
		assigned++
	}

	return counts
}

// SpawnOrder interleaves the distributed users so that every prefix of the
// order stays close to the target ratio.
func SpawnOrder(users int, profiles []*scenario.Profile) []*scenario.Profile {
	counts := Distribute(users, profiles)
	spawned := make([]int, len(profiles))

	order := make([]*scenario.Profile, 0, users)
	for len(order) < users {
		best := -1
		var bestRatio float64
		for i, target := range counts {
			if spawned[i] >= target {
				continue
			}
			ratio := float64(spawned[i]) / float64(target)
			if best == -1 || ratio < bestRatio {
				best, bestRatio = i, ratio
			}
		}
		if best == -1 {
			break
		}
		spawned[best]++
		order = append(order, profiles[best])
	}
	return order
}
