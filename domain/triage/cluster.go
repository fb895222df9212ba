package triage

import (
	"sort"
	"sync"

	"seqtriage/domain/sequence"
)

// DefaultIdentityThreshold is the pairwise identity at or above which two
// candidates are considered near-duplicates of each other.
const DefaultIdentityThreshold = 0.95

// Cluster is one near-duplicate group. Indices refer to positions in the
// candidate slice handed to ClusterCandidates.
type Cluster struct {
	Members        []int `json:"members"`
	Representative int   `json:"representative"`
}

// ClusterCandidates partitions candidates into near-duplicate clusters with
// a greedy single-pass sweep: candidates are visited in fingerprint order,
// each unassigned candidate seeds a new cluster and claims every remaining
// unassigned candidate within the identity threshold of the seed.
//
// The fingerprint pre-sort makes the partition a pure function of the
// candidate set: input order cannot change seed selection, so two runs over
// the same candidates always produce the same clusters. Greedy sweeps are
// order-sensitive without it.
//
// workers bounds the comparison fan-out per seed; values < 1 select a
// default sized for the workload.
func ClusterCandidates(candidates []Candidate, threshold float64, workers int) []Cluster {
	if len(candidates) == 0 {
		return nil
	}

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return candidates[order[a]].Fingerprint < candidates[order[b]].Fingerprint
	})

	assigned := make([]bool, len(candidates))
	var clusters []Cluster

	for pos, seed := range order {
		if assigned[seed] {
			continue
		}
		assigned[seed] = true
		members := []int{seed}

		pending := make([]int, 0, len(order)-pos-1)
		for _, j := range order[pos+1:] {
			if !assigned[j] {
				pending = append(pending, j)
			}
		}
		for _, j := range matchSeed(candidates, seed, pending, threshold, workers) {
			assigned[j] = true
			members = append(members, j)
		}

		clusters = append(clusters, Cluster{
			Members:        members,
			Representative: pickRepresentative(candidates, members),
		})
	}
	return clusters
}

// matchSeed compares the seed against every pending candidate and returns,
// in pending order, those whose identity to the seed meets the threshold.
// Comparisons are independent, so they fan out across a bounded pool.
func matchSeed(candidates []Candidate, seed int, pending []int, threshold float64, workers int) []int {
	if len(pending) == 0 {
		return nil
	}

	numWorkers := workers
	if numWorkers < 1 {
		numWorkers = 4
		if len(pending) < 100 {
			numWorkers = 1
		}
	}

	type matchResult struct {
		pos     int
		matched bool
	}

	workChan := make(chan int, len(pending))
	resultChan := make(chan matchResult, len(pending))

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pos := range workChan {
				identity := sequence.Identity(candidates[seed].Sequence, candidates[pending[pos]].Sequence)
				resultChan <- matchResult{pos: pos, matched: identity >= threshold}
			}
		}()
	}

	go func() {
		for pos := range pending {
			workChan <- pos
		}
		close(workChan)
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	matched := make([]bool, len(pending))
	for res := range resultChan {
		matched[res.pos] = res.matched
	}

	var out []int
	for pos, j := range pending {
		if matched[pos] {
			out = append(out, j)
		}
	}
	return out
}

// pickRepresentative selects the cluster member with the lexicographically
// greatest (novelty, research score) pair. Members arrive in deterministic
// sweep order and ties keep the earliest, so the choice is stable.
func pickRepresentative(candidates []Candidate, members []int) int {
	best := members[0]
	for _, m := range members[1:] {
		bm, bb := candidates[m].Metrics, candidates[best].Metrics
		if bm.Novelty > bb.Novelty || (bm.Novelty == bb.Novelty && bm.Research > bb.Research) {
			best = m
		}
	}
	return best
}
