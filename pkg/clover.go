package merger

// Addback folds the hits of one event into one cluster per clover group.
// Hits below threshold are ignored. Clusters keep the order in which their
// group was first seen; the time and channel of a cluster are those of its
// most energetic hit, the first one winning ties.
func Addback(hits []CloverHit, groups CloverGroups, threshold float64) []AddbackCluster {
	clusters := make([]AddbackCluster, 0, len(hits))
	clusterGroups := make([]int, 0, len(hits))

	for _, hit := range hits {
		if hit.Energy < threshold {
			continue
		}
		group := groups.Group(hit.Channel)
		idx := -1
		for i, g := range clusterGroups {
			if g == group {
				idx = i
				break
			}
		}
		if idx < 0 {
			clusters = append(clusters, AddbackCluster{
				Energy:    hit.Energy,
				Time:      hit.Time,
				Channel:   hit.Channel,
				MaxEnergy: hit.Energy,
			})
			clusterGroups = append(clusterGroups, group)
			continue
		}
		c := &clusters[idx]
		c.Energy += hit.Energy
		if hit.Energy > c.MaxEnergy {
			c.Time = hit.Time
			c.Channel = hit.Channel
			c.MaxEnergy = hit.Energy
		}
	}
	return clusters
}

// CoincidencePairs expands n entries into every ordered pair (i, j) with
// i != j, i varying slowest.
func CoincidencePairs(n int, at func(i int) (energy, time float64)) []CoincidencePair {
	if n < 2 {
		return nil
	}
	pairs := make([]CoincidencePair, 0, n*(n-1))
	for i := 0; i < n; i++ {
		e1, t1 := at(i)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			e2, t2 := at(j)
			pairs = append(pairs, CoincidencePair{E1: e1, T1: t1, E2: e2, T2: t2})
		}
	}
	return pairs
}

func CloverPairs(hits []CloverHit) []CoincidencePair {
	return CoincidencePairs(len(hits), func(i int) (float64, float64) {
		return hits[i].Energy, hits[i].Time
	})
}

func AddbackPairs(clusters []AddbackCluster) []CoincidencePair {
	return CoincidencePairs(len(clusters), func(i int) (float64, float64) {
		return clusters[i].Energy, clusters[i].Time
	})
}

// CorrectCloverTimes keeps the high-gain hits and expresses their time
// relative to the beta, walk corrected.
func CorrectCloverTimes(hits []CloverHit, betaTime float64) []CloverHit {
	out := make([]CloverHit, 0, len(hits))
	for _, hit := range hits {
		if !hit.HighGain {
			continue
		}
		hit.Time = hit.Time - betaTime - GetBetaGammaWalk(hit.Energy)
		out = append(out, hit)
	}
	return out
}
