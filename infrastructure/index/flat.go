// Package index provides the exact nearest-neighbor index: an
// in-memory flat structure with a binary on-disk form, a locked store
// per collection, and the pair coordinating both collections.
package index

import (
	"sort"

	"github.com/helixml/scholar/domain/search"
)

// flatIndex is the unlocked in-memory structure: parallel id and
// vector slices scanned linearly on search. Store serializes access.
type flatIndex struct {
	dim     int
	metric  search.Metric
	ids     []int64
	vectors [][]float32
	byID    map[int64]int
}

func newFlatIndex(dim int, metric search.Metric) *flatIndex {
	return &flatIndex{
		dim:    dim,
		metric: metric,
		byID:   make(map[int64]int),
	}
}

func (f *flatIndex) count() int { return len(f.ids) }

// add appends a vector. The caller has already validated the dimension,
// normalized for the metric, and removed any previous entry for id.
func (f *flatIndex) add(id int64, vector []float32) {
	v := make([]float32, len(vector))
	copy(v, vector)
	f.byID[id] = len(f.ids)
	f.ids = append(f.ids, id)
	f.vectors = append(f.vectors, v)
}

// remove deletes id if present, swapping the last entry into its slot.
func (f *flatIndex) remove(id int64) bool {
	pos, ok := f.byID[id]
	if !ok {
		return false
	}
	last := len(f.ids) - 1
	if pos != last {
		f.ids[pos] = f.ids[last]
		f.vectors[pos] = f.vectors[last]
		f.byID[f.ids[pos]] = pos
	}
	f.ids = f.ids[:last]
	f.vectors[last] = nil
	f.vectors = f.vectors[:last]
	delete(f.byID, id)
	return true
}

// search scans every stored vector and returns the k best neighbors:
// ascending squared L2 distance, or descending inner product.
func (f *flatIndex) search(query []float32, k int) []search.Neighbor {
	if k <= 0 || len(f.ids) == 0 {
		return []search.Neighbor{}
	}

	neighbors := make([]search.Neighbor, 0, len(f.ids))
	for i, id := range f.ids {
		neighbors = append(neighbors, search.NewNeighbor(id, f.rank(query, f.vectors[i])))
	}

	if f.metric == search.MetricIP {
		sort.SliceStable(neighbors, func(i, j int) bool {
			return neighbors[i].Distance() > neighbors[j].Distance()
		})
	} else {
		sort.SliceStable(neighbors, func(i, j int) bool {
			return neighbors[i].Distance() < neighbors[j].Distance()
		})
	}

	if k > len(neighbors) {
		k = len(neighbors)
	}
	return neighbors[:k]
}

// rank computes the metric's raw ranking value for one stored vector.
func (f *flatIndex) rank(query, stored []float32) float32 {
	if f.metric == search.MetricIP {
		return float32(search.Dot(query, stored))
	}
	var sum float64
	for i := range stored {
		d := float64(query[i]) - float64(stored[i])
		sum += d * d
	}
	return float32(sum)
}
