package search

// Record pairs an external entity id with its embedding vector, as
// scanned from the relational store or handed to an index for loading.
type Record struct {
	id     int64
	vector []float32
}

// NewRecord creates a new Record.
func NewRecord(id int64, vector []float32) Record {
	v := make([]float32, len(vector))
	copy(v, vector)
	return Record{id: id, vector: v}
}

// ID returns the external entity id.
func (r Record) ID() int64 { return r.id }

// Vector returns a copy of the embedding vector.
func (r Record) Vector() []float32 {
	v := make([]float32, len(r.vector))
	copy(v, r.vector)
	return v
}

// Dimension returns the vector dimension.
func (r Record) Dimension() int { return len(r.vector) }

// Neighbor is one ranked search result from an index. Distance holds
// the metric's raw ranking value: squared Euclidean distance for
// MetricL2 (ascending, smaller is closer), inner-product similarity
// for MetricIP (descending, larger is closer).
type Neighbor struct {
	id       int64
	distance float32
}

// NewNeighbor creates a new Neighbor.
func NewNeighbor(id int64, distance float32) Neighbor {
	return Neighbor{id: id, distance: distance}
}

// ID returns the matched entity id.
func (n Neighbor) ID() int64 { return n.id }

// Distance returns the raw ranking value.
func (n Neighbor) Distance() float32 { return n.distance }
