package corpus

// FallbackAuthorName is stored when an import row carries no usable
// author name.
const FallbackAuthorName = "Unknown"

// Author represents someone who wrote one or more abstracts. The vector
// is the componentwise mean of the linked abstracts' vectors; it is
// absent when no linked abstract has been embedded.
type Author struct {
	id     int64
	name   string
	vector []float32
}

// NewAuthor creates an Author without an aggregate vector. An empty
// name falls back to FallbackAuthorName.
func NewAuthor(id int64, name string) Author {
	if name == "" {
		name = FallbackAuthorName
	}
	return Author{id: id, name: name}
}

// ReconstructAuthor reconstructs an Author from persistence.
func ReconstructAuthor(id int64, name string, vector []float32) Author {
	var v []float32
	if vector != nil {
		v = make([]float32, len(vector))
		copy(v, vector)
	}
	return Author{id: id, name: name, vector: v}
}

// ID returns the author id.
func (a Author) ID() int64 { return a.id }

// Name returns the author display name.
func (a Author) Name() string { return a.name }

// Vector returns a copy of the aggregate vector, nil when absent.
func (a Author) Vector() []float32 {
	if a.vector == nil {
		return nil
	}
	v := make([]float32, len(a.vector))
	copy(v, a.vector)
	return v
}

// HasVector reports whether the author has an aggregate vector.
func (a Author) HasVector() bool { return a.vector != nil }

// WithName returns a copy with the given display name.
func (a Author) WithName(name string) Author {
	a.name = name
	return a
}

// WithVector returns a copy carrying the given aggregate vector.
func (a Author) WithVector(vector []float32) Author {
	v := make([]float32, len(vector))
	copy(v, vector)
	a.vector = v
	return a
}

// WithoutVector returns a copy with the aggregate vector cleared.
func (a Author) WithoutVector() Author {
	a.vector = nil
	return a
}

// VectorUpdate carries one author's recomputed aggregate vector to the
// store. A nil vector clears the stored one.
type VectorUpdate struct {
	authorID int64
	vector   []float32
}

// NewVectorUpdate creates an update that stores the given vector.
func NewVectorUpdate(authorID int64, vector []float32) VectorUpdate {
	v := make([]float32, len(vector))
	copy(v, vector)
	return VectorUpdate{authorID: authorID, vector: v}
}

// NewVectorClear creates an update that clears the stored vector.
func NewVectorClear(authorID int64) VectorUpdate {
	return VectorUpdate{authorID: authorID}
}

// AuthorID returns the author the update applies to.
func (u VectorUpdate) AuthorID() int64 { return u.authorID }

// Vector returns a copy of the new vector, nil when the update clears.
func (u VectorUpdate) Vector() []float32 {
	if u.vector == nil {
		return nil
	}
	v := make([]float32, len(u.vector))
	copy(v, u.vector)
	return v
}

// Clears reports whether the update clears the stored vector.
func (u VectorUpdate) Clears() bool { return u.vector == nil }
