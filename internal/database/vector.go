package database

import (
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Vector wraps a float32 slice for use as an embedding column value. It
// implements sql.Scanner and driver.Valuer, storing the components as a
// little-endian float32 blob. The blob form works identically on SQLite
// and PostgreSQL, and a NULL column round-trips to an unset Vector, which
// is how "no embedding computed yet" is represented.
type Vector struct {
	floats []float32
}

// NewVector creates a Vector from a float32 slice. The input is defensively
// copied so later mutations of the source slice have no effect.
func NewVector(floats []float32) Vector {
	cp := make([]float32, len(floats))
	copy(cp, floats)
	return Vector{floats: cp}
}

// Floats returns a defensive copy of the underlying float32 slice.
// Returns nil if the vector is unset (scanned from NULL).
func (v Vector) Floats() []float32 {
	if v.floats == nil {
		return nil
	}
	cp := make([]float32, len(v.floats))
	copy(cp, v.floats)
	return cp
}

// Dimension returns the number of components in the vector.
func (v Vector) Dimension() int {
	return len(v.floats)
}

// Valid reports whether the vector holds a value. A Vector scanned from a
// NULL column is not valid.
func (v Vector) Valid() bool {
	return v.floats != nil
}

// Scan implements sql.Scanner. It decodes a little-endian float32 blob;
// nil becomes an unset Vector.
func (v *Vector) Scan(value any) error {
	if value == nil {
		v.floats = nil
		return nil
	}

	var raw []byte
	switch val := value.(type) {
	case []byte:
		raw = val
	case string:
		raw = []byte(val)
	default:
		return fmt.Errorf("cannot scan %T into Vector", value)
	}

	if len(raw)%4 != 0 {
		return fmt.Errorf("vector blob length %d is not a multiple of 4", len(raw))
	}

	floats := make([]float32, len(raw)/4)
	for i := range floats {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		floats[i] = math.Float32frombits(bits)
	}

	v.floats = floats
	return nil
}

// Value implements driver.Valuer. An unset Vector is stored as SQL NULL.
func (v Vector) Value() (driver.Value, error) {
	if v.floats == nil {
		return nil, nil
	}

	raw := make([]byte, len(v.floats)*4)
	for i, f := range v.floats {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(f))
	}
	return raw, nil
}

// GormDBDataType returns the column type for schema migration.
func (Vector) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Name() == "postgres" {
		return "bytea"
	}
	return "blob"
}

// String returns a compact "[1.0,2.0,3.0]" form for logs and debugging.
func (v Vector) String() string {
	if v.floats == nil {
		return "null"
	}
	var b strings.Builder
	b.Grow(len(v.floats)*10 + 2)
	b.WriteByte('[')
	for i, f := range v.floats {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
