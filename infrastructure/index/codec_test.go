package index

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/scholar/domain/search"
)

func TestCodec_WrappedRoundTrip(t *testing.T) {
	f := newFlatIndex(3, search.MetricIP)
	f.add(1, []float32{1, 0, 0})
	f.add(2, []float32{0, 0.6, 0.8})

	data := encodeIndex(f)
	require.Equal(t, []byte(codecMagic), data[:4])

	decoded, legacy, err := decodeIndex(data)
	require.NoError(t, err)
	assert.False(t, legacy)
	assert.Equal(t, 3, decoded.dim)
	assert.Equal(t, search.MetricIP, decoded.metric)
	require.Equal(t, 2, decoded.count())

	pos, ok := decoded.byID[2]
	require.True(t, ok)
	assert.Equal(t, []float32{0, 0.6, 0.8}, decoded.vectors[pos])
}

func TestCodec_EmptyIndexRoundTrip(t *testing.T) {
	f := newFlatIndex(384, search.MetricL2)

	decoded, legacy, err := decodeIndex(encodeIndex(f))
	require.NoError(t, err)
	assert.False(t, legacy)
	assert.Equal(t, 384, decoded.dim)
	assert.Equal(t, 0, decoded.count())
}

func TestCodec_LegacyForm(t *testing.T) {
	data := make([]byte, 8+8+2*4)
	binary.LittleEndian.PutUint32(data[0:4], 2)
	binary.LittleEndian.PutUint32(data[4:8], 1)
	binary.LittleEndian.PutUint64(data[8:16], 42)

	decoded, legacy, err := decodeIndex(data)
	require.NoError(t, err)
	assert.True(t, legacy)
	assert.Equal(t, 2, decoded.dim)
	assert.Equal(t, 1, decoded.count())
}

func TestCodec_LegacyEmpty(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:4], 2)

	decoded, legacy, err := decodeIndex(data)
	require.NoError(t, err)
	assert.True(t, legacy)
	assert.Equal(t, 0, decoded.count())
}

func TestCodec_Errors(t *testing.T) {
	valid := encodeIndex(newFlatIndex(2, search.MetricL2))

	badVersion := append([]byte(nil), valid...)
	badVersion[4] = 99

	badMetric := append([]byte(nil), valid...)
	badMetric[5] = 7

	oversized := append(append([]byte(nil), valid...), 0xFF)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: []byte{}},
		{name: "truncated header", data: []byte("SIDX")},
		{name: "unknown version", data: badVersion},
		{name: "unknown metric", data: badMetric},
		{name: "size mismatch", data: oversized},
		{name: "legacy size mismatch", data: []byte{2, 0, 0, 0, 5, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := decodeIndex(tt.data)
			require.Error(t, err)
		})
	}
}

func TestFlatIndex_RemoveSwapsLast(t *testing.T) {
	f := newFlatIndex(2, search.MetricL2)
	f.add(1, []float32{1, 0})
	f.add(2, []float32{0, 1})
	f.add(3, []float32{1, 1})

	f.remove(1)

	assert.Equal(t, 2, f.count())
	_, ok := f.byID[1]
	assert.False(t, ok)
	for id, pos := range f.byID {
		assert.Equal(t, id, f.ids[pos])
	}
}
