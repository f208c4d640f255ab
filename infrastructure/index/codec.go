package index

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/helixml/scholar/domain/search"
)

// On-disk form, all little-endian. The wrapped (current) form is
// magic "SIDX", a version byte, a metric byte, dim uint32, count
// uint32, then per entry an int64 id followed by dim float32s. The
// legacy form predates the magic: dim uint32, count uint32, then the
// same entries, with no metric recorded.
const (
	codecMagic   = "SIDX"
	codecVersion = 1

	metricCodeL2 byte = 0
	metricCodeIP byte = 1

	wrappedHeaderLen = 14
	legacyHeaderLen  = 8
)

func metricCode(m search.Metric) byte {
	if m == search.MetricIP {
		return metricCodeIP
	}
	return metricCodeL2
}

func metricFromCode(c byte) (search.Metric, error) {
	switch c {
	case metricCodeL2:
		return search.MetricL2, nil
	case metricCodeIP:
		return search.MetricIP, nil
	}
	return "", fmt.Errorf("unknown metric code %d", c)
}

// encodeIndex serializes the wrapped on-disk form.
func encodeIndex(f *flatIndex) []byte {
	entrySize := 8 + f.dim*4
	data := make([]byte, wrappedHeaderLen+len(f.ids)*entrySize)

	copy(data[0:4], codecMagic)
	data[4] = codecVersion
	data[5] = metricCode(f.metric)
	binary.LittleEndian.PutUint32(data[6:10], uint32(f.dim))
	binary.LittleEndian.PutUint32(data[10:14], uint32(len(f.ids)))

	off := wrappedHeaderLen
	for i, id := range f.ids {
		binary.LittleEndian.PutUint64(data[off:off+8], uint64(id))
		off += 8
		for _, x := range f.vectors[i] {
			binary.LittleEndian.PutUint32(data[off:off+4], math.Float32bits(x))
			off += 4
		}
	}
	return data
}

// decodeIndex parses a persisted index in either form. legacy reports
// that the bytes were the unwrapped pre-magic form; legacy indexes
// carry no metric and are never searched, only counted.
func decodeIndex(data []byte) (f *flatIndex, legacy bool, err error) {
	if len(data) >= len(codecMagic) && string(data[0:4]) == codecMagic {
		f, err = decodeWrapped(data)
		return f, false, err
	}
	f, err = decodeLegacy(data)
	return f, true, err
}

func decodeWrapped(data []byte) (*flatIndex, error) {
	if len(data) < wrappedHeaderLen {
		return nil, fmt.Errorf("index file truncated: %d bytes", len(data))
	}
	if data[4] != codecVersion {
		return nil, fmt.Errorf("unsupported index version %d", data[4])
	}
	metric, err := metricFromCode(data[5])
	if err != nil {
		return nil, err
	}
	dim := int(binary.LittleEndian.Uint32(data[6:10]))
	count := int(binary.LittleEndian.Uint32(data[10:14]))

	if err := checkSize(len(data), wrappedHeaderLen, dim, count); err != nil {
		return nil, err
	}

	f := newFlatIndex(dim, metric)
	decodeEntries(f, data[wrappedHeaderLen:], dim, count)
	return f, nil
}

func decodeLegacy(data []byte) (*flatIndex, error) {
	if len(data) < legacyHeaderLen {
		return nil, fmt.Errorf("index file truncated: %d bytes", len(data))
	}
	dim := int(binary.LittleEndian.Uint32(data[0:4]))
	count := int(binary.LittleEndian.Uint32(data[4:8]))

	if err := checkSize(len(data), legacyHeaderLen, dim, count); err != nil {
		return nil, err
	}

	f := newFlatIndex(dim, "")
	decodeEntries(f, data[legacyHeaderLen:], dim, count)
	return f, nil
}

func checkSize(have, header, dim, count int) error {
	want := uint64(header) + uint64(count)*uint64(8+dim*4)
	if uint64(have) != want {
		return fmt.Errorf("index file size %d does not match header (dim %d, count %d)", have, dim, count)
	}
	return nil
}

func decodeEntries(f *flatIndex, data []byte, dim, count int) {
	off := 0
	for i := 0; i < count; i++ {
		id := int64(binary.LittleEndian.Uint64(data[off : off+8]))
		off += 8
		vector := make([]float32, dim)
		for j := range vector {
			vector[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
			off += 4
		}
		f.add(id, vector)
	}
}
