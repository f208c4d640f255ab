package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/scholar/domain/search"
)

type stubRecordSource struct {
	records []search.Record
	calls   int
	err     error
}

func (s *stubRecordSource) VectoredRecords(_ context.Context) ([]search.Record, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func TestMultiIndex_LoadOrBuild_BuildsOnlyEmptyStores(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	abstractPath := filepath.Join(dir, "abstracts.idx")
	authorPath := filepath.Join(dir, "authors.idx")

	// Persist an abstract index ahead of time so loading finds entries.
	seeded := NewStore("abstract", 2, search.MetricL2, abstractPath, nil)
	require.NoError(t, seeded.AddOrUpdate(ctx, []int64{1, 2}, [][]float32{{1, 0}, {0, 1}}))
	require.NoError(t, seeded.Save(ctx))

	abstractSource := &stubRecordSource{records: []search.Record{
		search.NewRecord(9, []float32{0.5, 0.5}),
	}}
	authorSource := &stubRecordSource{records: []search.Record{
		search.NewRecord(7, []float32{1, 0}),
		search.NewRecord(8, []float32{0, 1}),
	}}

	m := NewMultiIndex(
		NewStore("abstract", 2, search.MetricL2, abstractPath, nil),
		NewStore("author", 2, search.MetricL2, authorPath, nil),
		nil,
	)
	require.NoError(t, m.LoadOrBuild(ctx, abstractSource, authorSource))

	// The loaded store keeps its persisted entries and skips the rebuild.
	count, err := m.Abstracts().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 0, abstractSource.calls)

	// The empty store is rebuilt from the relational rows and persisted.
	count, err = m.Authors().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, authorSource.calls)

	_, statErr := os.Stat(authorPath)
	assert.NoError(t, statErr, "rebuilt index should be written to disk")
}

func TestMultiIndex_LoadOrBuild_SourceError(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	boom := errors.New("boom")
	m := NewMultiIndex(
		NewStore("abstract", 2, search.MetricL2, filepath.Join(dir, "abstracts.idx"), nil),
		NewStore("author", 2, search.MetricL2, filepath.Join(dir, "authors.idx"), nil),
		nil,
	)

	err := m.LoadOrBuild(ctx, &stubRecordSource{err: boom}, &stubRecordSource{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestMultiIndex_Save_PersistsBoth(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	abstractPath := filepath.Join(dir, "abstracts.idx")
	authorPath := filepath.Join(dir, "authors.idx")

	m := NewMultiIndex(
		NewStore("abstract", 2, search.MetricL2, abstractPath, nil),
		NewStore("author", 2, search.MetricL2, authorPath, nil),
		nil,
	)
	require.NoError(t, m.Abstracts().AddOrUpdate(ctx, []int64{1}, [][]float32{{1, 0}}))
	require.NoError(t, m.Authors().AddOrUpdate(ctx, []int64{2}, [][]float32{{0, 1}}))

	require.NoError(t, m.Save(ctx))

	_, err := os.Stat(abstractPath)
	assert.NoError(t, err)
	_, err = os.Stat(authorPath)
	assert.NoError(t, err)
}
