package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lddl/core/impact"
	"github.com/kilianp07/lddl/core/model"
)

func sampleRecords(now time.Time) []Record {
	return []Record{
		{RunID: "a", Timestamp: now.Add(-2 * time.Hour), Bus: 1001, Shape: model.ShapeMonoPeriodic, BaseLoadMW: 300},
		{RunID: "b", Timestamp: now.Add(-time.Hour), Bus: 1002, Shape: model.ShapeTriangular,
			Summary: []impact.ZoneSummary{{Kind: model.KindGenerator, Instances: 2, MaxInZoneLoc: "3018"}}},
		{RunID: "c", Timestamp: now, Bus: 1001, Shape: model.ShapeBiPeriodic, Error: "no load at bus 1001"},
	}
}

func exercise(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	for _, r := range sampleRecords(now) {
		require.NoError(t, store.Append(ctx, r))
	}

	all, err := store.Query(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].RunID)
	assert.Equal(t, 300.0, all[0].BaseLoadMW)

	byBus, err := store.Query(ctx, Query{Bus: 1001})
	require.NoError(t, err)
	require.Len(t, byBus, 2)

	byShape, err := store.Query(ctx, Query{Shape: model.ShapeTriangular})
	require.NoError(t, err)
	require.Len(t, byShape, 1)
	assert.Equal(t, "3018", byShape[0].Summary[0].MaxInZoneLoc)

	recent, err := store.Query(ctx, Query{Start: now.Add(-90 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	window, err := store.Query(ctx, Query{Start: now.Add(-3 * time.Hour), End: now.Add(-30 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, window, 2)
}

func TestJSONLStore(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "runs", "runs.jsonl"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exercise(t, store)
}

func TestRotatingJSONLStore(t *testing.T) {
	store, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "runs.jsonl"), 1, 2, 1)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exercise(t, store)
}

func TestRotatingJSONLStore_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	store, err := NewRotatingJSONLStore(path, 1, 3, 1)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	big := make([]impact.ZoneSummary, 2000)
	for i := 0; i < 20; i++ {
		rec := Record{RunID: "r", Timestamp: time.Now(), Bus: 1, Summary: big}
		require.NoError(t, store.Append(context.Background(), rec))
	}
	files, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "runs*.jsonl"))
	assert.Greater(t, len(files), 1, "expected rotated files")
	out, err := store.Query(context.Background(), Query{Bus: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exercise(t, store)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Config{})
	require.NoError(t, err)
	assert.Nil(t, s)

	for _, backend := range []string{"jsonl", "rotating", "sqlite"} {
		s, err := Open(Config{Backend: backend, Path: filepath.Join(dir, backend+".log")})
		require.NoError(t, err, backend)
		require.NotNil(t, s)
		require.NoError(t, s.Close())
	}
	_, err = Open(Config{Backend: "kafka"})
	assert.Error(t, err)
}
