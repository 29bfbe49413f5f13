package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pinmatch/core"
	"github.com/poiesic/pinmatch/index"
)

func sampleSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	idx, err := index.New(3)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.6, 0.8, 0},
	}))
	return &Snapshot{Index: idx, Records: sampleRecords()}
}

func TestManager_SaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewManager(filepath.Join(t.TempDir(), "cache"))
	assert.False(t, m.Exists())

	snap := sampleSnapshot(t)
	require.NoError(t, m.Save(ctx, snap))
	assert.True(t, m.Exists())

	loaded, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Records, loaded.Records)

	for _, q := range [][]float32{{1, 0, 0}, {0.3, 0.9, 0.1}, {0, 0, 1}} {
		want, err := snap.Index.Search(q, 3)
		require.NoError(t, err)
		got, err := loaded.Index.Search(q, 3)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestManager_ExistsFalseWhenAnyArtifactMissing(t *testing.T) {
	for _, name := range []string{IndexFile, MetadataFile, EmbeddingsFile} {
		t.Run(name, func(t *testing.T) {
			m := NewManager(t.TempDir())
			require.NoError(t, m.Save(context.Background(), sampleSnapshot(t)))
			require.True(t, m.Exists())

			require.NoError(t, os.Remove(filepath.Join(m.Dir(), name)))
			assert.False(t, m.Exists())
			assert.False(t, m.Status().Present)

			_, err := m.Load(context.Background())
			assert.ErrorIs(t, err, core.ErrIndex)
			assert.ErrorIs(t, err, ErrCacheMissing)
		})
	}
}

func TestManager_WithoutEmbeddings(t *testing.T) {
	m := NewManager(t.TempDir(), WithoutEmbeddings())
	require.NoError(t, m.Save(context.Background(), sampleSnapshot(t)))

	assert.True(t, m.Exists())
	_, err := os.Stat(filepath.Join(m.Dir(), EmbeddingsFile))
	assert.True(t, os.IsNotExist(err))

	loaded, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Index.Len())
}

func TestManager_Load_CorruptIndex(t *testing.T) {
	m := NewManager(t.TempDir())
	require.NoError(t, m.Save(context.Background(), sampleSnapshot(t)))

	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), IndexFile), []byte("garbage"), 0o644))

	_, err := m.Load(context.Background())
	assert.ErrorIs(t, err, core.ErrIndex)
}

func TestManager_Load_RowCountMismatch(t *testing.T) {
	m := NewManager(t.TempDir())
	require.NoError(t, m.Save(context.Background(), sampleSnapshot(t)))

	short := EncodeRecordTable(sampleRecords()[:2])
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), MetadataFile), short, 0o644))

	_, err := m.Load(context.Background())
	assert.ErrorIs(t, err, core.ErrIndex)
	assert.ErrorIs(t, err, ErrCacheInconsistent)
}

func TestManager_Load_EmbeddingsMismatch(t *testing.T) {
	m := NewManager(t.TempDir())
	require.NoError(t, m.Save(context.Background(), sampleSnapshot(t)))

	f, err := os.Create(filepath.Join(m.Dir(), EmbeddingsFile))
	require.NoError(t, err)
	require.NoError(t, WriteEmbeddings(f, [][]float32{{1, 0}, {0, 1}, {1, 1}}))
	require.NoError(t, f.Close())

	_, err = m.Load(context.Background())
	assert.ErrorIs(t, err, ErrCacheInconsistent)
}

func TestManager_Save_RejectsInconsistentSnapshot(t *testing.T) {
	m := NewManager(t.TempDir())
	snap := sampleSnapshot(t)
	snap.Records = snap.Records[:1]

	err := m.Save(context.Background(), snap)
	assert.ErrorIs(t, err, ErrCacheInconsistent)
	assert.False(t, m.Exists())
}

func TestManager_Save_Overwrites(t *testing.T) {
	ctx := context.Background()
	m := NewManager(t.TempDir())
	require.NoError(t, m.Save(ctx, sampleSnapshot(t)))

	idx, err := index.New(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{1, 0}}))
	require.NoError(t, m.Save(ctx, &Snapshot{Index: idx, Records: sampleRecords()[:1]}))

	loaded, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Index.Len())
	assert.Equal(t, 2, loaded.Index.Dim())
}

func TestManager_Clear(t *testing.T) {
	m := NewManager(t.TempDir())
	require.NoError(t, m.Save(context.Background(), sampleSnapshot(t)))

	leftover := filepath.Join(m.Dir(), IndexFile+tempMarker+"123")
	require.NoError(t, os.WriteFile(leftover, []byte("partial"), 0o644))

	require.NoError(t, m.Clear())
	assert.False(t, m.Exists())
	_, err := os.Stat(leftover)
	assert.True(t, os.IsNotExist(err))

	status := m.Status()
	assert.False(t, status.Present)
	assert.Zero(t, status.TotalSize)
	for _, a := range status.Artifacts {
		assert.False(t, a.Present, a.Name)
	}

	// Idempotent, also for a directory that never existed.
	require.NoError(t, m.Clear())
	require.NoError(t, NewManager(filepath.Join(t.TempDir(), "missing")).Clear())
}

func TestManager_Status(t *testing.T) {
	m := NewManager(t.TempDir())
	require.NoError(t, m.Save(context.Background(), sampleSnapshot(t)))

	status := m.Status()
	assert.True(t, status.Present)
	require.Len(t, status.Artifacts, 3)

	var total int64
	for _, a := range status.Artifacts {
		assert.True(t, a.Present, a.Name)
		assert.True(t, a.Required, a.Name)
		assert.Positive(t, a.Size, a.Name)
		total += a.Size
	}
	assert.Equal(t, total, status.TotalSize)
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
		{2 * 1024 * 1024 * 1024 * 1024, "2.0 TB"},
		{4096 * 1024 * 1024 * 1024 * 1024, "4096.0 TB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatSize(tt.size))
		})
	}
}

func TestManager_PublishFailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	require.NoError(t, m.publish(MetadataFile, func(w io.Writer) error {
		_, err := w.Write([]byte("first"))
		return err
	}))

	boom := errors.New("disk full")
	err := m.publish(MetadataFile, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	temps, err := filepath.Glob(filepath.Join(dir, "*"+tempMarker+"*"))
	require.NoError(t, err)
	assert.Empty(t, temps)
}
