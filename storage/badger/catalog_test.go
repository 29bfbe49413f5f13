package badger

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pinmatch/core"
	"github.com/poiesic/pinmatch/storage"
)

func newTestCatalog(t *testing.T) storage.CatalogRepository {
	t.Helper()
	repo, err := NewMemoryCatalogRepository()
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func catalogRecords() []core.Record {
	return []core.Record{
		{OfficeName: "Koramangala SO", Pincode: "560034", District: "Bangalore", State: "Karnataka"},
		{OfficeName: "Koramangala VI Bk SO", Pincode: "560095", District: "Bangalore", State: "Karnataka"},
		{OfficeName: "St. John's Medical College SO", Pincode: "560034", District: "Bangalore", State: "Karnataka"},
		{OfficeName: "Connaught Place HO", Pincode: "110001", District: "New Delhi", State: "Delhi"},
		{OfficeName: "Asifabad B.O", Pincode: "504293", District: "Kumuram Bheem Asifabad", State: "Telangana",
			Latitude: 19.36, Longitude: 79.28, HasCoords: true},
	}
}

func TestCatalog_ImportAndRecords(t *testing.T) {
	ctx := context.Background()
	repo := newTestCatalog(t)

	n, err := repo.Import(ctx, catalogRecords())
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	records, err := repo.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, catalogRecords(), records)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestCatalog_ImportSkipsInvalid(t *testing.T) {
	ctx := context.Background()
	repo := newTestCatalog(t)

	input := append(catalogRecords(),
		core.Record{OfficeName: "", Pincode: "560001"},
		core.Record{OfficeName: "Bad Pin", Pincode: "5600"},
	)
	n, err := repo.Import(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestCatalog_ImportReplaces(t *testing.T) {
	ctx := context.Background()
	repo := newTestCatalog(t)

	_, err := repo.Import(ctx, catalogRecords())
	require.NoError(t, err)

	replacement := catalogRecords()[3:4]
	_, err = repo.Import(ctx, replacement)
	require.NoError(t, err)

	records, err := repo.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, replacement, records)

	byPin, err := repo.ByPincode(ctx, "560034")
	require.NoError(t, err)
	assert.Empty(t, byPin, "old pincode index must be gone")
}

func TestCatalog_EmptyCount(t *testing.T) {
	count, err := newTestCatalog(t).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCatalog_ByPincode(t *testing.T) {
	ctx := context.Background()
	repo := newTestCatalog(t)
	_, err := repo.Import(ctx, catalogRecords())
	require.NoError(t, err)

	records, err := repo.ByPincode(ctx, "560034")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Koramangala SO", records[0].OfficeName)
	assert.Equal(t, "St. John's Medical College SO", records[1].OfficeName)

	records, err = repo.ByPincode(ctx, "999999")
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = repo.ByPincode(ctx, "56")
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestCatalog_ByID(t *testing.T) {
	ctx := context.Background()
	repo := newTestCatalog(t)
	_, err := repo.Import(ctx, catalogRecords())
	require.NoError(t, err)

	for _, want := range catalogRecords() {
		got, err := repo.ByID(ctx, want.ID())
		require.NoError(t, err)
		assert.Equal(t, want, *got)
	}

	missing := core.Record{OfficeName: "Nowhere SO", Pincode: "999999"}
	_, err = repo.ByID(ctx, missing.ID())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Re-import drops stale ID entries.
	_, err = repo.Import(ctx, catalogRecords()[:1])
	require.NoError(t, err)
	gone := catalogRecords()[3]
	_, err = repo.ByID(ctx, gone.ID())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCatalog_ByOffice(t *testing.T) {
	ctx := context.Background()
	repo := newTestCatalog(t)
	_, err := repo.Import(ctx, catalogRecords())
	require.NoError(t, err)

	records, err := repo.ByOffice(ctx, "koramangala", 50)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = repo.ByOffice(ctx, "KORAMANGALA", 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Koramangala SO", records[0].OfficeName)

	_, err = repo.ByOffice(ctx, "  ", 50)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestCatalog_ByDistrict(t *testing.T) {
	ctx := context.Background()
	repo := newTestCatalog(t)
	_, err := repo.Import(ctx, catalogRecords())
	require.NoError(t, err)

	records, err := repo.ByDistrict(ctx, "bangalore", 100)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	records, err = repo.ByDistrict(ctx, "asifabad", 100)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].HasCoords)
}

func TestCatalog_LargeImport(t *testing.T) {
	ctx := context.Background()
	repo := newTestCatalog(t)

	records := make([]core.Record, 5000)
	for i := range records {
		records[i] = core.Record{
			OfficeName: fmt.Sprintf("Office %d", i),
			Pincode:    fmt.Sprintf("%06d", 100000+i%900),
			District:   "District",
			State:      "State",
		}
	}
	n, err := repo.Import(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 5000, n)

	got, err := repo.Records(ctx)
	require.NoError(t, err)
	require.Len(t, got, 5000)
	assert.Equal(t, records[4999], got[4999])
}

func TestCatalog_Closed(t *testing.T) {
	repo, err := NewMemoryCatalogRepository()
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	_, err = repo.Records(context.Background())
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestCatalog_Cancelled(t *testing.T) {
	repo := newTestCatalog(t)
	_, err := repo.Import(context.Background(), catalogRecords())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = repo.Records(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
