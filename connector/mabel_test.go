package connector

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/morselq/morselq/errkind"
)

func writeBlob(t *testing.T, fs afero.Fs, name string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, name, []byte(`{"id": 1}`+"\n"), 0o644))
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func listerFor(fs afero.Fs) ListFunc {
	return (&DiskConnector{fs: fs}).list
}

func TestMabelPicksLatestCompleteFrame(t *testing.T) {
	fs := afero.NewMemMapFs()
	base := "data/orders/year_2024/month_03/day_10"
	writeBlob(t, fs, base+"/as_at_001/part0.jsonl")
	writeBlob(t, fs, base+"/as_at_001/frame.complete")
	writeBlob(t, fs, base+"/as_at_002/part0.jsonl")
	writeBlob(t, fs, base+"/as_at_002/frame.complete")

	blobs, err := MabelPartitionScheme{}.GetBlobsInPartition(
		day(t, "2024-03-10"), day(t, "2024-03-10"), listerFor(fs), "data/orders")
	require.NoError(t, err)
	require.Equal(t, []string{base + "/as_at_002/part0.jsonl"}, blobs)
}

func TestMabelSkipsIncompleteAndIgnoredFrames(t *testing.T) {
	fs := afero.NewMemMapFs()
	base := "data/orders/year_2024/month_03/day_10"
	// Newest frame is ignored, next is incomplete, oldest is good.
	writeBlob(t, fs, base+"/as_at_003/part0.jsonl")
	writeBlob(t, fs, base+"/as_at_003/frame.complete")
	writeBlob(t, fs, base+"/as_at_003/frame.ignore")
	writeBlob(t, fs, base+"/as_at_002/part0.jsonl")
	writeBlob(t, fs, base+"/as_at_001/part0.jsonl")
	writeBlob(t, fs, base+"/as_at_001/frame.complete")

	blobs, err := MabelPartitionScheme{}.GetBlobsInPartition(
		day(t, "2024-03-10"), day(t, "2024-03-10"), listerFor(fs), "data/orders")
	require.NoError(t, err)
	require.Equal(t, []string{base + "/as_at_001/part0.jsonl"}, blobs)
}

func TestMabelByHourSegmentation(t *testing.T) {
	fs := afero.NewMemMapFs()
	base := "data/orders/year_2024/month_03/day_10/by_hour"
	writeBlob(t, fs, base+"/hour=00/as_at_001/part0.jsonl")
	writeBlob(t, fs, base+"/hour=00/as_at_001/frame.complete")
	writeBlob(t, fs, base+"/hour=07/as_at_001/part0.jsonl")
	writeBlob(t, fs, base+"/hour=07/as_at_001/frame.complete")

	blobs, err := MabelPartitionScheme{}.GetBlobsInPartition(
		day(t, "2024-03-10"), day(t, "2024-03-10").Add(23*time.Hour), listerFor(fs), "data/orders")
	require.NoError(t, err)
	require.Len(t, blobs, 2)
}

func TestMabelRejectsUnknownSegmentation(t *testing.T) {
	fs := afero.NewMemMapFs()
	base := "data/orders/year_2024/month_03/day_10"
	writeBlob(t, fs, base+"/by_region/region=eu/part0.jsonl")

	_, err := MabelPartitionScheme{}.GetBlobsInPartition(
		day(t, "2024-03-10"), day(t, "2024-03-10"), listerFor(fs), "data/orders")
	require.Error(t, err)
	require.True(t, errkind.UnsupportedSegmentation.Is(err))
}

func TestDiskConnectorReadsDataset(t *testing.T) {
	fs := afero.NewMemMapFs()
	now := time.Now().UTC()
	base := "data/orders/year_" + now.Format("2006") + "/month_" + now.Format("01") + "/day_" + now.Format("02")
	require.NoError(t, afero.WriteFile(fs, base+"/as_at_001/part0.jsonl",
		[]byte(`{"id": 1, "total": 9.5}`+"\n"+`{"id": 2, "total": 3.25}`+"\n"), 0o644))
	writeBlob(t, fs, base+"/as_at_001/frame.complete")

	c := NewDiskConnector(fs, "data")
	sch, err := c.GetDatasetSchema(context.Background(), "orders")
	require.NoError(t, err)
	require.Len(t, sch, 2)

	it, err := c.ReadDataset(context.Background(), "orders", TemporalRange{})
	require.NoError(t, err)
	defer it.Close()

	b, err := it.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, b)
	require.Equal(t, 2, b.NumRows())
}
