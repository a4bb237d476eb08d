package connector

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"github.com/morselq/morselq/errkind"
)

const ordersJSONL = `{"id": 1, "name": "ab", "total": 1.5}
{"id": 2, "name": "cd", "total": 2.5}
`

func TestDecodeJSONL(t *testing.T) {
	b, sch, err := Decode("orders.jsonl", []byte(ordersJSONL))
	require.NoError(t, err)
	require.Equal(t, 2, b.NumRows())
	require.Len(t, sch, 3)
}

func TestDecodeCSV(t *testing.T) {
	b, sch, err := Decode("orders.csv", []byte("id,name\n1,ab\n2,cd\n"))
	require.NoError(t, err)
	require.Equal(t, 2, b.NumRows())
	require.Len(t, sch, 2)
}

func TestDecodeZstdWrappedJSONL(t *testing.T) {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write([]byte(ordersJSONL))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	b, _, err := Decode("orders.jsonl.zst", buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, 2, b.NumRows())
}

func TestDecodeGzipWrappedJSONL(t *testing.T) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(ordersJSONL))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	b, _, err := Decode("orders.jsonl.gz", buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, 2, b.NumRows())
}

func TestDecodeUnknownExtensionSniffs(t *testing.T) {
	b, _, err := Decode("orders.dat", []byte(ordersJSONL))
	require.NoError(t, err)
	require.Greater(t, b.NumRows(), 0)
}

func TestDecodeUnsupportedFileType(t *testing.T) {
	_, _, err := Decode("blob.bin", []byte{0x00, 0x01, 0x02, 0xff, 0xfe})
	require.Error(t, err)
	require.True(t, errkind.UnsupportedFileType.Is(err))
}
