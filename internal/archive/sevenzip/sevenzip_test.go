package sevenzip

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/alist-org/arkit/internal/archive/tool"
	"github.com/alist-org/arkit/internal/stream"
	"github.com/alist-org/arkit/pkg/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openFile(t *testing.T, name, password string) (tool.InArchive, tool.Status, error) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return SevenZip{}.Open(context.Background(), tool.OpenArgs{
		Format:   "7z",
		Name:     name,
		Reader:   bytes.NewReader(data),
		Size:     int64(len(data)),
		Password: password,
	})
}

func readItem(t *testing.T, a tool.InArchive, i uint32) string {
	t.Helper()
	rc, st, err := a.OpenItem(i)
	require.NoError(t, err)
	require.True(t, st.OK())
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestSevenZipList(t *testing.T) {
	a, st, err := openFile(t, "t0.7z", "")
	require.NoError(t, err)
	require.True(t, st.OK())
	defer a.Close()

	require.EqualValues(t, 2, a.NumberOfItems())
	assert.Equal(t, "bar", a.ItemProperty(0, prop.Path))
	assert.Equal(t, "foo", a.ItemProperty(1, prop.Path))
	assert.Equal(t, uint64(4), a.ItemProperty(0, prop.Size))
	assert.Equal(t, uint32(0o100644), a.ItemProperty(0, prop.PosixAttrib))
	assert.NotNil(t, a.ItemProperty(0, prop.MTime))
	assert.Equal(t, false, a.ArchiveProperty(prop.Encrypted))

	assert.Equal(t, "bar\n", readItem(t, a, 0))
	assert.Equal(t, "foo\n", readItem(t, a, 1))
}

func TestSevenZipHeaderEncrypted(t *testing.T) {
	_, st, err := openFile(t, "t2.7z", "")
	assert.Error(t, err)
	assert.Equal(t, tool.StatusWrongPassword, st)

	_, st, err = openFile(t, "t2.7z", "notpassword")
	assert.Error(t, err)
	assert.Equal(t, tool.StatusWrongPassword, st)

	a, st, err := openFile(t, "t2.7z", "password")
	require.NoError(t, err)
	require.True(t, st.OK())
	assert.EqualValues(t, 2, a.NumberOfItems())
	assert.Equal(t, true, a.ArchiveProperty(prop.Encrypted))
}

func TestSevenZipMultiVolume(t *testing.T) {
	var parts []stream.SizedReaderAt
	for i := 1; i <= 6; i++ {
		data, err := os.ReadFile(filepath.Join("testdata", "multi.7z.00"+string(rune('0'+i))))
		require.NoError(t, err)
		parts = append(parts, bytes.NewReader(data))
	}
	ra, err := stream.NewMultiReaderAt(parts)
	require.NoError(t, err)
	a, st, err := SevenZip{}.Open(context.Background(), tool.OpenArgs{
		Format:  "7z",
		Reader:  ra,
		Size:    ra.Size(),
		Volumes: len(parts),
	})
	require.NoError(t, err)
	require.True(t, st.OK())
	require.NotZero(t, a.NumberOfItems())
	assert.Equal(t, "01", a.ItemProperty(0, prop.Path))
	assert.Equal(t, uint32(6), a.ArchiveProperty(prop.NumVolumes))

	c := &discard{}
	st, err = a.Extract(context.Background(), nil, true, c)
	require.NoError(t, err)
	assert.True(t, st.OK())
	assert.Empty(t, c.failed)
}

func TestSevenZipMissingLastVolume(t *testing.T) {
	var parts []stream.SizedReaderAt
	for i := 1; i <= 5; i++ {
		data, err := os.ReadFile(filepath.Join("testdata", "multi.7z.00"+string(rune('0'+i))))
		require.NoError(t, err)
		parts = append(parts, bytes.NewReader(data))
	}
	ra, err := stream.NewMultiReaderAt(parts)
	require.NoError(t, err)
	_, st, err := SevenZip{}.Open(context.Background(), tool.OpenArgs{
		Format:  "7z",
		Reader:  ra,
		Size:    ra.Size(),
		Volumes: len(parts),
	})
	assert.Error(t, err)
	assert.Equal(t, tool.StatusMissingVolume, st)
}

func TestSevenZipTruncated(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "multi.7z.001"))
	require.NoError(t, err)
	_, st, err := SevenZip{}.Open(context.Background(), tool.OpenArgs{
		Reader: bytes.NewReader(data),
		Size:   int64(len(data)),
	})
	assert.Error(t, err)
	assert.Equal(t, tool.StatusBadHeader, st)
}

type discard struct {
	failed []uint32
}

func (d *discard) SetTotal(uint64) {}

func (d *discard) GetStream(uint32) (io.Writer, tool.Status) {
	return io.Discard, tool.StatusOK
}

func (d *discard) SetOperationResult(index uint32, result tool.Status, _ error) tool.Status {
	if !result.OK() {
		d.failed = append(d.failed, index)
	}
	return tool.StatusOK
}
