package rar

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/alist-org/arkit/internal/archive/tool"
	"github.com/alist-org/arkit/pkg/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testdata/test.part*.rar hold test.txt, the output of `seq 0 2000`.
func expected() string {
	var b strings.Builder
	for i := 0; i <= 2000; i++ {
		b.WriteString(strconv.Itoa(i))
		b.WriteByte('\n')
	}
	return b.String()
}

func openVolumes(t *testing.T) tool.InArchive {
	t.Helper()
	path := filepath.Join("testdata", "test.part01.rar")
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	info, err := f.Stat()
	require.NoError(t, err)
	a, st, err := Rar{}.Open(context.Background(), tool.OpenArgs{
		Format:  "Rar5",
		Path:    path,
		Reader:  f,
		Size:    info.Size(),
		Volumes: 2,
	})
	require.NoError(t, err)
	require.True(t, st.OK())
	return a
}

type collector struct {
	total uint64
	buf   bytes.Buffer
	res   []tool.Status
}

func (c *collector) SetTotal(total uint64) { c.total = total }

func (c *collector) GetStream(uint32) (io.Writer, tool.Status) {
	return &c.buf, tool.StatusOK
}

func (c *collector) SetOperationResult(_ uint32, result tool.Status, _ error) tool.Status {
	c.res = append(c.res, result)
	return tool.StatusOK
}

func TestRarMultiVolume(t *testing.T) {
	a := openVolumes(t)
	require.EqualValues(t, 1, a.NumberOfItems())
	assert.Equal(t, "test.txt", a.ItemProperty(0, prop.Path))
	assert.Equal(t, uint64(len(expected())), a.ItemProperty(0, prop.Size))
	assert.Equal(t, uint32(2), a.ArchiveProperty(prop.NumVolumes))

	c := &collector{}
	st, err := a.Extract(context.Background(), nil, false, c)
	require.NoError(t, err)
	require.True(t, st.OK())
	assert.Equal(t, []tool.Status{tool.StatusOK}, c.res)
	assert.EqualValues(t, len(expected()), c.total)
	assert.Equal(t, expected(), c.buf.String())

	rc, st, err := a.OpenItem(0)
	require.NoError(t, err)
	require.True(t, st.OK())
	defer rc.Close()
	head := make([]byte, 4)
	_, err = io.ReadFull(rc, head)
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n", string(head))
}

func TestRarMissingVolume(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "test.part01.rar"))
	require.NoError(t, err)
	_, st, err := Rar{}.Open(context.Background(), tool.OpenArgs{
		Format: "Rar5",
		Reader: bytes.NewReader(data),
		Size:   int64(len(data)),
	})
	assert.Error(t, err)
	assert.Equal(t, tool.StatusMissingVolume, st)
}

func TestRarBadHeader(t *testing.T) {
	_, st, err := Rar{}.Open(context.Background(), tool.OpenArgs{
		Reader: strings.NewReader("definitely not rar"),
		Size:   18,
	})
	assert.Error(t, err)
	assert.Equal(t, tool.StatusBadHeader, st)
}

func TestRarVolumePatterns(t *testing.T) {
	base, pattern, ok := tool.GetMultipartPattern("backup.part01.rar")
	require.True(t, ok)
	assert.Equal(t, "backup", base)
	assert.Equal(t, ".part%02d.rar", pattern)
}
