package tar

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/alist-org/arkit/internal/archive/tool"
	"github.com/alist-org/arkit/pkg/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mtime = time.Date(2023, 11, 2, 8, 0, 0, 0, time.UTC)

func fileItem(path, content string) tool.UpdateItem {
	return tool.UpdateItem{
		IndexInArchive: -1,
		NewData:        true,
		Path:           path,
		Size:           int64(len(content)),
		ModTime:        mtime,
		Mode:           0o600,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

type progress struct {
	total uint64
	names []string
	done  uint64
	stop  bool
}

func (p *progress) SetTotal(total uint64) { p.total = total }
func (p *progress) FileName(name string)  { p.names = append(p.names, name) }
func (p *progress) SetCompleted(done uint64) tool.Status {
	p.done = done
	if p.stop {
		return tool.StatusCancelled
	}
	return tool.StatusOK
}

func buildTar(t *testing.T, cb tool.UpdateCallback, items ...tool.UpdateItem) []byte {
	t.Helper()
	var buf bytes.Buffer
	st, err := Tar{}.Update(context.Background(), tool.UpdateArgs{
		Format:   "Tar",
		Output:   &buf,
		Items:    items,
		Callback: cb,
	})
	require.NoError(t, err)
	require.True(t, st.OK())
	return buf.Bytes()
}

func openTar(t *testing.T, data []byte) tool.InArchive {
	t.Helper()
	a, st, err := Tar{}.Open(context.Background(), tool.OpenArgs{
		Format: "Tar",
		Reader: bytes.NewReader(data),
		Size:   int64(len(data)),
	})
	require.NoError(t, err)
	require.True(t, st.OK())
	return a
}

type sink struct {
	bufs map[uint32]*bytes.Buffer
}

func (s *sink) SetTotal(uint64) {}

func (s *sink) GetStream(index uint32) (io.Writer, tool.Status) {
	b := &bytes.Buffer{}
	s.bufs[index] = b
	return b, tool.StatusOK
}

func (s *sink) SetOperationResult(uint32, tool.Status, error) tool.Status {
	return tool.StatusOK
}

func TestTarRoundTrip(t *testing.T) {
	cb := &progress{}
	data := buildTar(t, cb,
		tool.UpdateItem{IndexInArchive: -1, Path: "dir", IsDir: true, ModTime: mtime},
		fileItem("dir/a.txt", "alpha"),
		fileItem("b.txt", "bravo!"),
	)
	assert.EqualValues(t, 11, cb.total)
	assert.EqualValues(t, 11, cb.done)
	assert.Equal(t, []string{"dir", "dir/a.txt", "b.txt"}, cb.names)

	a := openTar(t, data)
	require.EqualValues(t, 3, a.NumberOfItems())
	assert.Equal(t, "dir", a.ItemProperty(0, prop.Path))
	assert.Equal(t, true, a.ItemProperty(0, prop.IsDir))
	assert.Equal(t, "dir/a.txt", a.ItemProperty(1, prop.Path))
	assert.Equal(t, uint64(5), a.ItemProperty(1, prop.Size))
	assert.Equal(t, uint64(512), a.ItemProperty(1, prop.PackSize))
	assert.Equal(t, uint32(0o100600), a.ItemProperty(1, prop.PosixAttrib))
	assert.Equal(t, mtime, a.ItemProperty(1, prop.MTime).(time.Time).UTC())
	assert.Nil(t, a.ItemProperty(1, prop.CRC))

	s := &sink{bufs: map[uint32]*bytes.Buffer{}}
	st, err := a.Extract(context.Background(), []uint32{2}, false, s)
	require.NoError(t, err)
	require.True(t, st.OK())
	require.Len(t, s.bufs, 1)
	assert.Equal(t, "bravo!", s.bufs[2].String())

	rc, st, err := a.OpenItem(1)
	require.NoError(t, err)
	require.True(t, st.OK())
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(content))
}

func TestTarEmpty(t *testing.T) {
	a := openTar(t, buildTar(t, nil))
	assert.EqualValues(t, 0, a.NumberOfItems())
}

func TestTarBadHeader(t *testing.T) {
	junk := bytes.Repeat([]byte("junk"), 256)
	_, st, err := Tar{}.Open(context.Background(), tool.OpenArgs{
		Reader: bytes.NewReader(junk),
		Size:   int64(len(junk)),
	})
	assert.Error(t, err)
	assert.Equal(t, tool.StatusBadHeader, st)
}

func TestTarUpdateCancelled(t *testing.T) {
	cb := &progress{stop: true}
	st, _ := Tar{}.Update(context.Background(), tool.UpdateArgs{
		Output:   io.Discard,
		Items:    []tool.UpdateItem{fileItem("a", "1"), fileItem("b", "2")},
		Callback: cb,
	})
	assert.Equal(t, tool.StatusCancelled, st)
	assert.Equal(t, []string{"a"}, cb.names)
}

func TestOpenItemReadsInPlace(t *testing.T) {
	long := strings.Repeat("nested/", 20) + "deep.txt"
	dir := tool.UpdateItem{IndexInArchive: -1, NewData: true, Path: "dir", IsDir: true, ModTime: mtime, Mode: 0o755}
	link := tool.UpdateItem{IndexInArchive: -1, NewData: true, Path: "link", LinkTarget: "a.txt", ModTime: mtime, Mode: fs.ModeSymlink | 0o777}
	data := buildTar(t, nil,
		dir,
		fileItem("a.txt", "first"),
		link,
		fileItem(long, strings.Repeat("x", 700)),
		fileItem("b.txt", "last"),
	)
	a := openTar(t, data).(*archive)
	require.EqualValues(t, 5, a.NumberOfItems())
	assert.EqualValues(t, -1, a.offsets[0])
	assert.EqualValues(t, -1, a.offsets[2])

	for i, want := range map[uint32]string{1: "first", 3: strings.Repeat("x", 700), 4: "last"} {
		require.Positive(t, a.offsets[i])
		assert.Zero(t, a.offsets[i]%512)
		rc, st, err := a.OpenItem(i)
		require.NoError(t, err)
		require.True(t, st.OK())
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, want, string(got))
	}
	assert.Equal(t, long, a.ItemProperty(3, prop.Path))
}
