package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alist-org/arkit/internal/conf"
	"github.com/alist-org/arkit/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "config.json")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, conf.DefaultConfig(), cfg)
	_, err = os.Stat(path)
	require.NoError(t, err, "default config is written")

	require.NoError(t, os.WriteFile(path, []byte(`{"archive":{"format":"zip","threads":4},"scheme":{"http_port":8080}}`), 0o644))
	t.Setenv("ARKIT_ARCHIVE_THREADS", "8")
	t.Setenv("ARKIT_LIMIT_ARCHIVE_READ", "1024")
	t.Setenv("ARKIT_LOG_LEVEL", "debug")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "zip", cfg.Archive.Format)
	assert.Equal(t, 8, cfg.Archive.Threads)
	assert.Equal(t, 8080, cfg.Scheme.HttpPort)
	assert.Equal(t, 1024, cfg.Limit.ArchiveRead)
	assert.Equal(t, -1, cfg.Limit.ArchiveWrite)
	assert.Equal(t, "debug", cfg.Log.Level)

	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestInitStreamLimit(t *testing.T) {
	conf.Conf = conf.DefaultConfig()
	conf.Conf.Limit.ArchiveWrite = 4096
	t.Cleanup(func() {
		stream.ArchiveReadLimit, stream.ArchiveWriteLimit, stream.ServerDownloadLimit = nil, nil, nil
	})
	InitStreamLimit()
	assert.Equal(t, rate.Inf, stream.ArchiveReadLimit.Limit())
	assert.Equal(t, rate.Limit(4096), stream.ArchiveWriteLimit.Limit())
	assert.Equal(t, 4096, stream.ArchiveWriteLimit.Burst())

	live := stream.ArchiveWriteLimit
	conf.Conf.Limit.ArchiveWrite = -1
	InitStreamLimit()
	assert.Same(t, live, stream.ArchiveWriteLimit)
	assert.Equal(t, rate.Inf, live.Limit())
}
