package conf

// LogConfig controls where and how verbosely the tool logs.
type LogConfig struct {
	Level      string `json:"level" env:"LEVEL"`
	Name       string `json:"name" env:"NAME"`
	MaxSize    int    `json:"max_size" env:"MAX_SIZE"`
	MaxBackups int    `json:"max_backups" env:"MAX_BACKUPS"`
	MaxAge     int    `json:"max_age" env:"MAX_AGE"`
	Compress   bool   `json:"compress" env:"COMPRESS"`
}

// ArchiveConfig holds the defaults applied to handlers and writers.
type ArchiveConfig struct {
	Format    string `json:"format" env:"FORMAT"`
	Level     string `json:"level" env:"LEVEL"`
	Threads   int    `json:"threads" env:"THREADS"`
	TempDir   string `json:"temp_dir" env:"TEMP_DIR"`
	Overwrite string `json:"overwrite" env:"OVERWRITE"`
}

// LimitConfig caps IO in bytes per second. Negative means unlimited.
type LimitConfig struct {
	ArchiveRead    int `json:"archive_read" env:"ARCHIVE_READ"`
	ArchiveWrite   int `json:"archive_write" env:"ARCHIVE_WRITE"`
	ServerDownload int `json:"server_download" env:"SERVER_DOWNLOAD"`
}

type Scheme struct {
	Address        string `json:"address" env:"ADDR"`
	HttpPort       int    `json:"http_port" env:"HTTP_PORT"`
	MaxConnections int    `json:"max_connections" env:"MAX_CONNECTIONS"`
	Root           string `json:"root" env:"ROOT"`
}

type Config struct {
	Log     LogConfig     `json:"log" envPrefix:"LOG_"`
	Archive ArchiveConfig `json:"archive" envPrefix:"ARCHIVE_"`
	Limit   LimitConfig   `json:"limit" envPrefix:"LIMIT_"`
	Scheme  Scheme        `json:"scheme"`
}

func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			MaxSize:    50,
			MaxBackups: 30,
			MaxAge:     28,
		},
		Archive: ArchiveConfig{
			Format:    "auto",
			Level:     "normal",
			Overwrite: "overwrite",
		},
		Limit: LimitConfig{
			ArchiveRead:    -1,
			ArchiveWrite:   -1,
			ServerDownload: -1,
		},
		Scheme: Scheme{
			Address:        "0.0.0.0",
			HttpPort:       5245,
			MaxConnections: 0,
			Root:           ".",
		},
	}
}
