package conf

var (
	Version = "dev"
	Conf    *Config
)
