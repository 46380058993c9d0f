package flags

var (
	ConfigFile string
	Debug      bool
	LogStd     bool
	JSON       bool
	Password   string
	Format     string
)
