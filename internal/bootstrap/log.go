package bootstrap

import (
	"io"
	stdlog "log"
	"os"

	"github.com/alist-org/arkit/internal/conf"
	"github.com/alist-org/arkit/pkg/utils"
	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
)

func init() {
	formatter := logrus.TextFormatter{
		ForceColors:               true,
		EnvironmentOverrideColors: true,
		TimestampFormat:           "2006-01-02 15:04:05",
		FullTimestamp:             true,
	}
	logrus.SetFormatter(&formatter)
	utils.Log.SetFormatter(&formatter)
}

func setLog(l *logrus.Logger, level logrus.Level, debug bool) {
	l.SetLevel(level)
	l.SetReportCaller(debug)
}

// InitLog applies the log section of the config. With a file name set the
// output goes to a rotated file, mirrored to stdout when logStd is set.
func InitLog(debug, logStd bool) {
	cfg := conf.Conf.Log
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.Warnf("unknown log level %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	if debug {
		level = logrus.DebugLevel
	}
	setLog(logrus.StandardLogger(), level, debug)
	setLog(utils.Log, level, debug)
	if cfg.Name != "" {
		var w io.Writer = &lumberjack.Logger{
			Filename:   cfg.Name,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		if debug || logStd {
			w = io.MultiWriter(os.Stdout, w)
		}
		logrus.SetOutput(w)
		utils.Log.SetOutput(w)
	}
	stdlog.SetOutput(logrus.StandardLogger().Out)
	utils.Log.Debugf("init logrus...")
}
