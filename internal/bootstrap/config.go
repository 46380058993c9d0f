package bootstrap

import (
	"os"
	"path/filepath"

	"github.com/alist-org/arkit/internal/conf"
	"github.com/alist-org/arkit/pkg/utils"
	"github.com/caarlos0/env/v9"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "ARKIT_"

// InitConfig loads the defaults, then the JSON file at path when one is
// given, then ARKIT_ environment variables on top.
func InitConfig(path string) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	conf.Conf = cfg
	return nil
}

func LoadConfig(path string) (*conf.Config, error) {
	cfg := conf.DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			log.Infof("config file %s not exists, creating default", path)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, errors.WithStack(err)
			}
			err = utils.WriteJsonToFile(func(b []byte) error {
				return os.WriteFile(path, b, 0o644)
			}, cfg)
			if err != nil {
				return nil, errors.WithMessage(err, "failed to write default config")
			}
		case err != nil:
			return nil, errors.WithStack(err)
		default:
			if err := utils.Json.Unmarshal(data, cfg); err != nil {
				return nil, errors.WithMessagef(err, "failed to parse config %s", path)
			}
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, errors.WithMessage(err, "failed to load config from env")
	}
	return cfg, nil
}
