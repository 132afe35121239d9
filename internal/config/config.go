package config

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/magnet-network/presale-engine/common"
	presaleconfig "github.com/magnet-network/presale-engine/modules/presale/config"
	"github.com/magnet-network/presale-engine/pkg/logger"
	"github.com/magnet-network/presale-engine/pkg/logger/slogx"
	"github.com/magnet-network/presale-engine/pkg/middleware/requestcontext"
	"github.com/magnet-network/presale-engine/pkg/middleware/requestlogger"
)

var (
	configOnce sync.Once
	config     = &Config{
		Logger: logger.Config{
			Output: "TEXT",
		},
		HTTPServer: HTTPServerConfig{
			Port: 8080,
		},
	}
)

type Config struct {
	Logger        logger.Config    `mapstructure:"logger"`
	Network       common.Network   `mapstructure:"network"`
	APIOnly       bool             `mapstructure:"api_only"`
	EnableModules []string         `mapstructure:"enable_modules"`
	HTTPServer    HTTPServerConfig `mapstructure:"http_server"`
	Modules       Modules          `mapstructure:"modules"`
}

type HTTPServerConfig struct {
	Port      int                               `mapstructure:"port"`
	Logger    requestlogger.Config              `mapstructure:"logger"`
	RequestIP requestcontext.WithClientIPConfig `mapstructure:"request_ip"`
}

type Modules struct {
	Presale presaleconfig.Config `mapstructure:"presale"`
}

// BindPFlag binds a specific command line flag to a configuration key.
func BindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		logger.Panic("Failed to bind flag to configuration", slogx.String("key", key), slogx.Error(err))
	}
}

// Parse loads the configuration from the given file (or the default lookup
// paths when empty) and environment variables.
func Parse(configFile string) Config {
	configOnce.Do(func() {
		if configFile != "" {
			viper.SetConfigFile(configFile)
		} else {
			viper.AddConfigPath("./")
			viper.SetConfigName("config")
		}

		viper.AutomaticEnv()
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		if err := viper.ReadInConfig(); err != nil {
			var errNotfound viper.ConfigFileNotFoundError
			if errors.As(err, &errNotfound) {
				logger.Warn("config file not found, use default value", slogx.Error(err))
			} else {
				logger.Panic("invalid config file", slogx.Error(err))
			}
		}

		if err := viper.Unmarshal(&config); err != nil {
			logger.Panic("failed to unmarshal config", slogx.Error(err))
		}
	})

	return *config
}

// Load returns the parsed configuration.
func Load() Config {
	return Parse("")
}
