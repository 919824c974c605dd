package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"code.dogecoin.org/bittune/pkg/msg"
)

var (
	ErrConfigFailedToSetDefaults = errors.New("error occurred while setting defaults")
	ErrConfigPath                = errors.New("config path error")
	ErrConfigInvalid             = errors.New("invalid config")
)

// Load builds the config from defaults, then the optional config file,
// then BITTUNE_* environment variables, then any flags already bound to v.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	cfg := getDefaultConfig()

	err := setDefaults(v, cfg)
	if err != nil {
		return nil, err
	}

	err = overrideWithFile(v, configFile)
	if err != nil {
		return nil, err
	}

	v.SetEnvPrefix("BITTUNE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err = v.Unmarshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MinPeers <= 0 {
		return errors.Join(ErrConfigInvalid, fmt.Errorf("minPeers must be at least 1, got %d", c.MinPeers))
	}
	if _, err := msg.ParseMagic(c.Network); err != nil {
		return errors.Join(ErrConfigInvalid, fmt.Errorf("network: %w", err))
	}
	if c.DialTimeout <= 0 {
		return errors.Join(ErrConfigInvalid, fmt.Errorf("dialTimeout must be positive, got %v", c.DialTimeout))
	}
	if c.MaxPayloadSize < msg.HeaderSize {
		return errors.Join(ErrConfigInvalid, fmt.Errorf("maxPayloadSize too small: %d", c.MaxPayloadSize))
	}
	if len(c.UserAgent) > msg.MaxUserAgentLen {
		return errors.Join(ErrConfigInvalid, fmt.Errorf("userAgent longer than %d bytes", msg.MaxUserAgentLen))
	}
	return nil
}

func setDefaults(v *viper.Viper, defaultConfig *Config) error {
	defaultsMap := make(map[string]interface{})

	if err := mapstructure.Decode(defaultConfig, &defaultsMap); err != nil {
		err = errors.Join(ErrConfigFailedToSetDefaults, err)
		return err
	}

	for key, value := range defaultsMap {
		v.SetDefault(key, value)
	}

	return nil
}

func overrideWithFile(v *viper.Viper, configFile string) error {
	if configFile == "" {
		return nil
	}

	stat, err := os.Stat(configFile)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Join(ErrConfigPath, fmt.Errorf("path: %s does not exist", configFile))
		}
		return err
	}
	if stat.IsDir() {
		return errors.Join(ErrConfigPath, fmt.Errorf("path: %s should be a file", configFile))
	}

	v.SetConfigFile(configFile)
	return v.ReadInConfig()
}
