package svcreg

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config carries the registry's only configuration: the well-known
// signalling server address and the optional brewery room names. An empty
// brewery name disables the corresponding detector; an empty server
// address disables version recording.
type Config struct {
	ServerAddress      string `mapstructure:"server_address"`
	RecorderBrewery    string `mapstructure:"recorder_brewery"`
	SipRecorderBrewery string `mapstructure:"sip_recorder_brewery"`
	TranscriberBrewery string `mapstructure:"transcriber_brewery"`
}

// LoadConfig reads Config from the given YAML file. Every key may be
// overridden by an SVCREG_-prefixed environment variable.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)

	v.SetEnvPrefix("svcreg")
	v.AutomaticEnv()

	v.SetDefault("server_address", "")
	v.SetDefault("recorder_brewery", "")
	v.SetDefault("sip_recorder_brewery", "")
	v.SetDefault("transcriber_brewery", "")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}
