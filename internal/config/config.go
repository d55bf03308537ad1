package config

import "github.com/spf13/viper"

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Reconfigure struct {
		// Share of the total redistributed quantity that triggers a
		// per-destination warning. Zero falls back to the default.
		DestinationWarnShare float64 `mapstructure:"destination_warn_share"`
	} `mapstructure:"reconfigure"`
}

const DefaultDestinationWarnShare = 0.8

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	if c.Reconfigure.DestinationWarnShare <= 0 {
		c.Reconfigure.DestinationWarnShare = DefaultDestinationWarnShare
	}
	return c, nil
}
