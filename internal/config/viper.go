package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. MAILRELAY_NOTIFY_URL.
const EnvPrefix = "MAILRELAY"

// envKeys are bound explicitly so they override the file even when absent from it.
var envKeys = []string{
	"active_status",
	"parallelism",
	"descriptors_json",
	"notify.url",
	"notify.method",
	"notify.timeout",
	"notify.auth.type",
	"recipient.id",
	"recipient.type",
	"store.disabled",
	"store.type",
	"store.sqlite.path",
	"store.postgres.dsn",
	"server.addr",
	"server.path",
	"logging.level",
	"logging.format",
}

// NewViper returns a viper instance reading path (if set) with MAILRELAY_*
// environment overrides. A .env file in the working directory is loaded
// into the process environment first; existing variables are not replaced.
func NewViper(path string) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return v, nil
}

// FromViper decodes the document held by v.
func FromViper(v *viper.Viper) (*ConfigDoc, error) {
	var doc ConfigDoc
	if err := v.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &doc, nil
}

// LoadViper reads path plus environment overrides into a ConfigDoc.
func LoadViper(path string) (*ConfigDoc, error) {
	v, err := NewViper(path)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}
