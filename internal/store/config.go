package store

import (
	"fmt"
	"strings"
)

const (
	// DefaultDBFileName is the sqlite file used when no path is configured.
	DefaultDBFileName = "mailrelay.db"
	// DefaultTableName holds the processed-event ledger.
	DefaultTableName = "mailrelay_events"

	defaultPostgresPort    = 5432
	defaultPostgresSSLMode = "disable"
	sqliteBusyTimeoutMS    = 5000
)

// SQLiteConfig configures the sqlite backend.
type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// PostgresConfig configures the postgres backend. DSN wins over components.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn" yaml:"dsn"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	DBName   string `mapstructure:"dbname" yaml:"dbname"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

// BuildDSN returns the pgx DSN for the config.
func (p PostgresConfig) BuildDSN() (string, error) {
	if dsn := strings.TrimSpace(p.DSN); dsn != "" {
		return dsn, nil
	}
	host := strings.TrimSpace(p.Host)
	if host == "" {
		return "", fmt.Errorf("postgres: dsn or host is required")
	}
	port := p.Port
	if port == 0 {
		port = defaultPostgresPort
	}
	ssl := strings.TrimSpace(p.SSLMode)
	if ssl == "" {
		ssl = defaultPostgresSSLMode
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		strings.TrimSpace(p.User), strings.TrimSpace(p.Password), host, port, strings.TrimSpace(p.DBName), ssl), nil
}

// Config selects and configures a backend.
type Config struct {
	Disabled  bool           `mapstructure:"disabled" yaml:"disabled"`
	Type      string         `mapstructure:"type" yaml:"type"`
	TableName string         `mapstructure:"table_name" yaml:"table_name"`
	SQLite    SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres  PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}
