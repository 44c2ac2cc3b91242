package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/loykin/mailrelay"
	"github.com/loykin/mailrelay/internal/config"
	"github.com/loykin/mailrelay/internal/relay"
	"github.com/loykin/mailrelay/internal/store"
	"github.com/spf13/viper"
)

// loadConfig reads the config named by --config, applying MAILRELAY_* overrides.
func loadConfig() (*viper.Viper, *config.ConfigDoc, error) {
	path := strings.TrimSpace(viper.GetString("config"))
	v, err := config.NewViper(path)
	if err != nil {
		return nil, nil, err
	}
	doc, err := config.FromViper(v)
	if err != nil {
		return nil, nil, err
	}
	if viper.GetBool("no_store") {
		doc.Store.Disabled = true
	}
	if doc.Store.SQLite.Path != "" && !filepath.IsAbs(doc.Store.SQLite.Path) && doc.Store.SQLite.Path != ":memory:" {
		doc.Store.SQLite.Path = filepath.Join(filepath.Dir(path), doc.Store.SQLite.Path)
	}
	if err := doc.SetupLogging(); err != nil {
		return nil, nil, err
	}
	return v, doc, nil
}

// openLedger returns nil when the store is disabled.
func openLedger(ctx context.Context, doc *config.ConfigDoc) (*store.Store, error) {
	return mailrelay.OpenStore(ctx, doc)
}

func buildProcessor(doc *config.ConfigDoc, ledger *store.Store) (*relay.Processor, error) {
	return mailrelay.NewProcessor(doc, ledger)
}

// readInput reads the named file, or stdin for "" and "-".
func readInput(name string, stdin io.Reader) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(stdin)
	}
	// #nosec G304 -- input path is provided intentionally by the user
	b, err := os.ReadFile(filepath.Clean(name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return b, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
