package mailrelay

import (
	"context"

	"github.com/loykin/mailrelay/internal/auth"
	"github.com/loykin/mailrelay/internal/common"
	"github.com/loykin/mailrelay/internal/config"
	"github.com/loykin/mailrelay/internal/notify"
	"github.com/loykin/mailrelay/internal/relay"
	"github.com/loykin/mailrelay/internal/store"
	"github.com/loykin/mailrelay/pkg/extract"
)

// Re-export commonly used types for public API

// Descriptor describes how to extract one property from a text.
type Descriptor = extract.Descriptor

// End selects how a value is terminated.
type End = extract.End

// Cardinality selects single or collected values.
type Cardinality = extract.Cardinality

const (
	Singleton  = extract.Singleton
	Collection = extract.Collection
)

// ErrInvalidDescriptor is returned for malformed descriptors.
var ErrInvalidDescriptor = extract.ErrInvalidDescriptor

// Terminator ends a value at the first occurrence of s.
func Terminator(s string) End { return extract.Terminator(s) }

// FixedLength takes exactly n characters after the marker.
func FixedLength(n int) End { return extract.FixedLength(n) }

// Extract runs a single descriptor against text.
func Extract(text string, d Descriptor) (string, error) { return extract.Extract(text, d) }

// ExtractAll runs every descriptor and maps targets to values.
func ExtractAll(text string, ds []Descriptor) (map[string]string, error) {
	return extract.ExtractAll(text, ds)
}

// ExtractAllParallel is ExtractAll on a bounded worker pool.
func ExtractAllParallel(ctx context.Context, text string, ds []Descriptor, workers int) (map[string]string, error) {
	return extract.ExtractAllParallel(ctx, text, ds, workers)
}

// ParseDescriptors decodes a JSON descriptor array, legacy or native.
func ParseDescriptors(data []byte) ([]Descriptor, error) { return extract.ParseDescriptors(data) }

// Config is the YAML configuration document.
type Config = config.ConfigDoc

// LoadConfig reads a config file with MAILRELAY_* environment overrides.
func LoadConfig(path string) (*Config, error) { return config.LoadViper(path) }

// Processor runs the relay pipeline for one event at a time.
type Processor = relay.Processor

// Result describes the outcome for one event.
type Result = relay.Result

var (
	ErrInactive  = relay.ErrInactive
	ErrDuplicate = relay.ErrDuplicate
)

// Trigger is the notification body.
type Trigger = notify.Trigger

// Store is the processed-event ledger.
type Store = store.Store

// OpenStore opens the ledger described by c.Store, or returns nil when it is disabled.
func OpenStore(ctx context.Context, c *Config) (*Store, error) {
	if c.Store.Disabled {
		return nil, nil
	}
	return store.Open(ctx, c.Store)
}

// NewProcessor wires descriptors, the notification client and an optional ledger.
func NewProcessor(c *Config, ledger *Store) (*Processor, error) {
	ds, err := c.DescriptorSet()
	if err != nil {
		return nil, err
	}
	opts, err := c.NotifyOptions()
	if err != nil {
		return nil, err
	}
	client, err := notify.New(opts)
	if err != nil {
		return nil, err
	}
	ro := relay.Options{
		Descriptors:  ds,
		Keys:         c.Keys(),
		ActiveStatus: c.Active(),
		Recipient:    notify.Recipient{ID: c.Recipient.ID, Type: c.Recipient.Type},
		Parallelism:  c.Parallelism,
		Notifier:     client,
	}
	if ledger != nil {
		ro.Ledger = ledger
	}
	return relay.New(ro)
}

// Relay bundles a Processor with the ledger it writes to.
type Relay struct {
	*Processor
	ledger *Store
}

// Close releases the ledger.
func (r *Relay) Close() error { return r.ledger.Close() }

// NewRelay opens the ledger and builds a Processor from a config document.
func NewRelay(ctx context.Context, c *Config) (*Relay, error) {
	ledger, err := OpenStore(ctx, c)
	if err != nil {
		return nil, err
	}
	p, err := NewProcessor(c, ledger)
	if err != nil {
		_ = ledger.Close()
		return nil, err
	}
	return &Relay{Processor: p, ledger: ledger}, nil
}

// AuthMethod Plugin-style provider interface and registration
type AuthMethod = auth.Method

type AuthFactory = auth.Factory

// RegisterAuthProvider exposes custom auth provider registration for library users.
func RegisterAuthProvider(typ string, f AuthFactory) { auth.Register(typ, f) }

// Logger re-exports the structured logger.
type Logger = common.Logger

// SetDefaultLogger replaces the logger used by every package.
func SetDefaultLogger(l *Logger) { common.SetDefaultLogger(l) }
