// Package config loads the mailrelay configuration document.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loykin/mailrelay/internal/auth"
	"github.com/loykin/mailrelay/internal/common"
	"github.com/loykin/mailrelay/internal/httpc"
	"github.com/loykin/mailrelay/internal/notify"
	"github.com/loykin/mailrelay/internal/payload"
	"github.com/loykin/mailrelay/internal/retry"
	"github.com/loykin/mailrelay/internal/store"
	"github.com/loykin/mailrelay/pkg/extract"
	"gopkg.in/yaml.v3"
)

// Property keys used when the config leaves them empty.
const (
	DefaultBodyKey      = "eBodyText"
	DefaultHTMLBodyKey  = "eBodyHTML"
	DefaultSubjectKey   = "eSubject"
	DefaultFromKey      = "eFrom"
	DefaultActiveStatus = "active"
	DefaultServerAddr   = ":8080"
	DefaultServerPath   = "/events"
)

type PropertiesConfig struct {
	Body     string `mapstructure:"body" yaml:"body"`
	HTMLBody string `mapstructure:"html_body" yaml:"html_body"`
	Subject  string `mapstructure:"subject" yaml:"subject"`
	From     string `mapstructure:"from" yaml:"from"`
}

type AuthConfig struct {
	// Provider type key: none, basic, token, bearer, oauth2, jwt
	Type   string                 `mapstructure:"type" yaml:"type"`
	Config map[string]interface{} `mapstructure:"config" yaml:"config"`
}

type ClientConfig struct {
	Insecure      bool   `mapstructure:"insecure" yaml:"insecure"`
	MinTLSVersion string `mapstructure:"min_tls_version" yaml:"min_tls_version"`
	MaxTLSVersion string `mapstructure:"max_tls_version" yaml:"max_tls_version"`
}

type RetryConfig struct {
	MaxRetries   *int   `mapstructure:"max_retries" yaml:"max_retries"`
	InitialDelay string `mapstructure:"initial_delay" yaml:"initial_delay"`
	MaxDelay     string `mapstructure:"max_delay" yaml:"max_delay"`
}

type NotifyConfig struct {
	URL           string          `mapstructure:"url" yaml:"url"`
	Method        string          `mapstructure:"method" yaml:"method"`
	SuccessStatus []int           `mapstructure:"success_status" yaml:"success_status"`
	Timeout       string          `mapstructure:"timeout" yaml:"timeout"`
	Headers       []notify.Header `mapstructure:"headers" yaml:"headers"`
	Auth          AuthConfig      `mapstructure:"auth" yaml:"auth"`
	Client        ClientConfig    `mapstructure:"client" yaml:"client"`
	Retry         RetryConfig     `mapstructure:"retry" yaml:"retry"`
}

type RecipientConfig struct {
	ID   string `mapstructure:"id" yaml:"id"`
	Type string `mapstructure:"type" yaml:"type"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	Path string `mapstructure:"path" yaml:"path"`
}

type LoggingConfig struct {
	Level         string `mapstructure:"level" yaml:"level"`                   // error, warn, info, debug
	Format        string `mapstructure:"format" yaml:"format"`                 // text, json, color
	MaskSensitive *bool  `mapstructure:"mask_sensitive" yaml:"mask_sensitive"` // enable/disable sensitive data masking
	Color         *bool  `mapstructure:"color" yaml:"color"`                   // enable/disable colorized output
}

type ConfigDoc struct {
	Properties PropertiesConfig `mapstructure:"properties" yaml:"properties"`
	// Descriptors accepts legacy propInfo objects and native descriptor objects.
	Descriptors []map[string]interface{} `mapstructure:"descriptors" yaml:"descriptors"`
	// DescriptorsJSON holds a JSON array string, appended after Descriptors.
	DescriptorsJSON string          `mapstructure:"descriptors_json" yaml:"descriptors_json"`
	Notify          NotifyConfig    `mapstructure:"notify" yaml:"notify"`
	Recipient       RecipientConfig `mapstructure:"recipient" yaml:"recipient"`
	ActiveStatus    string          `mapstructure:"active_status" yaml:"active_status"`
	Parallelism     int             `mapstructure:"parallelism" yaml:"parallelism"`
	Store           store.Config    `mapstructure:"store" yaml:"store"`
	Server          ServerConfig    `mapstructure:"server" yaml:"server"`
	Logging         LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// Load decodes the YAML file at path into c.
func (c *ConfigDoc) Load(path string) error {
	clean := filepath.Clean(path)
	// Ensure path points to a regular file to avoid opening directories/special files
	if info, statErr := os.Stat(clean); statErr != nil || !info.Mode().IsRegular() {
		if statErr != nil {
			return statErr
		}
		return fmt.Errorf("not a regular file: %s", clean)
	}
	// #nosec G304 -- config path is provided intentionally by the user; cleaned and validated above
	f, err := os.Open(clean)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := yaml.NewDecoder(f).Decode(c); err != nil {
		return fmt.Errorf("decode %s: %w", clean, err)
	}
	return nil
}

// Keys returns the payload property names with defaults applied.
func (c *ConfigDoc) Keys() payload.Keys {
	return payload.Keys{
		Body:     orDefault(c.Properties.Body, DefaultBodyKey),
		HTMLBody: orDefault(c.Properties.HTMLBody, DefaultHTMLBodyKey),
		Subject:  orDefault(c.Properties.Subject, DefaultSubjectKey),
		From:     orDefault(c.Properties.From, DefaultFromKey),
	}
}

// Active returns the status value of events that should be relayed.
func (c *ConfigDoc) Active() string {
	return orDefault(c.ActiveStatus, DefaultActiveStatus)
}

// ServerAddr returns the listen address and webhook path.
func (c *ConfigDoc) ServerAddr() (addr, path string) {
	addr = orDefault(c.Server.Addr, DefaultServerAddr)
	path = orDefault(c.Server.Path, DefaultServerPath)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return addr, path
}

// DescriptorSet returns the configured descriptors in order, each validated.
func (c *ConfigDoc) DescriptorSet() ([]extract.Descriptor, error) {
	out := make([]extract.Descriptor, 0, len(c.Descriptors))
	for i, m := range c.Descriptors {
		d, err := extract.FromMap(m)
		if err != nil {
			return nil, fmt.Errorf("descriptors[%d]: %w", i, err)
		}
		out = append(out, d)
	}
	fromJSON, err := ParseDescriptorsJSON(c.DescriptorsJSON)
	if err != nil {
		return nil, err
	}
	out = append(out, fromJSON...)
	if err := extract.ValidateAll(out); err != nil {
		return nil, err
	}
	return out, nil
}

// NotifyOptions builds the notification client options, acquiring nothing yet.
func (c *ConfigDoc) NotifyOptions() (notify.Options, error) {
	n := c.Notify
	opts := notify.Options{
		URL:           strings.TrimSpace(n.URL),
		Method:        n.Method,
		SuccessStatus: n.SuccessStatus,
		Headers:       n.Headers,
		Client: httpc.Config{
			Insecure:      n.Client.Insecure,
			MinTLSVersion: n.Client.MinTLSVersion,
			MaxTLSVersion: n.Client.MaxTLSVersion,
		},
	}
	timeout, err := parseDuration(n.Timeout)
	if err != nil {
		return opts, fmt.Errorf("notify.timeout: %w", err)
	}
	opts.Client.Timeout = timeout

	m, err := auth.New(n.Auth.Type, expandEnv(n.Auth.Config))
	if err != nil {
		return opts, fmt.Errorf("notify.auth: %w", err)
	}
	opts.Auth = m

	rc := retry.DefaultRetryConfig()
	if n.Retry.MaxRetries != nil {
		rc.MaxRetries = *n.Retry.MaxRetries
	}
	if d, err := parseDuration(n.Retry.InitialDelay); err != nil {
		return opts, fmt.Errorf("notify.retry.initial_delay: %w", err)
	} else if d > 0 {
		rc.InitialDelay = d
	}
	if d, err := parseDuration(n.Retry.MaxDelay); err != nil {
		return opts, fmt.Errorf("notify.retry.max_delay: %w", err)
	} else if d > 0 {
		rc.MaxDelay = d
	}
	opts.Retry = rc
	return opts, nil
}

// Validate reports every problem found in the document.
func (c *ConfigDoc) Validate() error {
	var errs []error
	if _, err := c.DescriptorSet(); err != nil {
		errs = append(errs, err)
	}
	if !c.Store.Disabled {
		switch strings.ToLower(strings.TrimSpace(c.Store.Type)) {
		case "", "sqlite", "sqlite3", "postgres", "postgresql", "pg":
		default:
			errs = append(errs, fmt.Errorf("store.type: unsupported value %q", c.Store.Type))
		}
	}
	if strings.TrimSpace(c.Notify.URL) == "" {
		errs = append(errs, errors.New("notify.url: required"))
	}
	if opts, err := c.NotifyOptions(); err != nil {
		errs = append(errs, err)
	} else if _, err := opts.Client.TLSConfig(); err != nil {
		errs = append(errs, fmt.Errorf("notify.client: %w", err))
	}
	for i, s := range c.Notify.SuccessStatus {
		if s < 100 || s > 599 {
			errs = append(errs, fmt.Errorf("notify.success_status[%d]: %d is not an HTTP status", i, s))
		}
	}
	if c.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("parallelism: must be >= 0, got %d", c.Parallelism))
	}
	if (c.Recipient.ID == "") != (c.Recipient.Type == "") {
		common.GetLogger().WithComponent("config").Warn("recipient needs both id and type, it will be ignored",
			"id", c.Recipient.ID, "type", c.Recipient.Type)
	}
	if _, err := common.ParseLogLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "text", "json", "color", "colour":
	default:
		errs = append(errs, fmt.Errorf("logging.format: invalid value %q (valid: text, json, color)", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// SetupLogging configures the global logger based on config settings
func (c *ConfigDoc) SetupLogging() error {
	level, err := common.ParseLogLevel(c.Logging.Level)
	if err != nil {
		return err
	}
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))

	useColor := false
	if c.Logging.Color != nil {
		useColor = *c.Logging.Color
	} else if format == "color" || format == "colour" {
		useColor = true
	}

	var logger *common.Logger
	switch format {
	case "json":
		logger = common.NewJSONLogger(level)
	case "color", "colour":
		logger = common.NewColorLogger(level)
	case "text", "":
		if useColor {
			logger = common.NewColorLogger(level)
		} else {
			logger = common.NewLogger(level)
		}
	default:
		return fmt.Errorf("invalid logging format: %s (valid: text, json, color)", c.Logging.Format)
	}

	maskingEnabled := true
	if c.Logging.MaskSensitive != nil {
		maskingEnabled = *c.Logging.MaskSensitive
	}
	logger.EnableMasking(maskingEnabled)
	common.SetDefaultLogger(logger)

	logger.Debug("logging configured",
		"level", level.String(),
		"format", orDefault(format, "text"),
		"color", useColor,
		"mask_sensitive", maskingEnabled)
	return nil
}

// expandEnv returns a copy of spec with ${VAR} references in string values
// replaced from the process environment.
func expandEnv(spec map[string]interface{}) map[string]interface{} {
	if spec == nil {
		return nil
	}
	out := make(map[string]interface{}, len(spec))
	for k, v := range spec {
		switch t := v.(type) {
		case string:
			out[k] = os.ExpandEnv(t)
		case map[string]interface{}:
			out[k] = expandEnv(t)
		default:
			out[k] = v
		}
	}
	return out
}

func orDefault(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}
