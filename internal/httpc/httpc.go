package httpc

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Config holds client transport options.
type Config struct {
	Insecure      bool
	MinTLSVersion string
	MaxTLSVersion string
	Timeout       time.Duration
}

// ParseTLSVersion accepts "1.2", "12", "tls1.2" and "tls12" style values.
// Empty input returns 0 (library default).
func ParseTLSVersion(s string) (uint16, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "":
		return 0, nil
	case "1.0", "10", "tls1.0", "tls10":
		return tls.VersionTLS10, nil
	case "1.1", "11", "tls1.1", "tls11":
		return tls.VersionTLS11, nil
	case "1.2", "12", "tls1.2", "tls12":
		return tls.VersionTLS12, nil
	case "1.3", "13", "tls1.3", "tls13":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported tls version: %s", s)
	}
}

// TLSConfig builds the tls.Config for c. MinVersion defaults to TLS 1.2.
func (c Config) TLSConfig() (*tls.Config, error) {
	minV, err := ParseTLSVersion(c.MinTLSVersion)
	if err != nil {
		return nil, err
	}
	maxV, err := ParseTLSVersion(c.MaxTLSVersion)
	if err != nil {
		return nil, err
	}
	if minV == 0 {
		minV = tls.VersionTLS12
	}
	if maxV != 0 && maxV < minV {
		return nil, fmt.Errorf("max tls version %s is lower than min %s", c.MaxTLSVersion, c.MinTLSVersion)
	}
	// #nosec G402 -- InsecureSkipVerify is an explicit opt-in for test endpoints
	return &tls.Config{MinVersion: minV, MaxVersion: maxV, InsecureSkipVerify: c.Insecure}, nil
}

// New returns a resty.Client configured according to c.
func (c Config) New() (*resty.Client, error) {
	cfg, err := c.TLSConfig()
	if err != nil {
		return nil, err
	}
	client := resty.New().SetTLSClientConfig(cfg)
	if c.Timeout > 0 {
		client.SetTimeout(c.Timeout)
	}
	return client, nil
}
