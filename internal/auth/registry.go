// Package auth resolves the credential header sent with outbound notifications.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
)

// Method acquires an authentication header for a request.
type Method interface {
	Acquire(ctx context.Context) (header, value string, err error)
}

// Factory builds a Method instance from a loosely-typed spec map.
type Factory func(spec map[string]interface{}) (Method, error)

var (
	providersMu sync.RWMutex
	providers   = map[string]Factory{}
)

func normalizeKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Register registers an auth provider factory under a type key (e.g., "oauth2", "basic").
func Register(typ string, f Factory) {
	key := normalizeKey(typ)
	if key == "" || f == nil {
		return
	}
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[key] = f
}

// New builds the Method registered under typ. Types "" and "none" return nil, nil.
func New(typ string, spec map[string]interface{}) (Method, error) {
	key := normalizeKey(typ)
	if key == "" || key == "none" {
		return nil, nil
	}
	providersMu.RLock()
	f, ok := providers[key]
	providersMu.RUnlock()
	if !ok {
		return nil, errors.New("auth: unsupported provider type: " + typ)
	}
	m, err := f(spec)
	if err != nil {
		return nil, fmt.Errorf("auth %s: %w", key, err)
	}
	return m, nil
}

func decode(spec map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(spec)
}

func headerOrDefault(h string) string {
	h = strings.TrimSpace(h)
	if h == "" {
		return "Authorization"
	}
	return h
}

func init() {
	Register("basic", func(spec map[string]interface{}) (Method, error) {
		var c BasicConfig
		if err := decode(spec, &c); err != nil {
			return nil, err
		}
		if err := c.validate(); err != nil {
			return nil, err
		}
		return c, nil
	})
	Register("token", func(spec map[string]interface{}) (Method, error) {
		var c TokenConfig
		if err := decode(spec, &c); err != nil {
			return nil, err
		}
		if err := c.validate(); err != nil {
			return nil, err
		}
		return c, nil
	})
	Register("bearer", func(spec map[string]interface{}) (Method, error) {
		c := TokenConfig{Prefix: "Bearer"}
		if err := decode(spec, &c); err != nil {
			return nil, err
		}
		if err := c.validate(); err != nil {
			return nil, err
		}
		return c, nil
	})
	Register("oauth2", func(spec map[string]interface{}) (Method, error) {
		var c ClientCredentialsConfig
		if err := decode(spec, &c); err != nil {
			return nil, err
		}
		if err := c.validate(); err != nil {
			return nil, err
		}
		return &clientCredentials{c: c}, nil
	})
	Register("jwt", func(spec map[string]interface{}) (Method, error) {
		var c JWTConfig
		if err := decode(spec, &c); err != nil {
			return nil, err
		}
		if err := c.validate(); err != nil {
			return nil, err
		}
		return c, nil
	})
}
