package auth

import (
	"context"
	"errors"
	"strings"
)

// TokenConfig sends a static credential, e.g. an API key header or a bearer token.
type TokenConfig struct {
	Header string `mapstructure:"header"`
	Prefix string `mapstructure:"prefix"`
	Token  string `mapstructure:"token"`
}

func (c TokenConfig) validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return errors.New("token: token is required")
	}
	return nil
}

// Acquire returns "<prefix> <token>" or the bare token when no prefix is set.
func (c TokenConfig) Acquire(context.Context) (string, string, error) {
	if err := c.validate(); err != nil {
		return "", "", err
	}
	v := strings.TrimSpace(c.Token)
	if p := strings.TrimSpace(c.Prefix); p != "" {
		v = p + " " + v
	}
	return headerOrDefault(c.Header), v, nil
}
