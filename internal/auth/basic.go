package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
)

// BasicConfig holds configuration for Basic authentication.
type BasicConfig struct {
	Header   string `mapstructure:"header"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

func (c BasicConfig) validate() error {
	if strings.TrimSpace(c.Username) == "" || strings.TrimSpace(c.Password) == "" {
		return errors.New("basic: username and password are required")
	}
	return nil
}

// Acquire returns a Basic auth header value constructed from Username and Password.
func (c BasicConfig) Acquire(context.Context) (string, string, error) {
	if err := c.validate(); err != nil {
		return "", "", err
	}
	cred := base64.StdEncoding.EncodeToString([]byte(strings.TrimSpace(c.Username) + ":" + strings.TrimSpace(c.Password)))
	return headerOrDefault(c.Header), "Basic " + cred, nil
}
