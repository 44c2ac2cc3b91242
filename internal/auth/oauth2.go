package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ClientCredentialsConfig holds configuration for the Client Credentials grant.
type ClientCredentialsConfig struct {
	Header    string   `mapstructure:"header"`
	ClientID  string   `mapstructure:"client_id"`
	ClientSec string   `mapstructure:"client_secret"`
	TokenURL  string   `mapstructure:"token_url"`
	Scopes    []string `mapstructure:"scopes"`
}

func (c ClientCredentialsConfig) validate() error {
	if strings.TrimSpace(c.TokenURL) == "" {
		return errors.New("oauth2: token_url is required for client_credentials grant")
	}
	if strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.ClientSec) == "" {
		return errors.New("oauth2: client_id and client_secret are required for client_credentials grant")
	}
	return nil
}

// clientCredentials caches the token until it expires.
type clientCredentials struct {
	c   ClientCredentialsConfig
	mu  sync.Mutex
	tok *oauth2.Token
}

func (m *clientCredentials) Acquire(ctx context.Context) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tok == nil || !m.tok.Valid() {
		cc := &clientcredentials.Config{
			ClientID:     strings.TrimSpace(m.c.ClientID),
			ClientSecret: strings.TrimSpace(m.c.ClientSec),
			TokenURL:     strings.TrimSpace(m.c.TokenURL),
			Scopes:       m.c.Scopes,
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		tok, err := cc.Token(ctx)
		if err != nil {
			return "", "", fmt.Errorf("oauth2: %w", err)
		}
		if !tok.Valid() || strings.TrimSpace(tok.AccessToken) == "" {
			return "", "", errors.New("oauth2: received invalid token")
		}
		m.tok = tok
	}
	return headerOrDefault(m.c.Header), m.tok.Type() + " " + m.tok.AccessToken, nil
}
