package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig signs a short-lived HS256 token per request.
type JWTConfig struct {
	Header   string                 `mapstructure:"header"`
	Secret   string                 `mapstructure:"secret"`
	TTL      time.Duration          `mapstructure:"ttl"`
	Subject  string                 `mapstructure:"sub"`
	Issuer   string                 `mapstructure:"iss"`
	Audience []string               `mapstructure:"aud"`
	Custom   map[string]interface{} `mapstructure:"custom"`
}

func (c JWTConfig) validate() error {
	if c.Secret == "" {
		return errors.New("jwt: secret required")
	}
	return nil
}

// Issue creates the signed token string. TTL defaults to five minutes.
func (c JWTConfig) Issue(now time.Time) (string, error) {
	if err := c.validate(); err != nil {
		return "", err
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	claims := jwt.MapClaims{}
	for k, v := range c.Custom {
		claims[k] = v
	}
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(ttl).Unix()
	if c.Subject != "" {
		claims["sub"] = c.Subject
	}
	if c.Issuer != "" {
		claims["iss"] = c.Issuer
	}
	if len(c.Audience) > 0 {
		claims["aud"] = c.Audience
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.Secret))
}

func (c JWTConfig) Acquire(context.Context) (string, string, error) {
	tok, err := c.Issue(time.Now())
	if err != nil {
		return "", "", err
	}
	return headerOrDefault(c.Header), "Bearer " + tok, nil
}
