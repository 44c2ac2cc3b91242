package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNew_NoneAndUnknown(t *testing.T) {
	for _, typ := range []string{"", "none", " NONE "} {
		m, err := New(typ, nil)
		if err != nil || m != nil {
			t.Fatalf("New(%q) = %v, %v; want nil, nil", typ, m, err)
		}
	}
	if _, err := New("kerberos", nil); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected unsupported provider error, got %v", err)
	}
}

func TestBasic(t *testing.T) {
	m, err := New("basic", map[string]interface{}{"username": "admin", "password": "pw"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	h, v, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if h != "Authorization" || v != "Basic YWRtaW46cHc=" {
		t.Fatalf("got %s: %s", h, v)
	}
	if _, err := New("basic", map[string]interface{}{"username": "admin"}); err == nil {
		t.Fatal("expected error for missing password")
	}
}

func TestTokenAndBearer(t *testing.T) {
	m, err := New("token", map[string]interface{}{"header": "X-Api-Key", "token": "k1"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	h, v, _ := m.Acquire(context.Background())
	if h != "X-Api-Key" || v != "k1" {
		t.Fatalf("got %s: %s", h, v)
	}

	b, err := New("bearer", map[string]interface{}{"token": "abc"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	h, v, _ = b.Acquire(context.Background())
	if h != "Authorization" || v != "Bearer abc" {
		t.Fatalf("got %s: %s", h, v)
	}
	if _, err := New("bearer", map[string]interface{}{}); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestJWT(t *testing.T) {
	m, err := New("jwt", map[string]interface{}{"secret": "s3cr3t", "ttl": "1m", "sub": "mailrelay", "custom": map[string]interface{}{"tenant": "ops"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, v, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	raw := strings.TrimPrefix(v, "Bearer ")
	tok, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) { return []byte("s3cr3t"), nil })
	if err != nil || !tok.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	claims := tok.Claims.(jwt.MapClaims)
	if claims["sub"] != "mailrelay" || claims["tenant"] != "ops" {
		t.Fatalf("unexpected claims: %v", claims)
	}
	exp, _ := claims.GetExpirationTime()
	if exp == nil || time.Until(exp.Time) > time.Minute+time.Second {
		t.Fatalf("unexpected exp: %v", exp)
	}
	if _, err := New("jwt", map[string]interface{}{}); err == nil {
		t.Fatal("expected error for missing secret")
	}
}

func TestOAuth2ClientCredentials_CachesToken(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_ = r.ParseForm()
		if r.Form.Get("grant_type") != "client_credentials" || r.Form.Get("client_id") != "id" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	m, err := New("oauth2", map[string]interface{}{"client_id": "id", "client_secret": "sec", "token_url": srv.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for i := 0; i < 2; i++ {
		h, v, err := m.Acquire(context.Background())
		if err != nil {
			t.Fatalf("acquire: %v", err)
		}
		if h != "Authorization" || v != "Bearer tok-1" {
			t.Fatalf("got %s: %s", h, v)
		}
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("token endpoint hit %d times, want 1", hits)
	}
	if _, err := New("oauth2", map[string]interface{}{"client_id": "id"}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRegister_Custom(t *testing.T) {
	Register("static-test", func(map[string]interface{}) (Method, error) {
		return TokenConfig{Header: "X-Test", Token: "t"}, nil
	})
	m, err := New("Static-Test", nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if h, v, _ := m.Acquire(context.Background()); h != "X-Test" || v != "t" {
		t.Fatalf("got %s: %s", h, v)
	}
}
