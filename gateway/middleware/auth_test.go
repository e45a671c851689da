package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "merchant-console-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func authRequest(t *testing.T, auth *Authenticator, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var subject string
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = Subject(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/coupons/issue", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res, subject
}

func TestAuthenticatorDisabledPassesThrough(t *testing.T) {
	res, _ := authRequest(t, NewAuthenticator(AuthConfig{}, nil), "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", res.Code)
	}
}

func TestAuthenticatorAcceptsValidToken(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: testSecret, Issuer: "onecoupon", Audience: "serve"}, nil)
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "merchant-1",
		"iss": "onecoupon",
		"aud": "serve",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	res, subject := authRequest(t, auth, "Bearer "+token)
	if res.Code != http.StatusOK {
		t.Fatalf("expected success, got %d: %s", res.Code, res.Body.String())
	}
	if subject != "merchant-1" {
		t.Fatalf("unexpected subject %q", subject)
	}
}

func TestAuthenticatorRejects(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: testSecret, Issuer: "onecoupon"}, nil)
	valid := jwt.MapClaims{"sub": "m", "iss": "onecoupon", "exp": time.Now().Add(time.Hour).Unix()}

	cases := map[string]string{
		"missing":      "",
		"wrong scheme": "Basic " + signToken(t, testSecret, valid),
		"wrong secret": "Bearer " + signToken(t, "other", valid),
		"wrong issuer": "Bearer " + signToken(t, testSecret, jwt.MapClaims{"iss": "evil", "exp": time.Now().Add(time.Hour).Unix()}),
		"expired":      "Bearer " + signToken(t, testSecret, jwt.MapClaims{"iss": "onecoupon", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no expiry":    "Bearer " + signToken(t, testSecret, jwt.MapClaims{"iss": "onecoupon"}),
	}
	for name, header := range cases {
		res, _ := authRequest(t, auth, header)
		if res.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, res.Code)
		}
	}
}

func TestAuthenticatorMasksRejectedToken(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: testSecret}, logger)
	res, _ := authRequest(t, auth, "Bearer not.a.valid-token")
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if strings.Contains(buf.String(), "valid-token") {
		t.Fatalf("token leaked into logs: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "[REDACTED]") {
		t.Fatalf("expected masked authorization in logs: %s", buf.String())
	}
}
