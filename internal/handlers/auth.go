package handlers

import (
	"crypto/subtle"
	"net/http"
)

// SecretHeader carries the shared secret for mutating routes
const SecretHeader = "x-api-secret"

// SecretParam is the body field and query parameter fallback for the secret
const SecretParam = "api_secret"

// requestSecret picks the caller's secret: header, then body, then query
func requestSecret(r *http.Request, bodySecret string) string {
	if s := r.Header.Get(SecretHeader); s != "" {
		return s
	}
	if bodySecret != "" {
		return bodySecret
	}
	return r.URL.Query().Get(SecretParam)
}

// authorized compares in constant time. Without a configured secret
// nothing is authorized.
func (h *Handler) authorized(r *http.Request, bodySecret string) bool {
	if h.config.APISecret == "" {
		return false
	}
	got := requestSecret(r, bodySecret)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.config.APISecret)) == 1
}
