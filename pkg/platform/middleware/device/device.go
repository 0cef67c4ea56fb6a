// Package device describes the calling client from its User-Agent.
package device

import (
	"context"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

// Client is a coarse description of the caller, safe to log.
type Client struct {
	// Name reads "Browser on OS", e.g. "Chrome on Linux".
	Name string
	// Platform is "mobile", "desktop", "bot" or "unknown".
	Platform string
}

var unknown = Client{Name: "Unknown Device", Platform: "unknown"}

type clientKey struct{}

// Describe parses a User-Agent string.
func Describe(userAgent string) Client {
	if strings.TrimSpace(userAgent) == "" {
		return unknown
	}
	ua := useragent.New(userAgent)

	browser, _ := ua.Browser()
	os := ua.OS()
	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}

	platform := "desktop"
	switch {
	case ua.Bot():
		platform = "bot"
	case ua.Mobile():
		platform = "mobile"
	}
	return Client{Name: strings.TrimSpace(browser + " on " + os), Platform: platform}
}

// Middleware stores the caller's Client in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), clientKey{}, Describe(r.Header.Get("User-Agent")))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext returns the Client stored by Middleware, or an unknown client.
func FromContext(ctx context.Context) Client {
	if c, ok := ctx.Value(clientKey{}).(Client); ok {
		return c
	}
	return unknown
}
