package logging

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

const redacted = "REDACTED"

// OpenAI-style secret keys, including project and service-account keys.
var apiKeyPattern = regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{16,}`)

// Query parameters that private podcast feeds use to carry credentials.
var secretParams = []string{"token", "key", "auth", "secret", "signature", "sig", "password", "access_token", "api_key", "apikey"}

// Redact masks API keys and the credential parts of URLs embedded in s.
func Redact(s string) string {
	if s == "" {
		return s
	}
	if strings.Contains(s, "sk-") {
		s = apiKeyPattern.ReplaceAllString(s, "sk-"+redacted)
	}
	if !strings.Contains(s, "://") {
		return s
	}
	out := s
	for _, field := range strings.Fields(s) {
		if clean, ok := redactURL(field); ok {
			out = strings.Replace(out, field, clean, 1)
		}
	}
	return out
}

func redactURL(raw string) (string, bool) {
	trimmed := strings.Trim(raw, `"'(),`)
	if !strings.Contains(trimmed, "://") {
		return raw, false
	}
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return raw, false
	}
	changed := false
	if u.User != nil {
		u.User = url.User(redacted)
		changed = true
	}
	if u.RawQuery != "" {
		query := u.Query()
		for key := range query {
			if isSecretParam(key) {
				query.Set(key, redacted)
				changed = true
			}
		}
		if changed {
			u.RawQuery = query.Encode()
		}
	}
	if !changed {
		return raw, false
	}
	return strings.Replace(raw, trimmed, u.String(), 1), true
}

func isSecretParam(key string) bool {
	key = strings.ToLower(key)
	for _, name := range secretParams {
		if key == name {
			return true
		}
	}
	return false
}

// redactValue masks string and error values before they reach a handler.
func redactValue(v slog.Value) slog.Value {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		if clean := Redact(v.String()); clean != v.String() {
			return slog.StringValue(clean)
		}
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			if clean := Redact(x.Error()); clean != x.Error() {
				return slog.StringValue(clean)
			}
		case fmt.Stringer:
			if clean := Redact(x.String()); clean != x.String() {
				return slog.StringValue(clean)
			}
		}
	}
	return v
}
