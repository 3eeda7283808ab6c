package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces the value of any sensitive attribute.
const RedactedValue = "[REDACTED]"

// sensitiveKeys never reach a log line in clear text. Matching ignores case
// and treats '-' like '_'.
var sensitiveKeys = map[string]struct{}{
	"passphrase":    {},
	"password":      {},
	"private_key":   {},
	"keystore":      {},
	"authorization": {},
	"otlp_headers":  {},
	"headers":       {},
	"token":         {},
}

func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_")
}

// IsSensitive reports whether values logged under key are redacted.
func IsSensitive(key string) bool {
	_, ok := sensitiveKeys[normalizeKey(key)]
	return ok
}

// Secret builds an attribute for a value that must not be logged. Empty
// values stay empty so a missing secret is still visible.
func Secret(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// redactAttr is applied by Setup to every attribute, including ones added
// through the stdlib bridge or by libraries.
func redactAttr(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindGroup || !IsSensitive(attr.Key) {
		return attr
	}
	return Secret(attr.Key, attr.Value.String())
}
