package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// RedactedValue replaces secrets in log output.
const RedactedValue = "[REDACTED]"

// Attribute keys that always carry secrets: keystore passphrases, bearer
// tokens and raw key material.
var sensitiveKeys = map[string]struct{}{
	"passphrase":    {},
	"authorization": {},
	"token":         {},
	"bearer":        {},
	"private_key":   {},
	"secret":        {},
	"hmac_secret":   {},
}

var (
	privateKeyPattern = regexp.MustCompile(`suiprivkey1[02-9ac-hj-np-z]{20,}`)
	bearerPattern     = regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9\-_.=+/]+`)
)

// IsSensitive reports whether values logged under key must be masked.
func IsSensitive(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// MaskValue returns the placeholder for non-empty values so the presence of
// a secret stays visible without its content.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}

// MaskField builds an attribute for key, masking value when key is
// sensitive and scrubbing embedded secrets otherwise.
func MaskField(key, value string) slog.Attr {
	if IsSensitive(key) {
		return slog.String(key, MaskValue(value))
	}
	return slog.String(key, ScrubSecrets(value))
}

// ScrubSecrets masks bech32 private keys and bearer tokens embedded in free
// text such as wrapped error messages.
func ScrubSecrets(text string) string {
	if !strings.Contains(text, "suiprivkey1") && !strings.Contains(strings.ToLower(text), "bearer") {
		return text
	}
	text = privateKeyPattern.ReplaceAllString(text, RedactedValue)
	return bearerPattern.ReplaceAllString(text, "${1}"+RedactedValue)
}

// redactAttr is applied to every attribute the handler emits. Values are
// resolved first so LogValuers and errors are scrubbed too.
func redactAttr(attr slog.Attr) slog.Attr {
	if IsSensitive(attr.Key) {
		return slog.String(attr.Key, MaskValue(attr.Value.Resolve().String()))
	}
	value := attr.Value.Resolve()
	switch value.Kind() {
	case slog.KindString:
		return slog.String(attr.Key, ScrubSecrets(value.String()))
	case slog.KindAny:
		if err, ok := value.Any().(error); ok {
			return slog.String(attr.Key, ScrubSecrets(err.Error()))
		}
	}
	return attr
}
