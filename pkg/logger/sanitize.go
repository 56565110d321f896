package logger

import (
	"log/slog"
	"strings"
)

// SanitizedEmail masks an email address for logging (e.g., "u***@e***.com")
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username := parts[0]
	domain := parts[1]

	// Mask username: keep first char, mask rest
	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	// Mask domain: keep TLD, mask the rest
	domainParts := strings.Split(domain, ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
		domain = strings.Join(domainParts, ".")
	}

	return username + "@" + domain
}

// ShortToken truncates an opaque token for logging. Challenge and setup
// tokens are single-use secrets; only a prefix ever reaches the logs.
func ShortToken(token string) string {
	if token == "" {
		return "[empty]"
	}
	if len(token) <= 8 {
		return "[short-token]"
	}
	return token[:8] + "..."
}

// EmailAttr returns a slog attribute with the email masked.
func EmailAttr(key, email string) slog.Attr {
	return slog.String(key, SanitizedEmail(email))
}
