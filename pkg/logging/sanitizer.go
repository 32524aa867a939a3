package logging

import (
	"regexp"
)

const (
	// MaxURLLogLength is the maximum length of a request URL to log
	MaxURLLogLength = 200
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Pattern to match JWT bearer tokens (three base64 segments separated by dots)
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)

	// Pattern to match client secrets and access tokens in query strings
	secretParamPattern = regexp.MustCompile(`(?i)(client_secret|access_token|code|sig)=[^&\s]+`)

	// Pattern to match potential API keys
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{20,}`)

	// Pattern to match credentials embedded in URLs (user:pass@host format)
	urlCredsPattern = regexp.MustCompile(`://[^:/\s]+:[^@/\s]+@[^/\s]+`)
)

// SanitizeURL removes credentials and secrets from a request URL before it is
// logged, and truncates very long query strings.
func SanitizeURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	sanitized := secretParamPattern.ReplaceAllString(rawURL, "${1}="+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = urlCredsPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return TruncateString(sanitized, MaxURLLogLength)
}

// SanitizeError sanitizes error messages that might echo a request URL or an
// Authorization header back to the caller.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()

	sanitized := bearerPattern.ReplaceAllString(errStr, "Bearer "+RedactedText)
	sanitized = secretParamPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = urlCredsPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeHeaderValue redacts a header value when the header carries
// credentials. Non-sensitive headers pass through unchanged.
func SanitizeHeaderValue(name, value string) string {
	switch name {
	case "Authorization", "Proxy-Authorization", "Cookie", "Set-Cookie":
		if value == "" {
			return ""
		}
		return RedactedText
	}
	return value
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
