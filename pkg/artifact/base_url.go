package artifact

import "strings"

// DefaultBaseURL is used when the inbound request carries no Host.
const DefaultBaseURL = "http://127.0.0.1:8188"

// Request is the part of an inbound request the base URL depends on.
type Request struct {
	Host   string
	Header func(key string) string
	// Scheme of the inbound connection, "http" or "https".
	Scheme string
}

// BaseURL reconstructs the public address artifacts are served from. Without
// a Host header the fallback (or DefaultBaseURL) is used.
func BaseURL(req Request, fallback string) string {
	if fallback == "" {
		fallback = DefaultBaseURL
	}

	if req.Host == "" {
		return strings.TrimRight(fallback, "/")
	}

	return forwardedScheme(req) + "://" + req.Host
}

func forwardedScheme(req Request) string {
	header := req.Header
	if header == nil {
		header = func(string) string { return "" }
	}

	for _, key := range []string{"X-Forwarded-Proto", "X-Scheme", "X-Forwarded-Scheme"} {
		if value := header(key); value != "" {
			return value
		}
	}

	if header("X-Forwarded-Ssl") == "on" || header("X-Forwarded-Protocol") == "https" {
		return "https"
	}

	if req.Scheme == "https" {
		return "https"
	}

	return "http"
}
