package openrouter

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/forPelevin/vidscope/internal/apperr"
)

const defaultBaseURL = "https://openrouter.ai"

var defaultAllowedHosts = map[string]struct{}{
	"openrouter.ai":     {},
	"api.openrouter.ai": {},
}

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

// ValidateBaseURL accepts only https URLs without credentials, query or
// fragment whose host is in allowedHosts (or the OpenRouter defaults).
func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	const op = "openrouter.ValidateBaseURL"

	baseURL = normalizeBaseURL(baseURL)
	invalid := func(format string, args ...any) error {
		return apperr.Config(op, nil, fmt.Sprintf("invalid OPENROUTER_BASE_URL %q: ", baseURL)+fmt.Sprintf(format, args...))
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return apperr.Config(op, err, "invalid OPENROUTER_BASE_URL")
	}
	if !u.IsAbs() || u.Host == "" {
		return invalid("absolute URL with host is required")
	}
	if u.User != nil {
		return invalid("userinfo is not allowed")
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return invalid("query and fragment are not allowed")
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return invalid("host is required")
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return invalid("https is required")
	}

	allowed := normalizeAllowedHosts(allowedHosts)
	if _, ok := allowed[host]; !ok {
		return invalid("host %q is not in OPENROUTER_ALLOWED_HOSTS", host)
	}
	return nil
}

func normalizeAllowedHosts(allowedHosts []string) map[string]struct{} {
	if len(allowedHosts) == 0 {
		return defaultAllowedHosts
	}

	out := make(map[string]struct{}, len(allowedHosts))
	for _, h := range allowedHosts {
		v := strings.ToLower(strings.TrimSpace(h))
		v = strings.TrimPrefix(v, "http://")
		v = strings.TrimPrefix(v, "https://")
		v = strings.Trim(v, "/")
		if v == "" {
			continue
		}
		if i := strings.Index(v, ":"); i >= 0 {
			v = v[:i]
		}
		out[v] = struct{}{}
	}
	if len(out) == 0 {
		return defaultAllowedHosts
	}
	return out
}
