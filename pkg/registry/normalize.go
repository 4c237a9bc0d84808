package registry

import (
	"net/url"
	"strings"
)

// normalizeURL lowercases scheme and host and strips default ports and
// trailing slashes, so uniqueness checks treat equivalent URLs alike.
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(strings.TrimRight(raw, "/"))
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()

	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}

	normalized := scheme + "://" + host
	if port != "" {
		normalized += ":" + port
	}
	normalized += strings.TrimRight(u.Path, "/")
	if u.RawQuery != "" {
		normalized += "?" + u.RawQuery
	}
	return normalized
}

func activeKey(modelName, endpointURL string) string {
	return modelName + "\x00" + normalizeURL(endpointURL)
}
