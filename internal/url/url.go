package url

import (
	"fmt"
	"net/url"
	"strings"
)

// Sanitize normalizes a device base URL supplied by the user.
func Sanitize(uri string) (string, error) {
	parsedURI, err := url.ParseRequestURI(uri)
	if err != nil {
		return "", fmt.Errorf("failed to parse URI: %w", err)
	}
	if parsedURI.Scheme != "http" && parsedURI.Scheme != "https" {
		return "", fmt.Errorf("unsupported URI scheme: %q", parsedURI.Scheme)
	}
	// Collapse any doubled slashes
	parsedURI.Path = strings.ReplaceAll(parsedURI.Path, "//", "/")
	// Remove any trailing slashes
	parsedURI.Path = strings.TrimSuffix(parsedURI.Path, "/")
	return parsedURI.String(), nil
}
