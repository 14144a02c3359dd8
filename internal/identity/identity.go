// Package identity derives stable content identities from URLs and caches
// step payloads against them.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// Normalize canonicalizes a URL for identity purposes: scheme and host are
// lowercased, default ports and trailing slashes dropped, fragments removed.
// An unparseable URL normalizes to its trimmed self so identity remains total.
func Normalize(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return trimmed
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""

	switch {
	case parsed.Scheme == "http" && strings.HasSuffix(parsed.Host, ":80"):
		parsed.Host = strings.TrimSuffix(parsed.Host, ":80")
	case parsed.Scheme == "https" && strings.HasSuffix(parsed.Host, ":443"):
		parsed.Host = strings.TrimSuffix(parsed.Host, ":443")
	}

	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}

	return parsed.String()
}

// HashURL returns the stable identity of a URL: the hex sha256 of its
// normalized form. Deterministic across calls and processes.
func HashURL(rawURL string) string {
	sum := sha256.Sum256([]byte(Normalize(rawURL)))
	return hex.EncodeToString(sum[:])
}

// StepKey builds the cache key for one step's payload under a content identity
func StepKey(urlHash, step string) string {
	return "claimscope:v1:" + urlHash + ":" + step
}
