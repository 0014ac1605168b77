package download

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
)

// instagramPatterns are the path shapes that carry downloadable media.
// Anything else on instagram.com (profiles, explore, ...) is unsupported.
var instagramPatterns = []string{
	"instagram.com/p/*",
	"instagram.com/reel/*",
	"instagram.com/reels/*",
	"instagram.com/tv/*",
	"instagram.com/stories/*",
	"instagram.com/share/*",
}

var (
	instagramURLPattern = regexp.MustCompile(`(?i)https?://(?:www\.)?instagram\.com/[^\s]+`)
	shortcodePattern    = regexp.MustCompile(`instagram\.com/(?:p|reels?|tv)/([A-Za-z0-9_-]+)`)
	storyPattern        = regexp.MustCompile(`instagram\.com/stories/[^/]+/(\d+)`)
)

// NormalizeURL cleans up whatever the caller pasted: percent-encoded urls,
// tracking junk, surrounding text. Returns a KindInvalidURL error when no
// instagram url can be dug out.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", Errf(KindInvalidURL, "empty url")
	}
	// PathUnescape, not QueryUnescape: a literal + in a query param must
	// stay a +, not become a space that cuts the url short
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	match := instagramURLPattern.FindString(raw)
	if match == "" {
		return "", Errf(KindInvalidURL, "not an instagram url: %q", raw)
	}
	u, err := url.Parse(match)
	if err != nil {
		return "", Errf(KindInvalidURL, "not a valid url: %q", match)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host != "instagram.com" {
		return "", Errf(KindInvalidURL, "not an instagram url: %q", match)
	}
	return u.String(), nil
}

// SupportedURL reports whether an already-normalized url points at media we
// can extract.
func SupportedURL(mediaURL string) bool {
	return simpleURLMatch(mediaURL, instagramPatterns...)
}

// MediaID derives a stable identifier for a media url: the post shortcode
// when present, the story id for stories, otherwise a hash of the
// canonicalized url. Equal posts always map to the same id.
func MediaID(mediaURL string) string {
	if m := shortcodePattern.FindStringSubmatch(mediaURL); m != nil {
		return m[1]
	}
	if m := storyPattern.FindStringSubmatch(mediaURL); m != nil {
		return m[1]
	}
	return sha12(canonicalURL(mediaURL))
}

// canonicalURL strips query, fragment and the www prefix so share links and
// plain links canonicalize to the same string.
func canonicalURL(mediaURL string) string {
	u, err := url.Parse(mediaURL)
	if err != nil {
		return mediaURL
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	return strings.TrimSuffix(u.String(), "/")
}

func sha12(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}
