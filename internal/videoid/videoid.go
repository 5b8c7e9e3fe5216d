package videoid

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ErrInvalidIdentifier is returned when no known URL shape yields a video ID.
var ErrInvalidIdentifier = errors.New("invalid video identifier")

// IDLength is the length of a canonical YouTube video ID.
const IDLength = 11

// Domain is the canonical domain every accepted identifier belongs to.
const Domain = "youtube.com"

// Patterns are tried in order; the first capture wins.
var idPatterns = []*regexp.Regexp{
	// watch without the "?", optionally backslashed: "watchv=", "watch\v\="
	regexp.MustCompile(`(?:youtube\.com/watch\\?v\\?=|youtu\.be/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/v/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
}

// ExtractVideoID turns a URL or a bare identifier into an 11-character video ID.
//
// Any 11-character input without a slash is returned unchanged; it is not
// validated further.
func ExtractVideoID(s string) (string, error) {
	if utf8.RuneCountInString(s) == IDLength && !strings.Contains(s, "/") {
		return s, nil
	}

	for _, re := range idPatterns {
		if m := re.FindStringSubmatch(s); m != nil {
			return m[1], nil
		}
	}

	return "", fmt.Errorf("could not extract video ID from %q: %w", s, ErrInvalidIdentifier)
}

// WatchURL returns the canonical watch page URL for id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(id)
}

// Well-known host aliases. Key: input host. Value: canonical domain.
var canonicalDomainByHost = map[string]string{
	"youtube.com":          "youtube.com",
	"www.youtube.com":      "youtube.com",
	"m.youtube.com":        "youtube.com",
	"music.youtube.com":    "youtube.com",
	"youtube-nocookie.com": "youtube.com",
	"youtu.be":             "youtube.com",
}

// ResolveCanonicalDomain returns the canonical domain for host.
//
// host should be a hostname without port.
func ResolveCanonicalDomain(host string) string {
	h := normalizeHost(host)
	if h == "" {
		return ""
	}
	if c, ok := canonicalDomainByHost[h]; ok {
		return c
	}
	return h
}

// NamespaceUUIDForDomain returns a deterministic UUIDv5 namespace for a domain.
func NamespaceUUIDForDomain(domain string) uuid.UUID {
	d := strings.TrimSpace(strings.ToLower(domain))
	d = strings.TrimSuffix(d, ".")
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(d))
}

// VideoUUID returns a deterministic UUIDv5 for a (domain, videoID) pair.
// The archive keys stored comments by it.
func VideoUUID(domain string, videoID string) uuid.UUID {
	ns := NamespaceUUIDForDomain(domain)
	return uuid.NewSHA1(ns, []byte(strings.TrimSpace(videoID)))
}

// NormalizeSourceURL rewrites any accepted YouTube URL or bare ID to
// https://youtube.com/watch?v={id}, dropping timestamps and tracking params.
//
// It returns the normalized URL together with the extracted ID.
func NormalizeSourceURL(raw string) (string, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", errors.New("missing url")
	}

	id, err := ExtractVideoID(raw)
	if err != nil {
		return "", "", err
	}

	// A bare ID has no host to check.
	if strings.Contains(raw, "/") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", "", err
		}
		if u.Host == "" {
			u, err = url.Parse("https://" + raw)
			if err != nil {
				return "", "", err
			}
		}
		if canon := ResolveCanonicalDomain(u.Host); canon != Domain {
			return "", "", fmt.Errorf("unsupported host %q: %w", u.Host, ErrInvalidIdentifier)
		}
	}

	u := url.URL{
		Scheme:   "https",
		Host:     Domain,
		Path:     "/watch",
		RawQuery: "v=" + url.QueryEscape(id),
	}
	return u.String(), id, nil
}

func normalizeHost(hostport string) string {
	h := strings.TrimSpace(strings.ToLower(hostport))
	if h == "" {
		return ""
	}
	// url.URL.Host may include port.
	if strings.Contains(h, ":") {
		if parsed, err := url.Parse("//" + h); err == nil {
			if parsed.Hostname() != "" {
				h = parsed.Hostname()
			}
		}
	}
	return strings.TrimSuffix(h, ".")
}
