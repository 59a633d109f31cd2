// Package youtube extracts video identifiers from YouTube URLs and share text.
package youtube

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrNoVideoID is returned when the input contains no recognizable video ID.
var ErrNoVideoID = errors.New("youtube: no video ID found")

var (
	videoIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	embeddedURLs   = regexp.MustCompile(`https?://\S+`)
	trailingPunct  = regexp.MustCompile(`[)\].,!?]+$`)
	idPathPrefixes = []string{"shorts", "embed", "live", "v"}
)

// IsVideoID reports whether s has the shape of a video ID.
func IsVideoID(s string) bool {
	return videoIDPattern.MatchString(s)
}

// WatchURL returns the canonical watch URL for a video ID.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// ExtractVideoID returns the 11-character video ID from a bare ID, a
// YouTube URL (watch, shorts, embed, live, youtu.be) or free text that
// contains such a URL, as produced by mobile share sheets.
func ExtractVideoID(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", ErrNoVideoID
	}
	if IsVideoID(trimmed) {
		return trimmed, nil
	}

	if id, ok := fromURL(trimmed); ok {
		return id, nil
	}

	for _, candidate := range embeddedURLs.FindAllString(trimmed, -1) {
		cleaned := trailingPunct.ReplaceAllString(candidate, "")
		if id, ok := fromURL(cleaned); ok {
			return id, nil
		}
	}

	return "", ErrNoVideoID
}

func fromURL(raw string) (string, bool) {
	if !strings.HasPrefix(raw, "http") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")

	parts := pathSegments(u.Path)

	if host == "youtu.be" {
		if len(parts) == 0 {
			return "", false
		}
		return parts[0], IsVideoID(parts[0])
	}

	if !strings.HasSuffix(host, "youtube.com") && !strings.HasSuffix(host, "youtube-nocookie.com") {
		return "", false
	}

	if len(parts) > 0 {
		if parts[0] == "watch" {
			id := u.Query().Get("v")
			return id, IsVideoID(id)
		}
		for _, prefix := range idPathPrefixes {
			if parts[0] == prefix && len(parts) > 1 {
				return parts[1], IsVideoID(parts[1])
			}
		}
	}

	if id := u.Query().Get("v"); IsVideoID(id) {
		return id, true
	}
	return "", false
}

func pathSegments(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
