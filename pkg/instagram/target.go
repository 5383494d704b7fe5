package instagram

import (
	"net/url"
	"strings"

	"igarchive/pkg/errors"
)

// Kind is the type of thing a Target points at
type Kind string

const (
	KindProfile   Kind = "profile"
	KindMedia     Kind = "media"
	KindStories   Kind = "stories"
	KindHighlight Kind = "highlight"
)

// Target is a normalized reference to archive
type Target struct {
	Kind Kind
	// URL is canonical: https://www.instagram.com/..., trailing slash, no query
	URL string
	// Username is set for profile and stories targets
	Username string
	// Code is the shortcode of a media target
	Code string
	// HighlightID is the numeric id of a highlight target, without the "highlight:" prefix
	HighlightID string
	// Ref is the reference as the user supplied it
	Ref string
}

// single path segments that are site sections, not profiles
var reservedSegments = map[string]bool{
	"p": true, "reel": true, "reels": true, "tv": true, "stories": true,
	"explore": true, "accounts": true, "direct": true,
}

// ParseTarget normalizes a user-supplied reference: "@name", "name",
// "highlight:<id>" or an instagram.com URL.
func ParseTarget(ref string) (Target, error) {
	s := strings.TrimPrefix(strings.TrimSpace(ref), "@")
	if s == "" {
		return Target{}, errors.NewInvalidTarget(ref, "empty reference")
	}

	switch {
	case strings.HasPrefix(s, HighlightIDPrefix):
		id := strings.TrimPrefix(s, HighlightIDPrefix)
		if id == "" || strings.ContainsAny(id, "/?#") {
			return Target{}, errors.NewInvalidTarget(ref, "malformed highlight id")
		}
		s = HighlightURL(id)
	case !strings.Contains(s, "://") && !strings.Contains(strings.Trim(s, "/"), "/"):
		s = ProfileURL(strings.Trim(s, "/"))
	case !strings.Contains(s, "://"):
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return Target{}, errors.NewInvalidTarget(ref, err.Error())
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return Target{}, errors.NewInvalidTarget(ref, "unsupported scheme")
	}
	host := strings.ToLower(u.Hostname())
	if host != "www.instagram.com" && host != "instagram.com" {
		return Target{}, errors.NewInvalidTarget(ref, "not an instagram.com URL")
	}

	var segs []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			segs = append(segs, p)
		}
	}

	t := Target{Ref: ref}
	switch {
	case len(segs) == 0:
		return Target{}, errors.NewInvalidTarget(ref, "no path")

	case segs[0] == "stories" && len(segs) >= 3 && segs[1] == "highlights":
		t.Kind = KindHighlight
		t.HighlightID = segs[2]
		t.URL = HighlightURL(t.HighlightID)

	case segs[0] == "stories" && len(segs) >= 2 && segs[1] != "highlights":
		if !IsValidUsername(segs[1]) {
			return Target{}, errors.NewInvalidTarget(ref, "invalid username")
		}
		t.Kind = KindStories
		t.Username = segs[1]
		t.URL = StoriesURL(t.Username)

	case segs[0] == "stories":
		return Target{}, errors.NewInvalidTarget(ref, "incomplete stories URL")

	case len(segs) == 1:
		if reservedSegments[strings.ToLower(segs[0])] || !IsValidUsername(segs[0]) {
			return Target{}, errors.NewInvalidTarget(ref, "not a profile, story, highlight or media URL")
		}
		t.Kind = KindProfile
		t.Username = segs[0]
		t.URL = ProfileURL(t.Username)

	default:
		t.Kind = KindMedia
		t.Code = segs[len(segs)-1]
		t.URL = BaseURL + "/" + strings.Join(segs, "/") + "/"
	}

	return t, nil
}

// String is the canonical URL
func (t Target) String() string {
	return t.URL
}
