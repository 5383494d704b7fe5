package instagram

import (
	"strings"
	"time"

	"igarchive/pkg/jsonval"
)

// UserProfile is the canonical user record captured on a profile page
type UserProfile struct {
	ID       string
	Username string
	FullName string
	Raw      jsonval.Value
}

// HighlightSummary is one entry of a profile's highlights tray
type HighlightSummary struct {
	// ID is the numeric id, without the "highlight:" prefix
	ID    string
	Title string
	URL   string
}

// Owner identifies the user a reel belongs to
type Owner struct {
	ID       string
	Username string
}

// Reel is a highlight or story reel: an optional title, an owner and ordered items
type Reel struct {
	ID    string
	Title *string
	User  Owner
	Items []MediaItem
	Raw   jsonval.Value
}

// MediaItem is a post, reel, story frame or carousel child
type MediaItem struct {
	ID       string
	Code     string
	TakenAt  time.Time
	Videos   []string
	Images   []string
	Carousel []MediaItem
	Caption  string
	// SecondaryCodes are shortcodes of posts attached to a story frame
	SecondaryCodes []string
	Raw            jsonval.Value
}

// BestURL returns the first video URL, else the first image URL
func (m MediaItem) BestURL() (url string, isVideo bool, ok bool) {
	if len(m.Videos) > 0 {
		return m.Videos[0], true, true
	}
	if len(m.Images) > 0 {
		return m.Images[0], false, true
	}
	return "", false, false
}

// Assets returns the downloadable items of a record: the carousel children, or the record itself
func (m MediaItem) Assets() []MediaItem {
	if len(m.Carousel) > 0 {
		return m.Carousel
	}
	return []MediaItem{m}
}

func text(v jsonval.Value, path ...string) string {
	f, ok := v.Path(path...)
	if !ok {
		return ""
	}
	s, _ := f.Text()
	return s
}

// ParseUserProfile reads a user object
func ParseUserProfile(v jsonval.Value) (UserProfile, bool) {
	if !v.IsObject() {
		return UserProfile{}, false
	}
	p := UserProfile{
		ID:       firstNonEmpty(text(v, "pk"), text(v, "id")),
		Username: text(v, "username"),
		FullName: text(v, "full_name"),
		Raw:      v,
	}
	return p, p.Username != ""
}

// ParseMediaItem reads a media object. Items without any identity are rejected.
func ParseMediaItem(v jsonval.Value) (MediaItem, bool) {
	if !v.IsObject() {
		return MediaItem{}, false
	}
	m := MediaItem{
		ID:      firstNonEmpty(text(v, "id"), text(v, "pk")),
		Code:    text(v, "code"),
		Caption: text(v, "caption", "text"),
		Raw:     v,
	}
	if ts, ok := v.Get("taken_at"); ok {
		if secs, ok := ts.Int(); ok && secs > 0 {
			m.TakenAt = time.Unix(secs, 0)
		}
	}

	if versions, ok := v.Get("video_versions"); ok {
		m.Videos = urls(versions)
	}
	if candidates, ok := v.Path("image_versions2", "candidates"); ok {
		m.Images = urls(candidates)
	}
	if children, ok := v.Get("carousel_media"); ok {
		for _, c := range children.Items() {
			if item, ok := ParseMediaItem(c); ok {
				m.Carousel = append(m.Carousel, item)
			}
		}
	}
	if attached, ok := v.Get("story_feed_media"); ok {
		for _, a := range attached.Items() {
			if code := text(a, "media_code"); code != "" {
				m.SecondaryCodes = append(m.SecondaryCodes, code)
			}
		}
	}

	return m, m.ID != "" || m.Code != ""
}

func urls(list jsonval.Value) []string {
	var out []string
	for _, e := range list.Items() {
		if u := text(e, "url"); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// ParseReel reads a highlight or story reel node
func ParseReel(v jsonval.Value) (Reel, bool) {
	if !v.IsObject() {
		return Reel{}, false
	}
	r := Reel{
		ID:  text(v, "id"),
		Raw: v,
		User: Owner{
			ID:       firstNonEmpty(text(v, "user", "pk"), text(v, "user", "id")),
			Username: text(v, "user", "username"),
		},
	}
	if t, ok := v.Get("title"); ok {
		if s, ok := t.Str(); ok {
			r.Title = &s
		}
	}
	items, ok := v.Get("items")
	if !ok {
		return Reel{}, false
	}
	for _, it := range items.Items() {
		if m, ok := ParseMediaItem(it); ok {
			r.Items = append(r.Items, m)
		}
	}
	return r, true
}

// TitleOr returns the title, or def for untitled reels such as stories
func (r Reel) TitleOr(def string) string {
	if r.Title == nil || *r.Title == "" {
		return def
	}
	return *r.Title
}

// ParseHighlightTray reads the highlights tray payload body
// ({"data":{"highlights":{"edges":[{"node":...}]}}}).
func ParseHighlightTray(body jsonval.Value) []HighlightSummary {
	edges, ok := body.Path("data", "highlights", "edges")
	if !ok {
		return nil
	}
	var out []HighlightSummary
	for _, e := range edges.Items() {
		node, ok := e.Get("node")
		if !ok {
			continue
		}
		id := strings.TrimPrefix(text(node, "id"), HighlightIDPrefix)
		if id == "" {
			continue
		}
		out = append(out, HighlightSummary{
			ID:    id,
			Title: text(node, "title"),
			URL:   HighlightURL(id),
		})
	}
	return out
}

// HighlightTrayOwnedBy reports whether a tray payload belongs to username.
// Trays whose nodes carry no owner are accepted.
func HighlightTrayOwnedBy(body jsonval.Value, username string) bool {
	edges, ok := body.Path("data", "highlights", "edges")
	if !ok || edges.Len() == 0 {
		return false
	}
	sawOwner := false
	match := false
	edges.Elements(func(_ int, e jsonval.Value) bool {
		owner := text(e, "node", "user", "username")
		if owner == "" {
			return true
		}
		sawOwner = true
		match = strings.EqualFold(owner, username)
		return !match
	})
	return match || !sawOwner
}

// ReelOwnedBy reports whether a reel node belongs to username
func ReelOwnedBy(node jsonval.Value, username string) bool {
	return strings.EqualFold(text(node, "user", "username"), username)
}

// ReelHasID reports whether a reel node's id is highlight:<id> (or the bare id)
func ReelHasID(node jsonval.Value, id string) bool {
	got := text(node, "id")
	return got != "" && (got == HighlightIDPrefix+id || got == id)
}

// MediaHasCode reports whether a media object carries code
func MediaHasCode(item jsonval.Value, code string) bool {
	return text(item, "code") == code
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
