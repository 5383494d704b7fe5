package instagram

import (
	"fmt"
	"net/url"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// LogoutURL ends the logged-in browser session
	LogoutURL = BaseURL + "/accounts/logout/"
)

// Query names of the captured GraphQL responses the archiver reads
const (
	QueryUser            = "user"
	QueryHighlights      = "highlights"
	QueryReelsMedia      = "xdt_api__v1__feed__reels_media"
	QueryReelsConnection = "xdt_api__v1__feed__reels_media__connection"
	QueryMediaInfo       = "xdt_api__v1__media__shortcode__web_info"
)

// HighlightIDPrefix prefixes highlight reel ids in API payloads ("highlight:1789...")
const HighlightIDPrefix = "highlight:"

// ProfileURL is the public profile page of a user
func ProfileURL(username string) string {
	return fmt.Sprintf("%s/%s/", BaseURL, url.PathEscape(username))
}

// StoriesURL is the story viewer for a user's current stories
func StoriesURL(username string) string {
	return fmt.Sprintf("%s/stories/%s/", BaseURL, url.PathEscape(username))
}

// HighlightURL is the story viewer for one highlight reel
func HighlightURL(id string) string {
	return fmt.Sprintf("%s/stories/highlights/%s/", BaseURL, url.PathEscape(id))
}

// PostURL is the page of a single post or reel
func PostURL(code string) string {
	return fmt.Sprintf("%s/p/%s/", BaseURL, url.PathEscape(code))
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}
