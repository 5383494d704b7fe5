package instagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igarchive/pkg/errors"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name     string
		ref      string
		kind     Kind
		url      string
		username string
		code     string
		id       string
	}{
		{"at username", "@alice", KindProfile, "https://www.instagram.com/alice/", "alice", "", ""},
		{"bare username", "john.doe_", KindProfile, "https://www.instagram.com/john.doe_/", "john.doe_", "", ""},
		{"bare with slash", "alice/", KindProfile, "https://www.instagram.com/alice/", "alice", "", ""},
		{"profile url", "https://www.instagram.com/alice", KindProfile, "https://www.instagram.com/alice/", "alice", "", ""},
		{"profile url with query", "https://instagram.com/alice/?hl=en", KindProfile, "https://www.instagram.com/alice/", "alice", "", ""},
		{"highlight shorthand", "highlight:123", KindHighlight, "https://www.instagram.com/stories/highlights/123/", "", "", "123"},
		{"highlight url", "https://www.instagram.com/stories/highlights/17890/", KindHighlight, "https://www.instagram.com/stories/highlights/17890/", "", "", "17890"},
		{"stories", "https://www.instagram.com/stories/alice/", KindStories, "https://www.instagram.com/stories/alice/", "alice", "", ""},
		{"single story", "https://www.instagram.com/stories/alice/3301234567890/", KindStories, "https://www.instagram.com/stories/alice/", "alice", "", ""},
		{"post", "https://www.instagram.com/p/ABC123/", KindMedia, "https://www.instagram.com/p/ABC123/", "", "ABC123", ""},
		{"reel without slash", "https://www.instagram.com/reel/C0dE-x_", KindMedia, "https://www.instagram.com/reel/C0dE-x_/", "", "C0dE-x_", ""},
		{"schemeless post", "www.instagram.com/p/XYZ/", KindMedia, "https://www.instagram.com/p/XYZ/", "", "XYZ", ""},
		{"whitespace", "  @alice  ", KindProfile, "https://www.instagram.com/alice/", "alice", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTarget(tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.url, got.URL)
			assert.Equal(t, tt.username, got.Username)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.id, got.HighlightID)
			assert.Equal(t, tt.ref, got.Ref)
		})
	}
}

func TestParseTargetRejects(t *testing.T) {
	refs := []string{
		"",
		"@",
		"https://example.com/alice/",
		"https://www.instagram.com.evil.net/alice/",
		"ftp://www.instagram.com/alice/",
		"https://www.instagram.com/",
		"https://www.instagram.com/explore/",
		"https://www.instagram.com/stories/",
		"https://www.instagram.com/stories/highlights/",
		"highlight:",
		"highlight:12/34",
		"al ice",
		"https://www.instagram.com/stories/not a user/",
	}

	for _, ref := range refs {
		t.Run(ref, func(t *testing.T) {
			_, err := ParseTarget(ref)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidTarget), "got %v", err)
		})
	}
}

func TestURLBuilders(t *testing.T) {
	assert.Equal(t, "https://www.instagram.com/alice/", ProfileURL("alice"))
	assert.Equal(t, "https://www.instagram.com/stories/alice/", StoriesURL("alice"))
	assert.Equal(t, "https://www.instagram.com/stories/highlights/1/", HighlightURL("1"))
	assert.Equal(t, "https://www.instagram.com/p/ABC/", PostURL("ABC"))
}

func TestIsValidUsername(t *testing.T) {
	assert.True(t, IsValidUsername("a.b_c9"))
	assert.False(t, IsValidUsername(""))
	assert.False(t, IsValidUsername("with space"))
	assert.False(t, IsValidUsername("waaaaaaaaaaaaaaaaaaaaaaaaaaaaaytoolong"))
}
