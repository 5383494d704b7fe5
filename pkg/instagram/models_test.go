package instagram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igarchive/pkg/jsonval"
)

const reelNode = `{
	"id": "highlight:17890",
	"title": "Japan",
	"user": {"pk": "42", "username": "alice"},
	"items": [
		{
			"id": "3301_42", "code": "StoryOne", "taken_at": 1700000000, "media_type": 2,
			"video_versions": [{"url": "https://cdn.example/v1.mp4", "width": 720}],
			"image_versions2": {"candidates": [{"url": "https://cdn.example/v1.jpg"}]},
			"story_feed_media": [{"media_code": "SharedPost", "x": 0.5}]
		},
		{
			"id": "3302_42", "media_type": 1,
			"image_versions2": {"candidates": [{"url": "https://cdn.example/i1.jpg"}, {"url": "https://cdn.example/i1_small.jpg"}]}
		},
		{"media_type": 1}
	]
}`

func TestParseReel(t *testing.T) {
	reel, ok := ParseReel(jsonval.MustParse(reelNode))
	require.True(t, ok)

	assert.Equal(t, "highlight:17890", reel.ID)
	assert.Equal(t, "Japan", reel.TitleOr("stories"))
	assert.Equal(t, Owner{ID: "42", Username: "alice"}, reel.User)
	require.Len(t, reel.Items, 2, "items without identity are dropped")

	first := reel.Items[0]
	assert.Equal(t, "StoryOne", first.Code)
	assert.Equal(t, time.Unix(1700000000, 0), first.TakenAt)
	assert.Equal(t, []string{"SharedPost"}, first.SecondaryCodes)
	u, isVideo, ok := first.BestURL()
	assert.True(t, ok)
	assert.True(t, isVideo)
	assert.Equal(t, "https://cdn.example/v1.mp4", u)

	second := reel.Items[1]
	assert.True(t, second.TakenAt.IsZero())
	u, isVideo, ok = second.BestURL()
	assert.True(t, ok)
	assert.False(t, isVideo)
	assert.Equal(t, "https://cdn.example/i1.jpg", u)
}

func TestParseReelStoryHasNoTitle(t *testing.T) {
	reel, ok := ParseReel(jsonval.MustParse(`{"id":"42","title":null,"user":{"username":"alice"},"items":[]}`))
	require.True(t, ok)
	assert.Nil(t, reel.Title)
	assert.Equal(t, "stories", reel.TitleOr("stories"))
	assert.Empty(t, reel.Items)

	_, ok = ParseReel(jsonval.MustParse(`{"id":"42"}`))
	assert.False(t, ok, "a reel without items is not a reel")
}

func TestParseMediaItemCarousel(t *testing.T) {
	item, ok := ParseMediaItem(jsonval.MustParse(`{
		"code": "CAR", "caption": {"text": "three shots"},
		"carousel_media": [
			{"id": "1", "image_versions2": {"candidates": [{"url": "https://cdn.example/1.jpg"}]}},
			{"id": "2", "video_versions": [{"url": "https://cdn.example/2.mp4"}]},
			{"id": "3", "image_versions2": {"candidates": [{"url": "https://cdn.example/3.jpg"}]}}
		]
	}`))
	require.True(t, ok)
	assert.Equal(t, "three shots", item.Caption)

	assets := item.Assets()
	require.Len(t, assets, 3)
	assert.Equal(t, "1", assets[0].ID)
	assert.Equal(t, "2", assets[1].ID)
	assert.Equal(t, "3", assets[2].ID)

	single, _ := ParseMediaItem(jsonval.MustParse(`{"code":"ONE","caption":null}`))
	assert.Len(t, single.Assets(), 1)
	assert.Empty(t, single.Caption)
	_, _, ok = single.BestURL()
	assert.False(t, ok)
}

func TestParseHighlightTray(t *testing.T) {
	body := jsonval.MustParse(`{"data":{"highlights":{"edges":[
		{"node":{"id":"highlight:1","title":"One","cover_media":{"cropped_image_version":{"url":"https://cdn.example/c1.jpg"}},"user":{"username":"alice"}}},
		{"node":{"id":"highlight:2","title":"Two","user":{"username":"alice"}}},
		{"node":{"title":"broken"}}
	]}}}`)

	tray := ParseHighlightTray(body)
	require.Len(t, tray, 2)
	assert.Equal(t, HighlightSummary{ID: "1", Title: "One", URL: "https://www.instagram.com/stories/highlights/1/"}, tray[0])
	assert.Equal(t, "2", tray[1].ID)

	assert.True(t, HighlightTrayOwnedBy(body, "Alice"))
	assert.False(t, HighlightTrayOwnedBy(body, "bob"))

	anonymous := jsonval.MustParse(`{"data":{"highlights":{"edges":[{"node":{"id":"highlight:9"}}]}}}`)
	assert.True(t, HighlightTrayOwnedBy(anonymous, "bob"))
	assert.False(t, HighlightTrayOwnedBy(jsonval.MustParse(`{"data":{"highlights":{"edges":[]}}}`), "bob"))
}

func TestPredicates(t *testing.T) {
	node := jsonval.MustParse(reelNode)
	assert.True(t, ReelHasID(node, "17890"))
	assert.False(t, ReelHasID(node, "1789"))
	assert.True(t, ReelOwnedBy(node, "ALICE"))
	assert.True(t, MediaHasCode(jsonval.MustParse(`{"code":"X"}`), "X"))
	assert.False(t, MediaHasCode(jsonval.MustParse(`{"code":"X"}`), "x"))
}

func TestParseUserProfile(t *testing.T) {
	p, ok := ParseUserProfile(jsonval.MustParse(`{"pk":"42","username":"alice","full_name":"Alice A."}`))
	require.True(t, ok)
	assert.Equal(t, "42", p.ID)
	assert.Equal(t, "Alice A.", p.FullName)

	_, ok = ParseUserProfile(jsonval.MustParse(`{"pk":"42"}`))
	assert.False(t, ok)
}
