package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igarchive/pkg/jsonval"
)

func TestManagerDirectories(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")
	m, err := NewManager(root)
	require.NoError(t, err)

	assert.True(t, m.Exists(root))
	dir := m.Path("alice", "stories", "2024-01-02_03-04-05")
	assert.False(t, m.Exists(dir))

	require.NoError(t, m.EnsureDir(dir))
	require.NoError(t, m.EnsureDir(dir), "EnsureDir is idempotent")
	assert.True(t, m.Exists(dir))
}

func TestWriteJSONKeepsOrder(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	v := jsonval.MustParse(`{"zeta":1,"alpha":{"b":2,"a":1}}`)
	path := m.Path("media.json")
	require.NoError(t, m.WriteJSON(path, v))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Less(t, bytes.Index(data, []byte("zeta")), bytes.Index(data, []byte("alpha")))

	back, err := jsonval.Parse(data)
	require.NoError(t, err)
	assert.True(t, jsonval.Equal(v, back))
	assert.False(t, m.Exists(path+".tmp"))
}

func TestWriteText(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	path := m.Path("caption.txt")
	require.NoError(t, m.WriteText(path, "sunset ☀️"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sunset ☀️", string(data))
}

func TestWriteStream(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	n, err := m.WriteStream(m.Root(), "story.mp4", strings.NewReader("video bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)

	data, err := os.ReadFile(m.Path("story.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "video bytes", string(data))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestWriteStreamFailureLeavesNothing(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	_, err = m.WriteStream(m.Root(), "story.mp4", failingReader{})
	require.Error(t, err)

	entries, err := os.ReadDir(m.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"xdt_api__v1__feed__reels_media", "xdt_api__v1__feed__reels_media"},
		{"Summer '24 🌴", "Summer _24 _"},
		{"a/b\\c", "a_b_c"},
		{"", "unnamed"},
		{strings.Repeat("x", 150), strings.Repeat("x", 100)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeName(tt.in), tt.in)
	}
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "clip.mp4", SanitizeFileName("clip.mp4"))
	assert.Equal(t, "passwd", SanitizeFileName("../../etc/passwd"))
	assert.Equal(t, "my_photo.jpg", SanitizeFileName("my:photo.jpg"))
	assert.Equal(t, "", SanitizeFileName("/"))
	long := SanitizeFileName(strings.Repeat("a", 200) + ".jpg")
	assert.Len(t, long, 100)
	assert.True(t, strings.HasSuffix(long, ".jpg"))
}
