package instagram

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	igerrors "igarchive/pkg/errors"
	"igarchive/pkg/logger"
)

// mockRoundTripper allows us to intercept HTTP requests
type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

func TestOpenAssetSendsSessionIdentity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TestAgent/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "https://www.instagram.com/stories/alice/", r.Header.Get("Referer"))
		c, err := r.Cookie("sessionid")
		require.NoError(t, err)
		assert.Equal(t, "s3cr3t", c.Value)

		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("mp4 data"))
	}))
	defer server.Close()

	client := NewClient(5*time.Second, logger.NewTestLogger())
	asset, err := client.OpenAsset(context.Background(), AssetRequest{
		URL:       server.URL + "/v/t50/clip_n.mp4?efg=abc",
		UserAgent: "TestAgent/1.0",
		Referer:   "https://www.instagram.com/stories/alice/",
		Cookies:   []*http.Cookie{{Name: "sessionid", Value: "s3cr3t"}},
	})
	require.NoError(t, err)
	defer asset.Body.Close()

	assert.Equal(t, "clip_n.mp4", asset.FileName)
	assert.Equal(t, "video/mp4", asset.ContentType)
	data, err := io.ReadAll(asset.Body)
	require.NoError(t, err)
	assert.Equal(t, "mp4 data", string(data))
}

func TestOpenAssetFailuresAreTransient(t *testing.T) {
	tests := []struct {
		name    string
		handler func(req *http.Request) (*http.Response, error)
		code    int
	}{
		{
			name: "not found",
			handler: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: 404, Status: "404 Not Found", Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}, Request: req}, nil
			},
			code: 404,
		},
		{
			name: "network",
			handler: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
		},
		{
			name: "bad content-disposition",
			handler: func(req *http.Request) (*http.Response, error) {
				h := http.Header{}
				h.Set("Content-Disposition", `attachment; filename="unterminated`)
				return &http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewReader([]byte("x"))), Header: h, Request: req}, nil
			},
			code: 200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(0, logger.NewNopLogger()).
				WithHTTPClient(&http.Client{Transport: &mockRoundTripper{handler: tt.handler}})

			_, err := client.OpenAsset(context.Background(), AssetRequest{URL: "https://cdn.example/a.jpg"})
			require.Error(t, err)
			assert.True(t, igerrors.IsType(err, igerrors.ErrorTypeTransientFetch))
			var e *igerrors.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.code, e.Code)
		})
	}
}

func TestAssetFileName(t *testing.T) {
	tests := []struct {
		name string
		cd   string
		url  string
		want string
	}{
		{"disposition wins", `attachment; filename="holiday.mp4"`, "https://cdn.example/v/abc.mp4", "holiday.mp4"},
		{"disposition without filename", `inline`, "https://cdn.example/v/abc.mp4", "abc.mp4"},
		{"url path", "", "https://cdn.example/v/t51/12345_n.jpg?stp=dst-jpg", "12345_n.jpg"},
		{"disposition traversal", `attachment; filename="../../x.jpg"`, "https://cdn.example/y.jpg", "x.jpg"},
		{"nothing usable", "", "https://cdn.example/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.cd != "" {
				h.Set("Content-Disposition", tt.cd)
			}
			got, err := AssetFileName(h, tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
