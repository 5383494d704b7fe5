package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := NewTransientFetch("https://cdn.example/a.jpg", 404, nil)
	assert.Equal(t, "transient_fetch error (code 404): fetch https://cdn.example/a.jpg", err.Error())

	wrapped := Wrap(ErrorTypeFilesystem, stderrors.New("disk full"), "write media.json")
	assert.Equal(t, "filesystem: write media.json: disk full", wrapped.Error())
}

func TestTypeOfThroughWrapping(t *testing.T) {
	base := NewIntegrity("ABC", "XYZ")
	err := fmt.Errorf("download media: %w", base)

	assert.Equal(t, ErrorTypeIntegrity, TypeOf(err))
	assert.True(t, IsType(err, ErrorTypeIntegrity))
	assert.False(t, IsType(nil, ErrorTypeIntegrity))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(stderrors.New("plain")))
	assert.True(t, stderrors.Is(err, &Error{Type: ErrorTypeIntegrity}))
	assert.False(t, stderrors.Is(err, &Error{Type: ErrorTypeAuth}))
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"auth", NewAuth("login rejected"), true},
		{"browser", New(ErrorTypeBrowser, "chrome exited"), true},
		{"transient", NewTransientFetch("u", 500, nil), false},
		{"miss", NewExtractionMiss("story reel"), false},
		{"invalid target", NewInvalidTarget("https://example.com/", "foreign host"), false},
		{"plain", stderrors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewTransientFetch("u", 0, cause)
	assert.ErrorIs(t, err, cause)
}
