package vcr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripOAuth(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"http://x.com/path?oauth_token=AAA", "http://x.com/path?"},
		{"http://x.com/path?a=1&oauth_nonce=1&oauth_signature=2", "http://x.com/path?a=1&"},
		{"http://x.com/?oauth_token=1", "http://x.com/?"},
		{"http://x.com/oauth_cb=1/path?a=1&oauth_token=x", "http://x.com/oauth_cb=1/path?a=1&"},
		{"http://x.com/path", "http://x.com/path"},
		{"http://x.com/path?a=1", "http://x.com/path?a=1"},
		{"x.com/path?oauth_token=1", "x.com/path?oauth_token=1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripOAuth(tt.uri), tt.uri)
	}
}

func TestMatcher_CompilesPatternOnce(t *testing.T) {
	recorded, err := NewRequest("GET", "http://example.com/users", nil, nil)
	require.NoError(t, err)
	m, err := NewMatcher(recorded, MustAttributes(AttrPath))
	require.NoError(t, err)
	assert.Nil(t, m.re)

	other, err := NewRequest("GET", "http://other.com/users?page=2", nil, nil)
	require.NoError(t, err)
	assert.True(t, m.Matches(other))
	re := m.re
	require.NotNil(t, re)

	miss, err := NewRequest("GET", "http://other.com/groups", nil, nil)
	require.NoError(t, err)
	assert.False(t, m.Matches(miss))
	assert.Same(t, re, m.re)

	// A second matcher over the same criterion compiles its own pattern.
	m2, err := NewMatcher(recorded, MustAttributes(AttrPath))
	require.NoError(t, err)
	assert.True(t, m2.Matches(other))
	assert.NotSame(t, re, m2.re)
}

func TestMatcher_ExactURIHasNoPattern(t *testing.T) {
	req, err := NewRequest("GET", "http://example.com/", nil, nil)
	require.NoError(t, err)
	m, err := NewMatcher(req, DefaultAttributes)
	require.NoError(t, err)

	assert.True(t, m.Matches(req))
	assert.Nil(t, m.re)
	assert.Nil(t, m.uri.pattern())
}
