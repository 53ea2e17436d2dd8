package vcr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akupila/vcr"
)

func TestNormalizeURI(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "http://example.com/"},
		{"http://example.com", "http://example.com/"},
		{"HTTPS://Example.COM:443/Path?B=1", "https://example.com/Path?B=1"},
		{"http://example.com:80/a", "http://example.com/a"},
		{"https://example.com:80/a", "https://example.com:80/a"},
		{"http://example.com:8080", "http://example.com:8080/"},
		{"http://example.com/?b=2&a=1", "http://example.com/?b=2&a=1"},
		{"http://example.com/a?", "http://example.com/a?"},
		{"http://example.com/a#fragment", "http://example.com/a"},
		{"http://user:pw@Example.com/", "http://user:pw@example.com/"},
		{"http://bücher.example/", "http://xn--bcher-kva.example/"},
		{"http://[::1]:80/x", "http://[::1]/x"},
		{"http://[::1]:8080/x", "http://[::1]:8080/x"},
		{"  http://example.com/a%20b  ", "http://example.com/a%20b"},
	}
	for _, tt := range tests {
		got, err := vcr.NormalizeURI(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNormalizeURI_Invalid(t *testing.T) {
	for _, in := range []string{"http://", "http://%zz/", "https://example.com:port/"} {
		_, err := vcr.NormalizeURI(in)
		assert.Error(t, err, in)
	}
}

func TestURIMatch_String(t *testing.T) {
	for _, tt := range []struct {
		attrs []vcr.Attribute
		want  string
	}{
		{nil, "all"},
		{[]vcr.Attribute{vcr.AttrURI}, "uri"},
		{[]vcr.Attribute{vcr.AttrURIMinusOAuth}, "uri_minus_oauth"},
		{[]vcr.Attribute{vcr.AttrHost}, "host"},
		{[]vcr.Attribute{vcr.AttrPath}, "path"},
		{[]vcr.Attribute{vcr.AttrHost, vcr.AttrPath}, "host+path"},
	} {
		kind, err := vcr.MustAttributes(tt.attrs...).URIMatch()
		require.NoError(t, err)
		assert.Equal(t, tt.want, kind.String())
	}
}
