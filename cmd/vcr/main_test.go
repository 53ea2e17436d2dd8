package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akupila/vcr"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeFixture(t *testing.T) string {
	t.Helper()
	var interactions []vcr.Interaction
	for _, tc := range []struct{ method, uri, body string }{
		{"GET", "http://example.com/foo", "one"},
		{"GET", "http://example.com/foo", "two"},
		{"POST", "http://example.com/foo", "created"},
		{"GET", "http://example.com/bar?x=1", "bar"},
	} {
		req, err := vcr.NewRequest(tc.method, tc.uri, nil, nil)
		require.NoError(t, err)
		interactions = append(interactions, vcr.NewInteraction(req, &vcr.Response{
			StatusCode: 200,
			Status:     "OK",
			Body:       []byte(tc.body),
		}))
	}
	filename := filepath.Join(t.TempDir(), "fixture.yml")
	require.NoError(t, vcr.WriteFixture(filename, interactions))
	return filename
}

func TestCheck(t *testing.T) {
	fixture := writeFixture(t)

	out, err := run(t, "check", fixture)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "4 interactions in 3 groups (match on method,uri)", lines[0])
	assert.Equal(t, "  2  GET http://example.com/foo", lines[1])

	out, err = run(t, "--match", "path", "check", fixture)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "4 interactions in 2 groups (match on path)\n"), out)
}

func TestCheck_Errors(t *testing.T) {
	_, err := run(t, "check", filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	_, err = run(t, "--match", "uri,host", "check", writeFixture(t))
	assert.ErrorIs(t, err, vcr.ErrConfig)
}

func TestMatch(t *testing.T) {
	fixture := writeFixture(t)

	out, err := run(t, "match", fixture, "get", "http://EXAMPLE.com/foo", "--times", "3")
	require.NoError(t, err)
	assert.Equal(t, "#1 200 OK (3 bytes)\n#2 200 OK (3 bytes)\n#3 200 OK (3 bytes)\n", out)

	out, err = run(t, "match", fixture, "DELETE", "http://example.com/foo")
	require.NoError(t, err)
	assert.Equal(t, "DELETE http://example.com/foo: not stubbed\n", out)
}

func TestImport(t *testing.T) {
	dir := t.TempDir()
	cassette := filepath.Join(dir, "cassette.yaml")
	require.NoError(t, os.WriteFile(cassette, []byte(`---
version: 1
interactions:
- request:
    body: ""
    form: {}
    headers: {}
    url: http://example.com/
    method: GET
  response:
    body: hello
    headers: {}
    status: 200 OK
    code: 200
    duration: 3ms
`), 0o644))
	fixture := filepath.Join(dir, "out", "fixture.yml")

	out, err := run(t, "import", cassette, fixture)
	require.NoError(t, err)
	assert.Equal(t, "wrote 1 interactions to "+fixture+"\n", out)

	interactions, err := vcr.LoadFixture(fixture)
	require.NoError(t, err)
	require.Len(t, interactions, 1)
	assert.Equal(t, "hello", string(interactions[0].Response.Body))
}
