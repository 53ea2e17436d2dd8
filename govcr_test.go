package vcr_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akupila/vcr"
)

const cassetteYAML = `---
version: 1
interactions:
- request:
    body: ""
    form: {}
    headers:
      Accept:
      - application/json
    url: https://api.example.com/users?page=1
    method: GET
  response:
    body: '[{"id":1}]'
    headers:
      Content-Type:
      - application/json
    status: 200 OK
    code: 200
    duration: 12ms
- request:
    body: name=test
    form: {}
    headers: {}
    url: https://api.example.com/users
    method: POST
  response:
    body: ""
    headers: {}
    status: 201 Created
    code: 201
`

func TestLoadCassette(t *testing.T) {
	name := filepath.Join(t.TempDir(), "users")
	require.NoError(t, os.WriteFile(name+".yaml", []byte(cassetteYAML), 0o644))

	interactions, err := vcr.LoadCassette(name)
	require.NoError(t, err)
	require.Len(t, interactions, 2)

	first := interactions[0]
	assert.Equal(t, vcr.MethodGet, first.Request.Method)
	assert.Equal(t, "https://api.example.com/users?page=1", first.Request.URI)
	assert.Equal(t, "application/json", first.Request.Header.Get("Accept"))
	assert.Nil(t, first.Request.Body)
	assert.Equal(t, 200, first.Response.StatusCode)
	assert.Equal(t, "OK", first.Response.Status)
	assert.Equal(t, `[{"id":1}]`, string(first.Response.Body))
	assert.NotEmpty(t, first.ID)

	second := interactions[1]
	assert.Equal(t, []byte("name=test"), second.Request.Body)
	assert.Equal(t, "Created", second.Response.Status)

	// Converted interactions replay like any other.
	s := vcr.NewStore(interactions...)
	ok, err := s.RequestStubbed(mustRequest(t, "POST", "https://API.example.com:443/users", nil, ""), vcr.DefaultAttributes)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoadCassette_Missing(t *testing.T) {
	_, err := vcr.LoadCassette(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestLoadCassette_Malformed(t *testing.T) {
	tests := map[string]string{
		"invalid yaml":     "version: [\n",
		"invalid duration": strings.Replace(cassetteYAML, "duration: 12ms", "duration: soon", 1),
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			cassette := filepath.Join(t.TempDir(), "broken")
			require.NoError(t, os.WriteFile(cassette+".yaml", []byte(content), 0o644))

			_, err := vcr.LoadCassette(cassette)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "load cassette "+cassette)
		})
	}
}
